package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	errs "github.com/c360/sduiterm/errors"
)

// Update applies an incremental mutation to a single addressed node. A
// missing or unknown id is a logged no-op.
func (e *Engine) Update(jsonText string) error {
	var obj map[string]any
	if err := json.Unmarshal([]byte(jsonText), &obj); err != nil {
		e.logger.Warn("Update parse failed", "error", err)
		return errs.WrapInvalid(err, "Engine", "Update", "parse update")
	}
	a := attrs(obj)

	id, ok := a.str("id")
	if !ok || id == "" {
		e.logger.Warn("Update without id ignored")
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.registry.find(id)
	if n == nil {
		e.logger.Warn("Update target not found", "id", id)
		return nil
	}

	if text, ok := a.str("text"); ok {
		if target := n.firstLabelChild(); target != nil {
			target.Text = text
		}
	}
	if hidden, ok := a.boolean("hidden"); ok {
		n.Hidden = hidden
	}
	if c, ok := a.str("bg_color"); ok {
		if col, err := parseColor(c); err != nil {
			e.logger.Warn("Bad update colour", "id", id, "error", err)
		} else {
			n.BgColor = col
			n.HasBgColor = true
			n.BgOpacity = 255
		}
	}
	if value, ok := a.intval("value"); ok {
		if n.Type == TypeBar || n.Type == TypeSlider {
			n.Value = value
		}
	}
	if c, ok := a.str("indic_color"); ok {
		if col, err := parseColor(c); err != nil {
			e.logger.Warn("Bad update indicator colour", "id", id, "error", err)
		} else {
			n.IndicCol = col
			n.HasIndic = true
		}
	}
	if opa, ok := a.intval("opa"); ok {
		n.Opacity = clampOpacity(opa)
	}
	if anim, ok := a.object("anim"); ok {
		e.startAnimFromDescriptorLocked(n, anim)
	}

	e.metrics.recordUpdate()
	return nil
}

// FindByID returns the node registered under id, or nil
func (e *Engine) FindByID(id string) *Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.find(id)
}

// WidgetCount returns the number of addressable widgets
func (e *Engine) WidgetCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.count()
}

// SpinCount returns the number of active spin animations
func (e *Engine) SpinCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spinCount
}

// LastActivity returns the time of the last user input event
func (e *Engine) LastActivity() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActivity
}

// Click simulates a click on the addressed widget
func (e *Engine) Click(id string) {
	e.inputEvent(id, EventClick)
}

// Press simulates a press on the addressed widget
func (e *Engine) Press(id string) {
	e.inputEvent(id, EventPress)
}

// Release simulates a release on the addressed widget. Sliders with a bound
// on_change additionally report their value.
func (e *Engine) Release(id string) {
	e.inputEvent(id, EventRelease)

	e.mu.Lock()
	n := e.registry.find(id)
	if n == nil || n.Type != TypeSlider {
		e.mu.Unlock()
		return
	}
	value := n.Value
	uri, bound := n.actionURI(EventChange)
	e.mu.Unlock()

	if bound {
		e.dispatch(n, uri, fmt.Sprintf(`{"id":%q,"value":%d}`, n.ID, value))
	}
}

// SetSliderValue moves a slider and fires its change report, matching the
// device behaviour where the value event arrives on touch release
func (e *Engine) SetSliderValue(id string, value int) {
	e.mu.Lock()
	n := e.registry.find(id)
	if n == nil || n.Type != TypeSlider {
		e.mu.Unlock()
		e.logger.Warn("Slider not found", "id", id)
		return
	}
	n.Value = value
	e.lastActivity = time.Now()
	uri, bound := n.actionURI(EventChange)
	e.mu.Unlock()

	if bound {
		e.dispatch(n, uri, fmt.Sprintf(`{"id":%q,"value":%d}`, n.ID, value))
	}
}

func (e *Engine) inputEvent(id string, event Event) {
	e.mu.Lock()
	n := e.registry.find(id)
	if n == nil {
		e.mu.Unlock()
		e.logger.Debug("Input event on unknown widget", "id", id, "event", event.String())
		return
	}
	e.lastActivity = time.Now()
	uri, bound := n.actionURI(event)
	e.mu.Unlock()

	if !bound {
		return
	}
	e.dispatch(n, uri, fmt.Sprintf(`{"id":%q}`, n.ID))
}

// Action URI schemes
const (
	localScheme  = "local://"
	serverScheme = "server://"
	clickTopic   = "ui/click"
)

// dispatch routes an action URI. local:// publishes on the local bus,
// server:// publishes upward on the named topic, anything else publishes the
// canonical click report.
func (e *Engine) dispatch(n *Node, uri, payload string) {
	switch {
	case len(uri) > len(localScheme) && uri[:len(localScheme)] == localScheme:
		e.publisher.PublishLocal(uri[len(localScheme):], payload)
	case len(uri) > len(serverScheme) && uri[:len(serverScheme)] == serverScheme:
		if err := e.publisher.PublishUp(uri[len(serverScheme):], payload); err != nil {
			e.logger.Warn("Action uplink failed", "id", n.ID, "error", err)
		}
	default:
		if err := e.publisher.PublishUp(clickTopic, payload); err != nil {
			e.logger.Warn("Click uplink failed", "id", n.ID, "error", err)
		}
	}
	e.metrics.recordAction()
}

// Tick advances the animation timeline and particle canvases by dt. The
// boot orchestrator drives this from the UI ticker.
func (e *Engine) Tick(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	remaining := e.animated[:0]
	for _, n := range e.animated {
		if n.anim == nil {
			continue
		}
		if finished := n.anim.step(n, dt); finished {
			if n.anim.typ == AnimSpin {
				e.spinCount--
			}
			n.anim = nil
			continue
		}
		remaining = append(remaining, n)
	}
	e.animated = remaining

	if e.recorder != nil && e.recorder.IsRecording() {
		return
	}
	for _, n := range e.particles {
		if n.particle != nil && !n.Hidden {
			n.particle.tick()
		}
	}
}

// Run drives the timeline until ctx is cancelled
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(particlePeriod)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.Tick(now.Sub(last))
			last = now
		}
	}
}

func (e *Engine) noteErrorLocked(err error) {
	e.errCount++
	e.lastErr = err.Error()
}
