// Package layout is the retained scene-graph engine. It materialises server
// sent UI trees into widget nodes, applies incremental updates, dispatches
// action URIs onto the bus, and drives animations and particle canvases from
// a single timeline. All scene mutations run under the engine's lock.
package layout

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/sduiterm/component"
	errs "github.com/c360/sduiterm/errors"
	"github.com/c360/sduiterm/mem"
)

// Screen geometry. The root view is inset by the screen padding on every
// side, which keeps content off the round display's bezel.
const (
	ScreenW   = 466
	ScreenH   = 466
	ScreenPad = 40
)

// Publisher is the bus surface the engine dispatches actions through
type Publisher interface {
	PublishLocal(topic, payload string)
	PublishUp(topic, payload string) error
}

// Engine owns the scene graph
type Engine struct {
	mu        sync.Mutex
	root      *Node
	registry  *registry
	spinCount int

	animated  []*Node
	particles []*Node
	allocSeq  int

	publisher Publisher
	psram     *mem.Region
	recorder  Recorder

	lastActivity time.Time
	startTime    time.Time
	errCount     int
	lastErr      string

	metrics *layoutMetrics
	logger  *slog.Logger
}

// NewEngine creates a layout engine. psram, recorder, and registrar may be
// nil; a nil recorder never throttles particle ticks.
func NewEngine(publisher Publisher, psram *mem.Region, recorder Recorder,
	registrar Registrar, logger *slog.Logger,
) (*Engine, error) {
	if publisher == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil publisher"),
			"Engine", "NewEngine", "create layout engine")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newLayoutMetrics(registrar)
	if err != nil {
		return nil, err
	}

	return &Engine{
		registry:  newRegistry(),
		publisher: publisher,
		psram:     psram,
		recorder:  recorder,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Init establishes the root view: full screen minus padding, centred flex
// column, scrolling off, transparent background. The ID registry and spin
// counter are cleared.
func (e *Engine) Init() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.root = e.newRootLocked()
	e.registry.clear()
	e.spinCount = 0
	e.animated = nil
	e.particles = nil
	e.startTime = time.Now()
	e.lastActivity = time.Now()
}

func (e *Engine) newRootLocked() *Node {
	root := newNode(TypeContainer)
	root.Width = ScreenW - 2*ScreenPad
	root.Height = ScreenH - 2*ScreenPad
	root.Align = "center"
	e.applyRootDefaultsLocked(root)
	return root
}

func (e *Engine) applyRootDefaultsLocked(root *Node) {
	root.Flex = "column"
	root.Justify = "center"
	root.AlignItems = "center"
	root.Scrollable = false
	root.HasBgColor = false
	root.BgOpacity = 0
}

// Root returns the root node, nil before Init
func (e *Engine) Root() *Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

// Meta implements component.Discoverable
func (e *Engine) Meta() component.Metadata {
	return component.Metadata{
		Name:        "layout",
		Type:        "ui",
		Description: "Retained scene-graph engine",
		Version:     "1.0.0",
	}
}

// Health implements component.Discoverable
func (e *Engine) Health() component.HealthStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	var uptime time.Duration
	if !e.startTime.IsZero() {
		uptime = time.Since(e.startTime)
	}
	return component.HealthStatus{
		Healthy:    e.root != nil,
		LastCheck:  time.Now(),
		ErrorCount: e.errCount,
		LastError:  e.lastErr,
		Uptime:     uptime,
	}
}

// Render fully re-materialises the UI tree from jsonText. A parse failure
// aborts with no mutation of the current scene.
func (e *Engine) Render(jsonText string) error {
	var parsed any
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		e.mu.Lock()
		e.noteErrorLocked(err)
		e.mu.Unlock()
		e.metrics.recordRenderFailure()
		e.logger.Warn("Layout parse failed, keeping current scene", "error", err)
		return errs.WrapInvalid(err, "Engine", "Render", "parse layout")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.root == nil {
		e.root = e.newRootLocked()
	}

	// Tear down the old tree. Deletion hooks release image and particle
	// buffers; the registry and spin budget start fresh.
	e.root.Opacity = 0
	for _, child := range e.root.Children {
		child.destroy()
	}
	e.root.Children = nil
	e.registry.clear()
	e.spinCount = 0
	e.animated = nil
	e.particles = nil

	e.applyRootDefaultsLocked(e.root)

	switch tree := parsed.(type) {
	case []any:
		for _, item := range tree {
			e.buildNodeLocked(e.root, item)
		}
	case map[string]any:
		a := attrs(tree)
		if children, ok := a.array("children"); ok {
			e.applyRootObjectLocked(a)
			for _, item := range children {
				e.buildNodeLocked(e.root, item)
			}
		} else {
			e.buildNodeLocked(e.root, tree)
		}
	default:
		e.logger.Warn("Layout root is neither object nor array")
	}

	e.startAnimLocked(e.root, &animState{
		typ:      animFadeIn,
		duration: animDefaults[animFadeIn],
		repeat:   1,
	})

	e.metrics.recordRender(e.registry.count())
	return nil
}

// applyRootObjectLocked applies common styles and flex settings from a root
// object onto the root view itself
func (e *Engine) applyRootObjectLocked(a attrs) {
	for _, issue := range applyCommonStyle(e.root, a, ScreenW-2*ScreenPad, ScreenH-2*ScreenPad) {
		e.logger.Warn("Root style issue", "issue", issue)
	}
	e.applyFlexLocked(e.root, a)
}

func (e *Engine) applyFlexLocked(n *Node, a attrs) {
	if flex, ok := a.str("flex"); ok {
		if validFlex[flex] {
			n.Flex = flex
		} else {
			e.logger.Warn("Unknown flex value", "flex", flex)
		}
	}
	if justify, ok := a.str("justify"); ok {
		if validFlexAlign[justify] {
			n.Justify = justify
		} else {
			e.logger.Warn("Unknown justify value", "justify", justify)
		}
	}
	if alignItems, ok := a.str("align_items"); ok {
		if validFlexAlign[alignItems] {
			n.AlignItems = alignItems
		} else {
			e.logger.Warn("Unknown align_items value", "align_items", alignItems)
		}
	}
	if scrollable, ok := a.boolean("scrollable"); ok {
		n.Scrollable = scrollable
	}
}

// buildNodeLocked constructs one node (and its subtree) under parent
func (e *Engine) buildNodeLocked(parent *Node, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		e.logger.Warn("Layout node is not an object, skipping")
		return
	}
	a := attrs(obj)

	typeStr, ok := a.str("type")
	if !ok {
		e.logger.Warn("Layout node missing type, skipping")
		return
	}

	widgetType := WidgetType(typeStr)
	switch widgetType {
	case TypeContainer, TypeLabel, TypeButton, TypeImage, TypeBar, TypeSlider, TypeParticle:
	default:
		e.logger.Warn("Unknown widget type, skipping node", "type", typeStr)
		return
	}

	n := newNode(widgetType)

	if id, ok := a.str("id"); ok && id != "" {
		n.ID = id
		if !e.registry.insert(id, n) {
			e.logger.Warn("ID registry full, widget not addressable",
				"id", id, "capacity", registryCapacity)
		}
	}

	parentW, parentH := parent.Width, parent.Height
	for _, issue := range applyCommonStyle(n, a, parentW, parentH) {
		e.logger.Warn("Style issue", "id", n.ID, "type", typeStr, "issue", issue)
	}

	switch widgetType {
	case TypeContainer:
		e.applyFlexLocked(n, a)
	case TypeLabel:
		n.Text, _ = a.str("text")
		if mode, ok := a.str("long_mode"); ok {
			n.LongMode = mode
		}
	case TypeButton:
		caption := newNode(TypeLabel)
		caption.Text, _ = a.str("text")
		caption.TextColor = n.TextColor
		caption.HasTextCol = n.HasTextCol
		caption.FontSize = n.FontSize
		n.addChild(caption)
	case TypeImage:
		e.buildImage(n, a)
	case TypeBar:
		e.applyRange(n, a)
	case TypeSlider:
		e.applyRange(n, a)
	case TypeParticle:
		e.buildParticleLocked(n, a)
	}

	e.bindActionsLocked(n, a)

	if anim, ok := a.object("anim"); ok {
		e.startAnimFromDescriptorLocked(n, anim)
	}

	parent.addChild(n)

	if children, ok := a.array("children"); ok {
		for _, item := range children {
			e.buildNodeLocked(n, item)
		}
	}
}

func (e *Engine) applyRange(n *Node, a attrs) {
	if minVal, ok := a.intval("min"); ok {
		n.Min = minVal
	}
	if maxVal, ok := a.intval("max"); ok {
		n.Max = maxVal
	}
	if value, ok := a.intval("value"); ok {
		n.Value = value
	}
	if c, ok := a.str("indic_color"); ok {
		if col, err := parseColor(c); err != nil {
			e.logger.Warn("Bad indicator colour", "id", n.ID, "error", err)
		} else {
			n.IndicCol = col
			n.HasIndic = true
		}
	}
}

func (e *Engine) buildParticleLocked(n *Node, a attrs) {
	w, _ := a.intval("canvas_w")
	h, _ := a.intval("canvas_h")
	w = clampCanvasDim(w)
	h = clampCanvasDim(h)
	n.Width = w
	n.Height = h

	var free func()
	if e.psram != nil {
		allocName := fmt.Sprintf("particle_%s_%d", n.ID, e.allocSeq)
		e.allocSeq++
		if err := e.psram.Alloc(allocName, int64(w*h*2)); err != nil {
			e.logger.Warn("Particle canvas reservation failed, widget created inert",
				"id", n.ID, "error", err)
			return
		}
		region := e.psram
		free = func() { region.Free(allocName) }
	}

	n.particle = newParticleState(w, h, free)
	n.addDeleteHook(n.particle.release)
	e.particles = append(e.particles, n)
}

// bindActionsLocked wires the node's event URIs
func (e *Engine) bindActionsLocked(n *Node, a attrs) {
	if uri, ok := a.str("on_click"); ok {
		n.bindAction(EventClick, uri)
	}
	if uri, ok := a.str("on_press"); ok {
		n.bindAction(EventPress, uri)
	}
	if uri, ok := a.str("on_release"); ok {
		n.bindAction(EventRelease, uri)
	}
	if n.Type == TypeSlider {
		if uri, ok := a.str("on_change"); ok {
			n.bindAction(EventChange, uri)
		}
	}
}
