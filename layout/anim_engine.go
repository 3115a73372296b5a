package layout

import (
	"time"
)

// startAnimFromDescriptorLocked parses an anim descriptor and starts it on
// the node. Invalid descriptors are logged and ignored.
func (e *Engine) startAnimFromDescriptorLocked(n *Node, a attrs) {
	typ, ok := a.str("type")
	if !ok {
		e.logger.Warn("Animation without type", "id", n.ID)
		return
	}

	if typ == AnimMarquee {
		if n.Type == TypeLabel {
			n.LongMode = "marquee"
		} else {
			e.logger.Warn("Marquee on non-label ignored", "id", n.ID)
		}
		return
	}

	duration, okDefault := animDefaults[typ]
	if !okDefault {
		e.logger.Warn("Unknown animation type", "id", n.ID, "anim", typ)
		return
	}
	if ms, ok := a.intval("duration"); ok && ms > 0 {
		duration = time.Duration(ms) * time.Millisecond
	}

	repeat, started := e.resolveRepeat(n, typ, a)
	if !started {
		return
	}

	st := &animState{
		typ:      typ,
		duration: duration,
		repeat:   repeat,
	}

	switch typ {
	case AnimBreathe:
		st.minOpa, st.maxOpa = 80, 255
		if v, ok := a.intval("min_opa"); ok {
			st.minOpa = clampOpacity(v)
		}
		if v, ok := a.intval("max_opa"); ok {
			st.maxOpa = clampOpacity(v)
		}
	case AnimSpin:
		if n.Type != TypeImage {
			e.logger.Warn("Spin on non-image rejected", "id", n.ID, "type", string(n.Type))
			return
		}
		if e.spinCount >= maxConcurrentSpins {
			e.logger.Warn("Spin slots exhausted", "id", n.ID, "max", maxConcurrentSpins)
			return
		}
		st.direction = 1
		if dir, ok := a.str("direction"); ok && dir == "ccw" {
			st.direction = -1
		}
		e.spinCount++
		n.addDeleteHook(func() {
			if n.anim != nil && n.anim.typ == AnimSpin {
				e.spinCount--
				n.anim = nil
			}
		})
	case AnimSlideIn:
		from, _ := a.str("from")
		switch from {
		case "right":
			st.fromX = ScreenW
		case "top":
			st.fromY = -ScreenH
		case "bottom":
			st.fromY = ScreenH
		default:
			st.fromX = -ScreenW
		}
	case AnimShake:
		st.amp = 8
		if v, ok := a.intval("amp"); ok && v > 0 {
			st.amp = v
		}
	case AnimColorPulse:
		st.baseBg = n.BgColor
		if c, ok := a.str("color_a"); ok {
			if col, err := parseColor(c); err == nil {
				st.colorA = col
			}
		}
		if c, ok := a.str("color_b"); ok {
			if col, err := parseColor(c); err == nil {
				st.colorB = col
			}
		}
		n.addDeleteHook(func() { n.anim = nil })
	}

	e.startAnimLocked(n, st)
}

// resolveRepeat applies the repeat semantics: negative is infinite, zero is
// infinite for breathe and color_pulse only (a long-standing server-side
// habit the engine keeps honouring), positive counts cycles. Absent repeat
// defaults to infinite for looping types and one playback otherwise.
func (e *Engine) resolveRepeat(n *Node, typ string, a attrs) (int, bool) {
	v, present := a.intval("repeat")
	if !present {
		switch typ {
		case AnimSlideIn, AnimShake:
			return 1, true
		default:
			return repeatInfinite, true
		}
	}

	switch {
	case v < 0:
		return repeatInfinite, true
	case v == 0:
		if typ == AnimBreathe || typ == AnimColorPulse {
			e.logger.Warn("repeat:0 treated as infinite, send repeat:-1 instead",
				"id", n.ID, "anim", typ)
			return repeatInfinite, true
		}
		e.logger.Warn("repeat:0 skips animation", "id", n.ID, "anim", typ)
		return 0, false
	default:
		return v, true
	}
}

// startAnimLocked installs the animation, replacing any running one
func (e *Engine) startAnimLocked(n *Node, st *animState) {
	if n.anim != nil && n.anim.typ == AnimSpin {
		e.spinCount--
	}
	if n.anim == nil {
		e.animated = append(e.animated, n)
	}
	n.anim = st
}
