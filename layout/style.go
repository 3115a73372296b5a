package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Font presets available on the device. Requested sizes map to the nearest
// preset less than or equal to the request; requests below the smallest
// preset clamp up to it.
var fontPresets = []int{14, 16, 20, 24, 26}

// DefaultFontSize is applied when a node carries no font_size
const DefaultFontSize = 16

var validAligns = map[string]bool{
	"center":       true,
	"top_mid":      true,
	"top_left":     true,
	"top_right":    true,
	"bottom_mid":   true,
	"bottom_left":  true,
	"bottom_right": true,
	"left_mid":     true,
	"right_mid":    true,
}

var validFlex = map[string]bool{
	"row":         true,
	"column":      true,
	"row_wrap":    true,
	"column_wrap": true,
}

var validFlexAlign = map[string]bool{
	"start":         true,
	"end":           true,
	"center":        true,
	"space_evenly":  true,
	"space_around":  true,
	"space_between": true,
}

// nearestFont selects the font preset for a requested size
func nearestFont(requested int) int {
	selected := fontPresets[0]
	for _, preset := range fontPresets {
		if preset <= requested {
			selected = preset
		}
	}
	return selected
}

// parseColor parses a "#RRGGBB" hex colour
func parseColor(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return 0, fmt.Errorf("colour %q is not #RRGGBB", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("colour %q is not #RRGGBB", s)
	}
	return Color(v), nil
}

// resolveDimension converts a w/h attribute to pixels against the parent
// extent. Numbers are pixels, "NN%" is a percentage, "full" is 100%, and
// "content" (or absence) is content-fit, reported as 0.
func resolveDimension(v any, parentExtent int) (int, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(val), nil
	case string:
		switch {
		case val == "full":
			return parentExtent, nil
		case val == "content":
			return 0, nil
		case strings.HasSuffix(val, "%"):
			pct, err := strconv.Atoi(strings.TrimSuffix(val, "%"))
			if err != nil {
				return 0, fmt.Errorf("dimension %q is not a percentage", val)
			}
			return parentExtent * pct / 100, nil
		default:
			return 0, fmt.Errorf("dimension %q not recognised", val)
		}
	default:
		return 0, fmt.Errorf("dimension type %T not recognised", v)
	}
}

// attrs wraps a decoded JSON object with typed accessors. Missing keys and
// type mismatches report absence rather than erroring; the server is the
// authority and malformed attributes degrade to defaults.
type attrs map[string]any

func (a attrs) str(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

func (a attrs) num(key string) (float64, bool) {
	v, ok := a[key].(float64)
	return v, ok
}

func (a attrs) intval(key string) (int, bool) {
	v, ok := a.num(key)
	return int(v), ok
}

func (a attrs) boolean(key string) (bool, bool) {
	v, ok := a[key].(bool)
	return v, ok
}

func (a attrs) object(key string) (attrs, bool) {
	v, ok := a[key].(map[string]any)
	return attrs(v), ok
}

func (a attrs) array(key string) ([]any, bool) {
	v, ok := a[key].([]any)
	return v, ok
}

// applyCommonStyle resolves the shared style keys onto a node. Unknown or
// malformed values are logged by the caller through the returned issue list
// and otherwise ignored.
func applyCommonStyle(n *Node, a attrs, parentW, parentH int) []string {
	var issues []string

	if w, ok := a["w"]; ok {
		px, err := resolveDimension(w, parentW)
		if err != nil {
			issues = append(issues, err.Error())
		} else {
			n.Width = px
		}
	}
	if h, ok := a["h"]; ok {
		px, err := resolveDimension(h, parentH)
		if err != nil {
			issues = append(issues, err.Error())
		} else {
			n.Height = px
		}
	}

	if align, ok := a.str("align"); ok {
		if validAligns[align] {
			n.Align = align
			if x, ok := a.intval("x"); ok {
				n.OffsetX = x
			}
			if y, ok := a.intval("y"); ok {
				n.OffsetY = y
			}
		} else {
			issues = append(issues, fmt.Sprintf("unknown align %q", align))
		}
	}

	if c, ok := a.str("bg_color"); ok {
		if col, err := parseColor(c); err != nil {
			issues = append(issues, err.Error())
		} else {
			n.BgColor = col
			n.HasBgColor = true
			n.BgOpacity = 255
		}
	}
	if opa, ok := a.intval("bg_opa"); ok {
		n.BgOpacity = clampOpacity(opa)
	}

	if pad, ok := a.intval("pad"); ok {
		n.Pad = pad
	}
	if radius, ok := a.intval("radius"); ok {
		n.Radius = radius
	}
	if gap, ok := a.intval("gap"); ok {
		n.Gap = gap
	}

	if bw, ok := a.intval("border_w"); ok {
		n.BorderW = bw
	}
	if c, ok := a.str("border_color"); ok {
		if col, err := parseColor(c); err != nil {
			issues = append(issues, err.Error())
		} else {
			n.BorderColor = col
		}
	}

	if c, ok := a.str("text_color"); ok {
		if col, err := parseColor(c); err != nil {
			issues = append(issues, err.Error())
		} else {
			n.TextColor = col
			n.HasTextCol = true
		}
	}
	if size, ok := a.intval("font_size"); ok {
		n.FontSize = nearestFont(size)
	}

	if sw, ok := a.intval("shadow_w"); ok {
		n.ShadowW = sw
	}
	if c, ok := a.str("shadow_color"); ok {
		if col, err := parseColor(c); err != nil {
			issues = append(issues, err.Error())
		} else {
			n.ShadowColor = col
		}
	}

	if opa, ok := a.intval("opa"); ok {
		n.Opacity = clampOpacity(opa)
	}
	if hidden, ok := a.boolean("hidden"); ok {
		n.Hidden = hidden
	}

	return issues
}

func clampOpacity(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
