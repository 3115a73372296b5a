package layout

import (
	"encoding/base64"
	"fmt"
)

// buildImage decodes the Base64 RGB565 pixel data for an image node and
// reserves its buffer in the PSRAM region. A failed reservation or decode
// leaves the widget in place without pixels; the buffer is released through
// the node's deletion hook.
func (e *Engine) buildImage(n *Node, a attrs) {
	src, _ := a.str("src")
	imgW, _ := a.intval("img_w")
	imgH, _ := a.intval("img_h")

	if src == "" || imgW <= 0 || imgH <= 0 {
		e.logger.Warn("Image without usable source", "id", n.ID, "img_w", imgW, "img_h", imgH)
		return
	}

	pixels, err := base64.StdEncoding.DecodeString(src)
	if err != nil {
		e.logger.Warn("Image source is not valid Base64", "id", n.ID, "error", err)
		return
	}
	if len(pixels) != imgW*imgH*2 {
		e.logger.Warn("Image pixel data does not match dimensions",
			"id", n.ID, "bytes", len(pixels), "expected", imgW*imgH*2)
		return
	}

	if e.psram != nil {
		allocName := fmt.Sprintf("img_%s_%d", n.ID, e.allocSeq)
		e.allocSeq++
		if err := e.psram.Alloc(allocName, int64(len(pixels))); err != nil {
			e.logger.Warn("Image buffer reservation failed, widget created without pixels",
				"id", n.ID, "bytes", len(pixels), "error", err)
			return
		}
		region := e.psram
		n.addDeleteHook(func() { region.Free(allocName) })
	}

	n.Pixels = pixels
	n.ImgW = imgW
	n.ImgH = imgH
}
