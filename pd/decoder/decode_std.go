//go:build !tinygo

package decoder

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// rasterize decodes src and scales it into the RGB565 buffer. Undecodable
// sources get the error card; the request still completes so the
// slideshow keeps moving.
func (p *PD) rasterize(src Source, dst []byte) {
	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		p.logf("decoder: " + src.Name + ": " + err.Error())
		p.errorCard(dst)
		return
	}
	p.scaleInto(img, dst)
}
