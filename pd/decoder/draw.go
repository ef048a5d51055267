package decoder

import (
	"encoding/binary"
	"image"

	"lumen/hal"
)

// scaleInto nearest-neighbor scales img into the RGB565 buffer,
// preserving aspect ratio with black letterboxing.
func (p *PD) scaleInto(img image.Image, dst []byte) {
	for i := range dst {
		dst[i] = 0
	}

	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return
	}

	// Fit rectangle inside the target.
	dw, dh := p.width, p.height
	if sw*dh > sh*dw {
		dh = sh * dw / sw
	} else {
		dw = sw * dh / sh
	}
	ox := (p.width - dw) / 2
	oy := (p.height - dh) / 2

	stride := p.width * 2
	for y := 0; y < dh; y++ {
		sy := b.Min.Y + y*sh/dh
		row := (oy + y) * stride
		for x := 0; x < dw; x++ {
			sx := b.Min.X + x*sw/dw
			r, g, bb, _ := img.At(sx, sy).RGBA()
			pix := hal.RGB565(uint8(r>>8), uint8(g>>8), uint8(bb>>8))
			binary.LittleEndian.PutUint16(dst[row+(ox+x)*2:], pix)
		}
	}
}

// testCard fills the buffer with color bars, the device fallback raster.
func (p *PD) testCard(dst []byte) {
	bars := [...][3]uint8{
		{0xEE, 0xEE, 0xEE},
		{0xEE, 0xEE, 0x00},
		{0x00, 0xEE, 0xEE},
		{0x00, 0xEE, 0x00},
		{0xEE, 0x00, 0xEE},
		{0xEE, 0x00, 0x00},
		{0x00, 0x00, 0xEE},
	}

	stride := p.width * 2
	for y := 0; y < p.height; y++ {
		row := y * stride
		for x := 0; x < p.width; x++ {
			c := bars[x*len(bars)/p.width]
			pix := hal.RGB565(c[0], c[1], c[2])
			binary.LittleEndian.PutUint16(dst[row+x*2:], pix)
		}
	}
}

// errorCard marks an undecodable source: a dim red field.
func (p *PD) errorCard(dst []byte) {
	pix := hal.RGB565(0x80, 0x10, 0x10)
	lo := byte(pix)
	hi := byte(pix >> 8)
	for i := 0; i+1 < len(dst); i += 2 {
		dst[i] = lo
		dst[i+1] = hi
	}
}
