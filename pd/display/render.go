package display

import (
	"encoding/binary"
	"fmt"
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"lumen/hal"
	"lumen/proto"
)

var (
	colorFG     = color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}
	colorPause  = color.RGBA{R: 0xFF, G: 0xDD, B: 0x66, A: 0xFF}
	colorFault  = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	statusFont  = &proggy.TinySZ8pt7b
	statusInset = int16(4)
)

// fbDisplay adapts the framebuffer to the drivers.Displayer interface so
// tinyfont can draw on it.
type fbDisplay struct {
	fb hal.Framebuffer
}

var _ drivers.Displayer = fbDisplay{}

func (d fbDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	buf := d.fb.Buffer()
	if buf == nil {
		return
	}

	ix := int(x)
	iy := int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	pix := hal.RGB565(c.R, c.G, c.B)
	off := iy*d.fb.StrideBytes() + ix*2
	binary.LittleEndian.PutUint16(buf[off:], pix)
}

func (d fbDisplay) Display() error { return nil }

// blit copies one decoded frame onto the panel, centered, row by row.
func (p *PD) blit(frame proto.PixelFrame) {
	if p.fb == nil || p.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	buf := p.fb.Buffer()
	if buf == nil {
		return
	}

	w := frame.Width
	if w > p.fb.Width() {
		w = p.fb.Width()
	}
	h := frame.Height
	if h > p.fb.Height() {
		h = p.fb.Height()
	}
	ox := (p.fb.Width() - w) / 2 * 2
	oy := (p.fb.Height() - h) / 2

	dstStride := p.fb.StrideBytes()
	for y := 0; y < h; y++ {
		src := frame.Pix[y*frame.Stride : y*frame.Stride+w*2]
		dst := buf[(oy+y)*dstStride+ox:]
		copy(dst[:w*2], src)
	}
}

// present draws the status overlay and pushes the panel.
func (p *PD) present() {
	if p.fb == nil {
		return
	}

	d := fbDisplay{fb: p.fb}
	_, h := d.Size()

	text := fmt.Sprintf("%d/%d", p.slide+1, p.playlistLen)
	c := colorFG
	if p.paused {
		text += "  paused"
		c = colorPause
	}
	tinyfont.WriteLine(d, statusFont, statusInset, h-statusInset, text, c)
	_ = p.fb.Present()
}

// faultBanner paints the hard-fault strip for a poisoned channel. The
// fault is channel-local: the rest of the panel keeps updating.
func (p *PD) faultBanner(name string) {
	if p.fb == nil {
		return
	}
	buf := p.fb.Buffer()
	if buf == nil {
		return
	}

	pix := hal.RGB565(0xB0, 0x10, 0x10)
	stride := p.fb.StrideBytes()
	for y := 0; y < 14 && y < p.fb.Height(); y++ {
		row := buf[y*stride : y*stride+p.fb.Width()*2]
		for i := 0; i+1 < len(row); i += 2 {
			row[i] = byte(pix)
			row[i+1] = byte(pix >> 8)
		}
	}
	tinyfont.WriteLine(fbDisplay{fb: p.fb}, statusFont, statusInset, 10, "CHANNEL FAULT: "+name, colorFault)
	_ = p.fb.Present()
}
