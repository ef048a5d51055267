//go:build !tinygo

package app

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"lumen/pd/decoder"
)

// builtinPlaylist renders a few demo slides when no content is supplied,
// encoded as PNG so the decoder domain exercises its real decode path.
func builtinPlaylist(w, h int) []decoder.Source {
	patterns := []struct {
		name string
		at   func(x, y int) color.RGBA
	}{
		{"gradient", func(x, y int) color.RGBA {
			return color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 0x60, A: 0xFF}
		}},
		{"rings", func(x, y int) color.RGBA {
			dx, dy := x-w/2, y-h/2
			d := dx*dx + dy*dy
			v := uint8((d / 64) % 2 * 200)
			return color.RGBA{R: v, G: uint8(255 - int(v)), B: 0x80, A: 0xFF}
		}},
		{"checker", func(x, y int) color.RGBA {
			if (x/32+y/32)%2 == 0 {
				return color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xFF}
			}
			return color.RGBA{R: 0xD0, G: 0xD0, B: 0xD0, A: 0xFF}
		}},
	}

	out := make([]decoder.Source, 0, len(patterns))
	for i, p := range patterns {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetRGBA(x, y, p.at(x, y))
			}
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			continue
		}
		out = append(out, decoder.Source{
			Name: fmt.Sprintf("%d-%s.png", i+1, p.name),
			Data: buf.Bytes(),
		})
	}
	return out
}
