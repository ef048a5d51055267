//go:build tinygo

package decoder

// rasterize on device targets draws the test card: the stdlib image
// decoders are too heavy for the small targets this runs on.
// TODO: wire a streaming JPEG decoder once one fits the flash budget.
func (p *PD) rasterize(src Source, dst []byte) {
	_ = src
	p.testCard(dst)
}
