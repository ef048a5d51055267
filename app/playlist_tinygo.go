//go:build tinygo

package app

import "lumen/pd/decoder"

// builtinPlaylist on device targets names test-card slides; the decoder
// rasterizes them without stdlib image support.
func builtinPlaylist(w, h int) []decoder.Source {
	_ = w
	_ = h
	return []decoder.Source{
		{Name: "testcard-1"},
		{Name: "testcard-2"},
		{Name: "testcard-3"},
	}
}
