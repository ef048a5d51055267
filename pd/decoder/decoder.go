// Package decoder is the image-decoder protection domain. It is treated
// as the least trusted domain in the system: everything it publishes,
// commands and pixel buffers alike, is re-validated by the display side.
package decoder

import (
	"lumen/hal"
	"lumen/microkit"
	"lumen/proto"
	"lumen/ring"
)

// ChReq is raised by the display domain after it publishes a request.
const ChReq microkit.Channel = 0

// Source is one playlist entry: encoded image bytes plus a display name.
type Source struct {
	Name string
	Data []byte
}

// PD serves decode requests: it rasterizes a playlist entry into the
// pixel handshake buffer and announces it on the done channel.
type PD struct {
	log hal.Logger

	req    *ring.Consumer[proto.Command]
	done   *ring.Producer[proto.Command]
	pixels *proto.PixelWriter

	playlist []Source
	width    int
	height   int

	seq     uint32
	pending *proto.Command

	corrupt uint64
	dead    bool
}

// New creates the decoder domain. width and height are the target
// raster dimensions (the display panel size).
func New(log hal.Logger, req *ring.Consumer[proto.Command], done *ring.Producer[proto.Command], pixels *proto.PixelWriter, playlist []Source, width, height int) *PD {
	return &PD{
		log:      log,
		req:      req,
		done:     done,
		pixels:   pixels,
		playlist: playlist,
		width:    width,
		height:   height,
	}
}

// Playlist returns the number of entries served.
func (p *PD) Playlist() int { return len(p.playlist) }

// Notified drains the request channel, one decode per request. Requests
// arriving while a buffer is still unconsumed are retried next wakeup.
func (p *PD) Notified(ch microkit.Channel) {
	if ch != ChReq || p.dead {
		return
	}

	if p.pending != nil {
		if !p.serve(*p.pending) {
			return
		}
		p.pending = nil
	}

	for {
		cmd, ok, err := p.req.TryPop()
		if err == ring.ErrNotReady {
			return
		}
		if err != nil {
			if _, isDecode := err.(*proto.DecodeError); isDecode {
				p.corrupt++
				continue
			}
			p.dead = true
			p.logf("decoder: request channel fault: " + err.Error())
			return
		}
		if !ok {
			return
		}
		if cmd.Op != proto.OpShow {
			continue
		}
		if !p.serve(cmd) {
			p.pending = &cmd
			return
		}
	}
}

// serve rasterizes one request. It returns false when the pixel buffer
// is still owned by the display side.
func (p *PD) serve(cmd proto.Command) bool {
	idx := int(cmd.Arg)
	if idx >= len(p.playlist) {
		// Stale index from before a playlist change; drop it.
		return true
	}

	dst, err := p.pixels.Begin(p.width, p.height)
	if err == proto.ErrPixelBusy {
		return false
	}
	if err != nil {
		p.logf("decoder: " + err.Error())
		return true
	}

	p.rasterize(p.playlist[idx], dst)

	p.seq++
	if err := p.pixels.Publish(p.seq); err != nil {
		p.logf("decoder: " + err.Error())
		return true
	}

	ok, err := p.done.TryPush(proto.Command{Op: proto.OpBufferReady, Arg: cmd.Arg, Seq: p.seq})
	if err != nil && err != ring.ErrNotReady {
		p.dead = true
		p.logf("decoder: done channel fault: " + err.Error())
	}
	_ = ok
	return true
}

func (p *PD) logf(s string) {
	if p.log != nil {
		p.log.WriteLineString(s)
	}
}
