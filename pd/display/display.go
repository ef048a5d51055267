// Package display is the slideshow protection domain. It drains the
// input, photo and net channels on every doorbell, owns the slideshow
// state machine, and renders decoded pixel buffers to the framebuffer.
package display

import (
	"fmt"
	"sync/atomic"

	"lumen/hal"
	"lumen/microkit"
	"lumen/proto"
	"lumen/ring"
)

// Notification channels of the display domain.
const (
	// ChInput is raised by the input domain.
	ChInput microkit.Channel = 0
	// ChPhoto is raised by the decoder domain.
	ChPhoto microkit.Channel = 1
	// ChNetRX is raised by the network domain.
	ChNetRX microkit.Channel = 2
	// ChTick schedules slideshow timing.
	ChTick microkit.Channel = 3
)

const (
	// DefaultIntervalTicks auto-advances every 5 seconds.
	DefaultIntervalTicks = 5000

	minIntervalTicks  = 500
	intervalStepTicks = 500

	statsEveryTicks = 10000
)

// Config sets the slideshow parameters.
type Config struct {
	IntervalTicks uint64
	PlaylistLen   int
}

// PD is the display domain state. All fields are touched only from the
// domain's own event loop; the tick register is the one exception, a
// device register written by the timer source.
type PD struct {
	log hal.Logger
	fb  hal.Framebuffer

	input  *ring.Consumer[proto.KeyEvent]
	photo  *ring.Consumer[proto.Command]
	netRX  *ring.Consumer[proto.Frame]
	pixels *proto.PixelReader
	reqOut *ring.Producer[proto.Command]
	netTX  *ring.Producer[proto.Frame]

	now atomic.Uint64

	slide       int
	playlistLen int
	paused      bool
	interval    uint64
	lastAdvance uint64
	shownSeq    uint32
	requested   bool
	wantRequest bool

	inputDead bool
	photoDead bool
	netDead   bool

	corruptInput uint64
	corruptPhoto uint64
	corruptNet   uint64
	badPixels    uint64
	statsAt      uint64
}

// New creates the display domain.
func New(log hal.Logger, disp hal.Display, cfg Config,
	input *ring.Consumer[proto.KeyEvent],
	photo *ring.Consumer[proto.Command],
	netRX *ring.Consumer[proto.Frame],
	pixels *proto.PixelReader,
	reqOut *ring.Producer[proto.Command],
	netTX *ring.Producer[proto.Frame]) *PD {

	interval := cfg.IntervalTicks
	if interval == 0 {
		interval = DefaultIntervalTicks
	}
	var fb hal.Framebuffer
	if disp != nil {
		fb = disp.Framebuffer()
	}
	return &PD{
		log:         log,
		fb:          fb,
		input:       input,
		photo:       photo,
		netRX:       netRX,
		pixels:      pixels,
		reqOut:      reqOut,
		netTX:       netTX,
		playlistLen: cfg.PlaylistLen,
		interval:    interval,
	}
}

// Start clears the panel and requests the first slide.
func (p *PD) Start() error {
	if p.fb != nil {
		p.fb.ClearRGB(0, 0, 0)
		_ = p.fb.Present()
	}
	p.request(p.slide)
	return nil
}

// PushTick latches the current tick count. Written by the timer source
// before it raises ChTick; the latest value wins, matching a free-running
// counter register.
func (p *PD) PushTick(seq uint64) {
	p.now.Store(seq)
}

// Notified handles one coalesced wakeup per pending channel.
func (p *PD) Notified(ch microkit.Channel) {
	switch ch {
	case ChInput:
		p.drainInput()
	case ChPhoto:
		p.drainPhoto()
	case ChNetRX:
		p.drainNet()
	case ChTick:
		p.tick()
	}
}

func (p *PD) drainInput() {
	if p.inputDead {
		return
	}
	for {
		ev, ok, err := p.input.TryPop()
		if err == ring.ErrNotReady {
			return
		}
		if err != nil {
			if _, isDecode := err.(*proto.DecodeError); isDecode {
				p.corruptInput++
				continue
			}
			p.inputDead = true
			p.fault("input", err)
			return
		}
		if !ok {
			return
		}
		if ev.Pressed {
			p.handleKey(ev.Code)
		}
	}
}

func (p *PD) handleKey(code hal.KeyCode) {
	switch code {
	case hal.KeyRight, hal.KeyEnter:
		p.next()
	case hal.KeyLeft:
		p.prev()
	case hal.KeySpace:
		p.setPaused(!p.paused)
	case hal.KeyHome:
		p.show(0)
	case hal.KeyEnd:
		if p.playlistLen > 0 {
			p.show(p.playlistLen - 1)
		}
	case hal.KeyUp:
		p.setInterval(p.interval + intervalStepTicks)
	case hal.KeyDown:
		if p.interval > minIntervalTicks {
			p.setInterval(p.interval - intervalStepTicks)
		}
	case hal.KeyF1:
		p.sendStatus()
	}
}

func (p *PD) drainPhoto() {
	if p.photoDead {
		return
	}
	for {
		cmd, ok, err := p.photo.TryPop()
		if err == ring.ErrNotReady {
			return
		}
		if err != nil {
			if _, isDecode := err.(*proto.DecodeError); isDecode {
				p.corruptPhoto++
				continue
			}
			p.photoDead = true
			p.fault("photo", err)
			return
		}
		if !ok {
			return
		}
		if cmd.Op == proto.OpBufferReady {
			p.consumeBuffer(cmd)
		}
	}
}

// consumeBuffer copies one published pixel buffer onto the panel. The
// decoder is untrusted: dimensions are validated by the reader and a
// rejected header just counts against it.
func (p *PD) consumeBuffer(cmd proto.Command) {
	frame, ok, err := p.pixels.TryAcquire()
	if !ok {
		// Announced but not published: a decoder bug, not ours.
		if err == nil {
			p.badPixels++
		}
		return
	}
	if err != nil {
		p.badPixels++
		return
	}

	p.requested = false
	p.shownSeq = frame.Seq
	p.blit(frame)
	_ = p.pixels.Release()
	p.slide = int(cmd.Arg)
	p.present()
}

func (p *PD) drainNet() {
	if p.netDead {
		return
	}
	for {
		f, ok, err := p.netRX.TryPop()
		if err == ring.ErrNotReady {
			return
		}
		if err != nil {
			if _, isDecode := err.(*proto.DecodeError); isDecode {
				p.corruptNet++
				continue
			}
			p.netDead = true
			p.fault("net", err)
			return
		}
		if !ok {
			return
		}
		p.handleFrame(f)
	}
}

// handleFrame dispatches a received frame. Control frames carry one
// command entry as payload; everything else is counted and ignored
// (packet processing proper lives outside this domain).
func (p *PD) handleFrame(f proto.Frame) {
	if f.Flags&proto.FrameControl == 0 {
		return
	}
	var codec proto.CommandCodec
	if len(f.Data) < codec.EntrySize() {
		p.corruptNet++
		return
	}
	cmd, err := codec.Decode(f.Data[:codec.EntrySize()])
	if err != nil {
		p.corruptNet++
		return
	}
	p.apply(cmd)
}

// apply runs a remote-control command through the same state machine as
// local keys.
func (p *PD) apply(cmd proto.Command) {
	switch cmd.Op {
	case proto.OpNext:
		p.next()
	case proto.OpPrev:
		p.prev()
	case proto.OpShow:
		p.show(int(cmd.Arg))
	case proto.OpPause:
		p.setPaused(true)
	case proto.OpResume:
		p.setPaused(false)
	case proto.OpSetInterval:
		p.setInterval(uint64(cmd.Arg))
	}
}

func (p *PD) tick() {
	now := p.now.Load()

	if p.wantRequest {
		p.request(p.slide)
	}

	if !p.paused && p.playlistLen > 0 && !p.requested && now-p.lastAdvance >= p.interval {
		p.lastAdvance = now
		p.next()
	}

	if now-p.statsAt >= statsEveryTicks {
		p.statsAt = now
		p.logStats()
	}
}

func (p *PD) next() {
	if p.playlistLen == 0 {
		return
	}
	p.show((p.slide + 1) % p.playlistLen)
}

func (p *PD) prev() {
	if p.playlistLen == 0 {
		return
	}
	p.show((p.slide + p.playlistLen - 1) % p.playlistLen)
}

func (p *PD) show(idx int) {
	if p.playlistLen == 0 || idx < 0 || idx >= p.playlistLen {
		return
	}
	p.lastAdvance = p.now.Load()
	p.request(idx)
}

func (p *PD) setPaused(v bool) {
	p.paused = v
	p.present()
}

func (p *PD) setInterval(ticks uint64) {
	if ticks < minIntervalTicks {
		ticks = minIntervalTicks
	}
	p.interval = ticks
}

// request asks the decoder for a slide. A full request channel is benign
// back-pressure: the request is re-issued on the next tick.
func (p *PD) request(idx int) {
	ok, err := p.reqOut.TryPush(proto.Command{Op: proto.OpShow, Arg: uint16(idx)})
	if err == ring.ErrNotReady {
		p.wantRequest = true
		return
	}
	if err != nil {
		p.fault("photo request", err)
		return
	}
	if !ok {
		p.wantRequest = true
		return
	}
	p.wantRequest = false
	p.requested = true
}

// sendStatus publishes one status frame toward the network domain.
func (p *PD) sendStatus() {
	if p.netTX == nil {
		return
	}
	payload := fmt.Sprintf("lumen slide=%d/%d paused=%t", p.slide+1, p.playlistLen, p.paused)
	f, err := proto.NewFrame(0, []byte(payload))
	if err != nil {
		return
	}
	if _, err := p.netTX.TryPush(f); err != nil && err != ring.ErrNotReady {
		p.fault("net tx", err)
	}
}

func (p *PD) fault(name string, err error) {
	if p.log != nil {
		p.log.WriteLineString("display: " + name + " channel fault: " + err.Error())
	}
	p.faultBanner(name)
}

func (p *PD) logStats() {
	if p.log == nil {
		return
	}
	p.log.WriteLineString(fmt.Sprintf(
		"display: slide=%d/%d corrupt input=%d photo=%d net=%d pixels=%d",
		p.slide+1, p.playlistLen, p.corruptInput, p.corruptPhoto, p.corruptNet, p.badPixels))
}
