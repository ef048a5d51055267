// Package app is the trusted system wiring: it allocates the shared
// regions, runs the one-time header initialization, mints asymmetric
// capabilities per domain, and starts the domain runtime. It is the only
// code that ever holds a full-rights capability.
package app

import (
	"context"
	"sync/atomic"

	"lumen/hal"
	"lumen/microkit"
	"lumen/pd/decoder"
	"lumen/pd/display"
	"lumen/pd/input"
	"lumen/pd/netdrv"
	"lumen/proto"
	"lumen/ring"
)

// Channel geometry. Input is shallow (key events coalesce), commands are
// tiny, frames are packet-sized so the rings stay modest.
const (
	inputSlots = 64
	cmdSlots   = 8
	frameSlots = 16
)

// Config selects the slideshow content and pacing.
type Config struct {
	Playlist      []decoder.Source
	IntervalTicks uint64
}

// New initializes and starts the system with default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// Run starts the system and blocks forever (device entrypoint).
func Run(h hal.HAL) {
	_ = New(h)
	select {}
}

// NewWithConfig initializes and starts the system. The returned step
// function reports a stopped runtime; the host runners call it once per
// frame.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	sys, err := newSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return sys.step
}

type system struct {
	runErr atomic.Value
}

func (s *system) step() error {
	if err, ok := s.runErr.Load().(error); ok {
		return err
	}
	return nil
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	log := h.Logger()
	fb := h.Display().Framebuffer()

	playlist := cfg.Playlist
	if len(playlist) == 0 {
		playlist = builtinPlaylist(fb.Width(), fb.Height())
	}

	var (
		keyCodec   proto.KeyEventCodec
		cmdCodec   proto.CommandCodec
		frameCodec proto.FrameCodec
	)

	// One region per channel, zeroed and header-published before any
	// domain runs.
	inputCh, err := newChannel(inputSlots, keyCodec.EntrySize())
	if err != nil {
		return nil, err
	}
	reqCh, err := newChannel(cmdSlots, cmdCodec.EntrySize())
	if err != nil {
		return nil, err
	}
	doneCh, err := newChannel(cmdSlots, cmdCodec.EntrySize())
	if err != nil {
		return nil, err
	}
	rxCh, err := newChannel(frameSlots, frameCodec.EntrySize())
	if err != nil {
		return nil, err
	}
	txCh, err := newChannel(frameSlots, frameCodec.EntrySize())
	if err != nil {
		return nil, err
	}
	pixCap, err := newPixelRegion(fb.Width(), fb.Height())
	if err != nil {
		return nil, err
	}

	// Doorbells exist before the domains so notify capabilities can be
	// minted into the producers.
	displayBell := microkit.NewDoorbell()
	decoderBell := microkit.NewDoorbell()
	netBell := microkit.NewDoorbell()
	inputBell := microkit.NewDoorbell()

	inputProd, err := ring.NewProducer[proto.KeyEvent](inputCh.produce, keyCodec,
		microkit.GrantNotify(displayBell, display.ChInput), ring.NotifyEveryPush)
	if err != nil {
		return nil, err
	}
	inputCons, err := ring.NewConsumer[proto.KeyEvent](inputCh.consume, keyCodec)
	if err != nil {
		return nil, err
	}

	reqProd, err := ring.NewProducer[proto.Command](reqCh.produce, cmdCodec,
		microkit.GrantNotify(decoderBell, decoder.ChReq), ring.NotifyEveryPush)
	if err != nil {
		return nil, err
	}
	reqCons, err := ring.NewConsumer[proto.Command](reqCh.consume, cmdCodec)
	if err != nil {
		return nil, err
	}

	doneProd, err := ring.NewProducer[proto.Command](doneCh.produce, cmdCodec,
		microkit.GrantNotify(displayBell, display.ChPhoto), ring.NotifyEveryPush)
	if err != nil {
		return nil, err
	}
	doneCons, err := ring.NewConsumer[proto.Command](doneCh.consume, cmdCodec)
	if err != nil {
		return nil, err
	}

	rxProd, err := ring.NewProducer[proto.Frame](rxCh.produce, frameCodec,
		microkit.GrantNotify(displayBell, display.ChNetRX), ring.NotifyOnNonEmpty)
	if err != nil {
		return nil, err
	}
	rxCons, err := ring.NewConsumer[proto.Frame](rxCh.consume, frameCodec)
	if err != nil {
		return nil, err
	}

	txProd, err := ring.NewProducer[proto.Frame](txCh.produce, frameCodec,
		microkit.GrantNotify(netBell, netdrv.ChTX), ring.NotifyEveryPush)
	if err != nil {
		return nil, err
	}
	txCons, err := ring.NewConsumer[proto.Frame](txCh.consume, frameCodec)
	if err != nil {
		return nil, err
	}

	pixWriter, err := proto.NewPixelWriter(pixCap.Restrict(microkit.RightProduce))
	if err != nil {
		return nil, err
	}
	pixReader, err := proto.NewPixelReader(pixCap.Restrict(microkit.RightConsume))
	if err != nil {
		return nil, err
	}

	inputPD := input.New(log, inputProd)
	decoderPD := decoder.New(log, reqCons, doneProd, pixWriter, playlist, fb.Width(), fb.Height())
	netPD := netdrv.New(log, h.Network(), txCons, rxProd)
	displayPD := display.New(log, h.Display(),
		display.Config{IntervalTicks: cfg.IntervalTicks, PlaylistLen: len(playlist)},
		inputCons, doneCons, rxCons, pixReader, reqProd, txProd)

	rt := microkit.NewRuntime()
	rt.Attach("input", inputPD, inputBell)
	rt.Attach("decoder", decoderPD, decoderBell)
	rt.Attach("netdrv", netPD, netBell)
	rt.Attach("display", displayPD, displayBell)

	sys := &system{}
	ctx := context.Background()

	// Device sources: key events and ticks arrive as doorbells, never
	// as data.
	if in := h.Input(); in != nil {
		if kbd := in.Keyboard(); kbd != nil {
			if events := kbd.Events(); events != nil {
				go func() {
					for ev := range events {
						inputPD.Enqueue(ev)
						inputBell.Notify(input.ChIRQ)
					}
				}()
			}
		}
	}
	if ht := h.Time(); ht != nil {
		if ticks := ht.Ticks(); ticks != nil {
			go func() {
				for seq := range ticks {
					displayPD.PushTick(seq)
					displayBell.Notify(display.ChTick)
					netBell.Notify(netdrv.ChTick)
				}
			}()
		}
	}

	go func() {
		if err := rt.Run(ctx); err != nil && err != context.Canceled {
			sys.runErr.Store(err)
		}
	}()

	return sys, nil
}

// channelCaps is one initialized ring region with its two role
// capabilities.
type channelCaps struct {
	produce microkit.RegionCap
	consume microkit.RegionCap
}

func newChannel(capacity, entrySize int) (channelCaps, error) {
	r, err := microkit.NewRegion(make([]byte, ring.RegionBytes(capacity, entrySize)))
	if err != nil {
		return channelCaps{}, err
	}
	full := microkit.GrantRegion(r, microkit.RightProduce|microkit.RightConsume|microkit.RightInit)
	if err := ring.Init(full.Restrict(microkit.RightInit), capacity, entrySize); err != nil {
		return channelCaps{}, err
	}
	return channelCaps{
		produce: full.Restrict(microkit.RightProduce),
		consume: full.Restrict(microkit.RightConsume),
	}, nil
}

func newPixelRegion(width, height int) (microkit.RegionCap, error) {
	r, err := microkit.NewRegion(make([]byte, proto.PixelHeaderBytes+width*height*2))
	if err != nil {
		return microkit.RegionCap{}, err
	}
	return microkit.GrantRegion(r, microkit.RightProduce|microkit.RightConsume), nil
}
