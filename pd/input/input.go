// Package input is the input-driver protection domain: it owns the key
// device and is the sole producer of the input channel.
package input

import (
	"lumen/hal"
	"lumen/microkit"
	"lumen/proto"
	"lumen/ring"
)

// ChIRQ is raised by the key device when events are pending.
const ChIRQ microkit.Channel = 0

const fifoSlots = 64

// PD encodes key state changes and publishes them on the input channel.
type PD struct {
	log  hal.Logger
	prod *ring.Producer[proto.KeyEvent]

	// Device FIFO between the interrupt source and the domain loop.
	fifo chan hal.KeyEvent

	// Retained newest event dropped on a full channel: for key input
	// only the latest state per wakeup matters, so it is retried
	// before anything newer on the next drain.
	retained   *proto.KeyEvent
	dropped    uint64
	dead       bool
	deadLogged bool
}

// New creates the input domain publishing on prod.
func New(log hal.Logger, prod *ring.Producer[proto.KeyEvent]) *PD {
	return &PD{
		log:  log,
		prod: prod,
		fifo: make(chan hal.KeyEvent, fifoSlots),
	}
}

// Enqueue hands one device event to the domain. Called from the
// interrupt source before raising ChIRQ; never blocks.
func (p *PD) Enqueue(ev hal.KeyEvent) {
	select {
	case p.fifo <- ev:
	default:
		p.dropped++
	}
}

// Dropped returns how many events never made it across the boundary.
func (p *PD) Dropped() uint64 { return p.dropped }

// Notified drains the device FIFO into the input channel.
func (p *PD) Notified(ch microkit.Channel) {
	if ch != ChIRQ || p.dead {
		return
	}

	if p.retained != nil {
		if !p.push(*p.retained) {
			return
		}
		p.retained = nil
	}

	for {
		select {
		case ev := <-p.fifo:
			e := proto.KeyEvent{Code: ev.Code, Pressed: ev.Press}
			if !p.push(e) {
				return
			}
		default:
			return
		}
	}
}

// push publishes one event, returning false when the domain should stop
// draining for this wakeup.
func (p *PD) push(e proto.KeyEvent) bool {
	ok, err := p.prod.TryPush(e)
	switch {
	case err == ring.ErrNotReady:
		// Startup race: keep the event and retry next wakeup.
		p.retained = &e
		return false
	case err != nil:
		p.dead = true
		if !p.deadLogged {
			p.deadLogged = true
			if p.log != nil {
				p.log.WriteLineString("input: channel fault: " + err.Error())
			}
		}
		return false
	case !ok:
		// Full channel: newest state wins, older retained state is
		// superseded.
		p.retained = &e
		p.dropped++
		return false
	}
	return true
}
