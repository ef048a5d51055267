// Package netdrv is the network-facing protection domain: it owns the
// packet transport and bridges it to the two net channels. A full-duplex
// link is two independent rings: TX (toward the wire) consumed here,
// RX (from the wire) produced here.
package netdrv

import (
	"encoding/binary"

	"lumen/hal"
	"lumen/microkit"
	"lumen/proto"
	"lumen/ring"
)

// Notification channels of the network domain.
const (
	// ChTX is raised by the peer after it publishes outbound frames.
	ChTX microkit.Channel = 0
	// ChTick schedules the receive poll.
	ChTick microkit.Channel = 1
)

// wireHeaderSize prefixes each transport packet with the frame flags.
const wireHeaderSize = 2

// rxBudget bounds how many packets one tick drains from the device.
const rxBudget = 8

// PD moves frames between the transport and the net rings.
type PD struct {
	log hal.Logger
	net hal.Network

	tx *ring.Consumer[proto.Frame]
	rx *ring.Producer[proto.Frame]

	pkt [wireHeaderSize + proto.FrameMTU]byte

	rxDropped uint64
	txCorrupt uint64
	sendErrs  uint64
	txDead    bool
	rxDead    bool
}

// New creates the network domain over net, consuming tx and producing rx.
func New(log hal.Logger, net hal.Network, tx *ring.Consumer[proto.Frame], rx *ring.Producer[proto.Frame]) *PD {
	return &PD{log: log, net: net, tx: tx, rx: rx}
}

// Notified handles one wakeup.
func (p *PD) Notified(ch microkit.Channel) {
	switch ch {
	case ChTX:
		p.drainTX()
	case ChTick:
		p.pollRX()
	}
}

func (p *PD) drainTX() {
	if p.txDead {
		return
	}
	for {
		f, ok, err := p.tx.TryPop()
		if err == ring.ErrNotReady {
			return
		}
		if err != nil {
			if _, isDecode := err.(*proto.DecodeError); isDecode {
				// One bad entry; the channel itself is healthy.
				p.txCorrupt++
				continue
			}
			p.txDead = true
			p.logf("netdrv: tx channel fault: " + err.Error())
			return
		}
		if !ok {
			return
		}
		if err := p.send(f); err != nil {
			p.sendErrs++
		}
	}
}

func (p *PD) send(f proto.Frame) error {
	binary.LittleEndian.PutUint16(p.pkt[0:2], f.Flags)
	n := copy(p.pkt[wireHeaderSize:], f.Data)
	return p.net.Send(p.pkt[:wireHeaderSize+n])
}

func (p *PD) pollRX() {
	if p.rxDead {
		return
	}
	for i := 0; i < rxBudget; i++ {
		n, err := p.net.Recv(p.pkt[:])
		if err != nil || n == 0 {
			return
		}
		if n < wireHeaderSize {
			continue
		}

		f, err := proto.NewFrame(binary.LittleEndian.Uint16(p.pkt[0:2]), p.pkt[wireHeaderSize:n])
		if err != nil {
			// Oversize on the wire; never forwarded as corrupt bytes.
			p.rxDropped++
			continue
		}
		ok, err := p.rx.TryPush(f)
		if err == ring.ErrNotReady {
			p.rxDropped++
			return
		}
		if err != nil {
			p.rxDead = true
			p.logf("netdrv: rx channel fault: " + err.Error())
			return
		}
		if !ok {
			p.rxDropped++
		}
	}
}

// Stats returns (dropped RX packets, corrupt TX entries, send errors).
func (p *PD) Stats() (uint64, uint64, uint64) {
	return p.rxDropped, p.txCorrupt, p.sendErrs
}

func (p *PD) logf(s string) {
	if p.log != nil {
		p.log.WriteLineString(s)
	}
}
