package microkit

import "sync/atomic"

// Channel identifies one notification line between two domains.
//
// Channel numbers are statically assigned by the system wiring, one per
// direction per domain pair.
type Channel uint8

// MaxChannels bounds the per-domain channel number space.
const MaxChannels = 32

// Doorbell is the receive side of a domain's notification lines.
//
// A notification is a single bit: raising an already-pending channel
// coalesces. The wake channel carries no data; it only schedules the
// domain, which must then poll every pending channel.
type Doorbell struct {
	pending atomic.Uint32
	wake    chan struct{}
}

// NewDoorbell creates a doorbell with no pending notifications.
func NewDoorbell() *Doorbell {
	return &Doorbell{wake: make(chan struct{}, 1)}
}

// Notify raises ch and schedules the owning domain.
func (d *Doorbell) Notify(ch Channel) {
	if ch >= MaxChannels {
		return
	}
	for {
		old := d.pending.Load()
		if d.pending.CompareAndSwap(old, old|1<<ch) {
			break
		}
	}
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Wake returns the coalesced wakeup channel.
func (d *Doorbell) Wake() <-chan struct{} { return d.wake }

// Collect atomically takes and clears the pending channel mask.
func (d *Doorbell) Collect() uint32 {
	return d.pending.Swap(0)
}

// NotifyCap grants the right to raise exactly one channel on a peer
// domain's doorbell. Like RegionCap it is opaque by construction.
type NotifyCap struct {
	d  *Doorbell
	ch Channel
}

// GrantNotify mints a notify capability for one channel on a doorbell.
func GrantNotify(d *Doorbell, ch Channel) NotifyCap {
	if d == nil || ch >= MaxChannels {
		return NotifyCap{}
	}
	return NotifyCap{d: d, ch: ch}
}

// Valid reports whether the capability is usable.
func (c NotifyCap) Valid() bool { return c.d != nil }

// Notify raises the channel. A no-op on an invalid capability.
func (c NotifyCap) Notify() {
	if c.d != nil {
		c.d.Notify(c.ch)
	}
}
