package ring

import (
	"fmt"

	"lumen/microkit"
)

// Consumer is the drain side of a channel. Exactly one domain holds it,
// enforced by the consume right on the region capability.
//
// Consumers drain in a loop on each notification: one doorbell may cover
// several entries, and a doorbell with nothing behind it is a benign
// race, not an error.
type Consumer[E any] struct {
	ch      channel
	codec   Codec[E]
	scratch []byte
}

// NewConsumer binds the consumer role to a channel region.
func NewConsumer[E any](cap microkit.RegionCap, codec Codec[E]) (*Consumer[E], error) {
	r, ok := cap.View(microkit.RightConsume)
	if !ok {
		return nil, ErrNoCapability
	}
	size := codec.EntrySize()
	if size <= 0 || size > MaxEntryBytes {
		return nil, fmt.Errorf("ring: invalid entry size %d", size)
	}
	return &Consumer[E]{
		ch:      channel{region: r, entrySize: size},
		codec:   codec,
		scratch: make([]byte, size),
	}, nil
}

// TryPop drains one entry in FIFO order.
//
// An empty channel returns (zero, false, nil). A consumed but malformed
// entry returns (zero, true, err): the slot is skipped and the channel
// stays healthy, so the caller counts it and keeps draining. ErrNotReady
// and ErrPoisoned are returned with ok=false.
func (c *Consumer[E]) TryPop() (E, bool, error) {
	var zero E
	if err := c.ch.attach(); err != nil {
		return zero, false, err
	}

	// The occupancy load pairs with the producer's publishing store:
	// any entry it covers has its payload fully written.
	occ, err := c.ch.occupancy()
	if err != nil {
		return zero, false, err
	}
	if occ == 0 {
		return zero, false, nil
	}

	rd := c.ch.rd.Load()
	slot, err := c.ch.slot(rd)
	if err != nil {
		return zero, false, err
	}
	copy(c.scratch, slot)
	c.ch.rd.Store(rd + 1)

	e, err := c.codec.Decode(c.scratch)
	if err != nil {
		return zero, true, err
	}
	return e, true, nil
}

// Occupancy returns the current published-but-unconsumed entry count.
func (c *Consumer[E]) Occupancy() (uint64, error) {
	if err := c.ch.attach(); err != nil {
		return 0, err
	}
	return c.ch.occupancy()
}
