package ring

import (
	"fmt"

	"lumen/microkit"
)

// Codec defines the fixed wire layout of one entry type. Encode must be
// total over valid events (oversize payloads are truncated or rejected
// before push, never written as corrupt bytes); Decode must validate
// discriminant and length fields before trusting payload bytes, since
// the producing domain may be the less trusted one.
type Codec[E any] interface {
	// EntrySize returns the fixed slot size, sized to the worst-case
	// payload.
	EntrySize() int
	// Encode writes e into dst, which is exactly EntrySize bytes.
	Encode(dst []byte, e E)
	// Decode parses src, which is exactly EntrySize bytes.
	Decode(src []byte) (E, error)
}

// NotifyPolicy selects when a successful push rings the peer's doorbell.
// Both policies are correct; the doorbell is a pure wakeup hint and the
// consumer always drains by polling.
type NotifyPolicy uint8

const (
	// NotifyEveryPush rings after each published entry.
	NotifyEveryPush NotifyPolicy = iota
	// NotifyOnNonEmpty rings only when the channel leaves empty,
	// trading wakeups for latency on already-busy channels.
	NotifyOnNonEmpty
)

// Producer is the publish side of a channel. Exactly one domain holds it,
// enforced by the produce right on the region capability.
type Producer[E any] struct {
	ch     channel
	codec  Codec[E]
	bell   microkit.NotifyCap
	policy NotifyPolicy
}

// NewProducer binds the producer role to a channel region.
//
// The header may not be published yet; TryPush reports ErrNotReady until
// it is.
func NewProducer[E any](cap microkit.RegionCap, codec Codec[E], bell microkit.NotifyCap, policy NotifyPolicy) (*Producer[E], error) {
	r, ok := cap.View(microkit.RightProduce)
	if !ok {
		return nil, ErrNoCapability
	}
	size := codec.EntrySize()
	if size <= 0 || size > MaxEntryBytes {
		return nil, fmt.Errorf("ring: invalid entry size %d", size)
	}
	return &Producer[E]{
		ch:     channel{region: r, entrySize: size},
		codec:  codec,
		bell:   bell,
		policy: policy,
	}, nil
}

// TryPush publishes one entry.
//
// A full channel returns (false, nil): unread data is never overwritten
// and nothing blocks. The caller decides the drop policy. A non-nil
// error is ErrNotReady (retry next wakeup) or ErrPoisoned (stop).
func (p *Producer[E]) TryPush(e E) (bool, error) {
	if err := p.ch.attach(); err != nil {
		return false, err
	}
	occ, err := p.ch.occupancy()
	if err != nil {
		return false, err
	}
	if occ == p.ch.capacity {
		return false, nil
	}

	wr := p.ch.wr.Load()
	slot, err := p.ch.slot(wr)
	if err != nil {
		return false, err
	}
	p.codec.Encode(slot, e)

	// The atomic store is the publish barrier: the payload write above
	// is observable before the new index is.
	p.ch.wr.Store(wr + 1)

	if p.bell.Valid() && (p.policy == NotifyEveryPush || occ == 0) {
		p.bell.Notify()
	}
	return true, nil
}

// Occupancy returns the current published-but-unconsumed entry count.
func (p *Producer[E]) Occupancy() (uint64, error) {
	if err := p.ch.attach(); err != nil {
		return 0, err
	}
	return p.ch.occupancy()
}
