// Package ring implements the cross-domain event channel: a lock-free
// single-producer/single-consumer ring over a capability-granted shared
// memory region.
//
// A channel is one header plus a fixed-capacity array of fixed-size entry
// slots. The producer owns the write counter, the consumer owns the read
// counter, and each side only ever reads the other's. Counters increase
// monotonically and are never wrapped to slot positions; occupancy is the
// wrapping difference, correct across counter wraparound as long as true
// occupancy never exceeds capacity. A full-duplex link is two independent
// channels, never one bidirectional structure.
package ring

import (
	"errors"
	"fmt"

	"lumen/microkit"
)

// Shared header layout. Counters are 8-byte aligned so both domains can
// access them atomically; entry slots follow immediately after.
const (
	offCapacity   = 0x00
	offWriteIndex = 0x08
	offReadIndex  = 0x10

	// HeaderBytes is the fixed size of the channel control block.
	HeaderBytes = 0x18
)

// MaxEntryBytes caps the per-entry slot size. Entries are plain data that
// cross the isolation boundary verbatim; anything bulk goes through a
// separate handshake region, not a ring.
const MaxEntryBytes = 4096

var (
	// ErrNotReady reports a header the trusted initializer has not
	// published yet. The caller retries on its next wakeup.
	ErrNotReady = errors.New("ring: channel not initialized")

	// ErrPoisoned reports an index-range violation: a compromised or
	// buggy peer, or a missed initialization. The channel must not be
	// touched again.
	ErrPoisoned = errors.New("ring: poisoned (index range violation)")

	// ErrNoCapability reports a region capability lacking the rights
	// the requested role needs.
	ErrNoCapability = errors.New("ring: capability does not grant role")
)

// RegionBytes returns the region size a channel of the given geometry
// needs.
func RegionBytes(capacity, entrySize int) int {
	return HeaderBytes + capacity*entrySize
}

// Init publishes a channel header: both counters zeroed, then the
// capacity stored. It runs exactly once per region, by the trusted
// system wiring, before either side's first access.
func Init(cap microkit.RegionCap, capacity, entrySize int) error {
	r, ok := cap.View(microkit.RightInit)
	if !ok {
		return ErrNoCapability
	}
	if capacity <= 0 {
		return fmt.Errorf("ring: invalid capacity %d", capacity)
	}
	if entrySize <= 0 || entrySize > MaxEntryBytes {
		return fmt.Errorf("ring: invalid entry size %d", entrySize)
	}
	if need := RegionBytes(capacity, entrySize); r.Size() < need {
		return fmt.Errorf("ring: region of %d bytes too small for %d entries of %d bytes", r.Size(), capacity, entrySize)
	}

	capWord, err := r.AtomicU32(offCapacity)
	if err != nil {
		return err
	}
	if capWord.Load() != 0 {
		return fmt.Errorf("ring: header already initialized (capacity %d)", capWord.Load())
	}
	wr, err := r.AtomicU64(offWriteIndex)
	if err != nil {
		return err
	}
	rd, err := r.AtomicU64(offReadIndex)
	if err != nil {
		return err
	}

	wr.Store(0)
	rd.Store(0)
	// Publishing the capacity is what makes the channel visible as ready.
	capWord.Store(uint32(capacity))
	return nil
}
