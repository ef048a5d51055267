package ring

import (
	"sync/atomic"

	"lumen/microkit"
)

// channel is the per-role attachment to a shared channel region. Both the
// producer and the consumer embed one; the role split lives in the
// endpoint types, not here.
type channel struct {
	region    *microkit.Region
	entrySize int

	// Set once attach succeeds.
	capacity uint64
	wr       *atomic.Uint64
	rd       *atomic.Uint64
	attached bool

	// Sticky: once an index-range violation is observed the channel is
	// never touched again.
	poisoned bool
}

// attach binds to the header once the trusted initializer has published
// it. Observing an unpublished header (capacity still zero) is a benign
// startup race: the caller backs off and retries next wakeup.
func (c *channel) attach() error {
	if c.poisoned {
		return ErrPoisoned
	}
	if c.attached {
		return nil
	}

	capWord, err := c.region.AtomicU32(offCapacity)
	if err != nil {
		return err
	}
	capacity := uint64(capWord.Load())
	if capacity == 0 {
		return ErrNotReady
	}

	if need := RegionBytes(int(capacity), c.entrySize); c.region.Size() < need {
		// A published capacity the grant cannot hold is not a race,
		// it is a corrupt or hostile header.
		c.poisoned = true
		return ErrPoisoned
	}

	if c.wr, err = c.region.AtomicU64(offWriteIndex); err != nil {
		return err
	}
	if c.rd, err = c.region.AtomicU64(offReadIndex); err != nil {
		return err
	}

	c.capacity = capacity
	c.attached = true
	return nil
}

// occupancy returns published-but-unconsumed entry count, poisoning the
// channel if the counters are out of range.
func (c *channel) occupancy() (uint64, error) {
	occ := c.wr.Load() - c.rd.Load()
	if occ > c.capacity {
		c.poisoned = true
		return 0, ErrPoisoned
	}
	return occ, nil
}

// slot returns the entry window for a monotonic index.
func (c *channel) slot(index uint64) ([]byte, error) {
	pos := int(index % c.capacity)
	b, err := c.region.Bytes(HeaderBytes+pos*c.entrySize, c.entrySize)
	if err != nil {
		c.poisoned = true
		return nil, ErrPoisoned
	}
	return b, nil
}
