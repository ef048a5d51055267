package microkit

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrRegionEmpty reports a zero-length region descriptor.
	ErrRegionEmpty = errors.New("microkit: empty region")
	// ErrRegionUnaligned reports a region base not aligned for atomic access.
	ErrRegionUnaligned = errors.New("microkit: region base not 8-byte aligned")
)

// Region is a bounds-checked view over a statically granted shared-memory
// region. All access to shared memory goes through it: byte windows for
// entry slots and aligned atomic words for protocol counters. Offsets that
// fall outside the grant are rejected structurally, never wrapped.
type Region struct {
	b []byte
}

// NewRegion wraps a mapped byte region.
//
// The base must be 8-byte aligned so counter words can be accessed
// atomically on every supported architecture.
func NewRegion(b []byte) (*Region, error) {
	if len(b) == 0 {
		return nil, ErrRegionEmpty
	}
	if uintptr(unsafe.Pointer(&b[0]))%8 != 0 {
		return nil, ErrRegionUnaligned
	}
	return &Region{b: b}, nil
}

// Size returns the region length in bytes.
func (r *Region) Size() int { return len(r.b) }

// Bytes returns a window of n bytes at off.
func (r *Region) Bytes(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(r.b) {
		return nil, fmt.Errorf("microkit: range [%#x,%#x) outside region of %#x bytes", off, off+n, len(r.b))
	}
	return r.b[off : off+n : off+n], nil
}

// AtomicU32 returns an atomic view of the 4-byte word at off.
func (r *Region) AtomicU32(off int) (*atomic.Uint32, error) {
	if off < 0 || off%4 != 0 || off+4 > len(r.b) {
		return nil, fmt.Errorf("microkit: bad u32 offset %#x in region of %#x bytes", off, len(r.b))
	}
	return (*atomic.Uint32)(unsafe.Pointer(&r.b[off])), nil
}

// AtomicU64 returns an atomic view of the 8-byte word at off.
func (r *Region) AtomicU64(off int) (*atomic.Uint64, error) {
	if off < 0 || off%8 != 0 || off+8 > len(r.b) {
		return nil, fmt.Errorf("microkit: bad u64 offset %#x in region of %#x bytes", off, len(r.b))
	}
	return (*atomic.Uint64)(unsafe.Pointer(&r.b[off])), nil
}
