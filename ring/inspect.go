package ring

import (
	"fmt"

	"lumen/microkit"
)

// Verdict classifies a channel header as seen by an outside observer.
type Verdict uint8

const (
	VerdictReady Verdict = iota
	VerdictNotReady
	VerdictPoisoned
)

func (v Verdict) String() string {
	switch v {
	case VerdictReady:
		return "ready"
	case VerdictNotReady:
		return "not ready"
	case VerdictPoisoned:
		return "poisoned"
	default:
		return "unknown"
	}
}

// State is a diagnostic snapshot of a channel header. It is read without
// holding either role and so may be transiently inconsistent on a live
// channel; it exists for the ringdump tool and for stats lines, not for
// the data path.
type State struct {
	Capacity   uint32
	WriteIndex uint64
	ReadIndex  uint64
	Occupancy  uint64
	Verdict    Verdict
}

// Inspect reads a channel header from a region.
func Inspect(r *microkit.Region) (State, error) {
	capWord, err := r.AtomicU32(offCapacity)
	if err != nil {
		return State{}, err
	}
	wr, err := r.AtomicU64(offWriteIndex)
	if err != nil {
		return State{}, err
	}
	rd, err := r.AtomicU64(offReadIndex)
	if err != nil {
		return State{}, err
	}

	s := State{
		Capacity:   capWord.Load(),
		WriteIndex: wr.Load(),
		ReadIndex:  rd.Load(),
	}
	s.Occupancy = s.WriteIndex - s.ReadIndex

	switch {
	case s.Capacity == 0:
		s.Verdict = VerdictNotReady
	case s.Occupancy > uint64(s.Capacity):
		s.Verdict = VerdictPoisoned
	default:
		s.Verdict = VerdictReady
	}
	return s, nil
}

// DumpEntries returns copies of the unconsumed entry slots in FIFO order.
// Only meaningful on a quiescent channel (a snapshot file, or a system
// stopped for debugging).
func DumpEntries(r *microkit.Region, entrySize int) ([][]byte, error) {
	s, err := Inspect(r)
	if err != nil {
		return nil, err
	}
	if s.Verdict != VerdictReady {
		return nil, fmt.Errorf("ring: cannot dump entries: channel %s", s.Verdict)
	}
	if entrySize <= 0 || entrySize > MaxEntryBytes {
		return nil, fmt.Errorf("ring: invalid entry size %d", entrySize)
	}
	if need := RegionBytes(int(s.Capacity), entrySize); r.Size() < need {
		return nil, fmt.Errorf("ring: region of %d bytes too small for declared capacity %d", r.Size(), s.Capacity)
	}

	out := make([][]byte, 0, s.Occupancy)
	for idx := s.ReadIndex; idx != s.WriteIndex; idx++ {
		pos := int(idx % uint64(s.Capacity))
		slot, err := r.Bytes(HeaderBytes+pos*entrySize, entrySize)
		if err != nil {
			return nil, err
		}
		cp := make([]byte, entrySize)
		copy(cp, slot)
		out = append(out, cp)
	}
	return out, nil
}
