// Package proto defines the fixed entry layouts that cross the isolation
// boundary: key input, network frames, slideshow commands, and the bulk
// pixel handshake. Every decoder validates discriminants and length
// fields before trusting payload bytes, since the producing side may be
// the less trusted domain.
package proto

import "fmt"

// DecodeErrKind categorizes why an entry was rejected.
type DecodeErrKind uint8

const (
	ErrBadEventType DecodeErrKind = iota + 1
	ErrBadKeyCode
	ErrBadLength
	ErrBadOpcode
	ErrBadPixelState
	ErrBadPixelDims
)

func (k DecodeErrKind) String() string {
	switch k {
	case ErrBadEventType:
		return "bad_event_type"
	case ErrBadKeyCode:
		return "bad_key_code"
	case ErrBadLength:
		return "bad_length"
	case ErrBadOpcode:
		return "bad_opcode"
	case ErrBadPixelState:
		return "bad_pixel_state"
	case ErrBadPixelDims:
		return "bad_pixel_dims"
	default:
		return "unknown"
	}
}

// DecodeError rejects a single malformed entry. It is channel-local and
// recoverable: the consumer skips the entry, counts it, and keeps
// draining.
type DecodeError struct {
	Kind  DecodeErrKind
	Value uint32
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("proto: %s (value %#x)", e.Kind, e.Value)
}

func decodeErr(kind DecodeErrKind, value uint32) error {
	return &DecodeError{Kind: kind, Value: value}
}
