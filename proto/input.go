package proto

import (
	"encoding/binary"

	"lumen/hal"
)

// Input channel wire layout, 4 bytes per entry:
//
//	0x00 event_type u8   0 = key down, 1 = key up
//	0x01 key_code   u16le
//	0x03 reserved   u8
const inputEntrySize = 4

const (
	eventKeyDown = 0
	eventKeyUp   = 1
)

// KeyEvent is one key state change from the input domain.
type KeyEvent struct {
	Code    hal.KeyCode
	Pressed bool
}

// KeyEventCodec carries KeyEvent entries on the input channel.
type KeyEventCodec struct{}

func (KeyEventCodec) EntrySize() int { return inputEntrySize }

func (KeyEventCodec) Encode(dst []byte, e KeyEvent) {
	if e.Pressed {
		dst[0] = eventKeyDown
	} else {
		dst[0] = eventKeyUp
	}
	binary.LittleEndian.PutUint16(dst[1:3], uint16(e.Code))
	dst[3] = 0
}

func (KeyEventCodec) Decode(src []byte) (KeyEvent, error) {
	var e KeyEvent
	switch src[0] {
	case eventKeyDown:
		e.Pressed = true
	case eventKeyUp:
		e.Pressed = false
	default:
		return KeyEvent{}, decodeErr(ErrBadEventType, uint32(src[0]))
	}

	code := binary.LittleEndian.Uint16(src[1:3])
	if code > uint16(hal.KeyCodeMax) {
		return KeyEvent{}, decodeErr(ErrBadKeyCode, uint32(code))
	}
	e.Code = hal.KeyCode(code)
	return e, nil
}
