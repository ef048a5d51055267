package proto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"lumen/hal"
)

func decodeKindOf(t *testing.T, err error) DecodeErrKind {
	t.Helper()
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error %v is not a DecodeError", err)
	}
	return de.Kind
}

func TestKeyEventCodec_RoundTrip(t *testing.T) {
	tcs := []KeyEvent{
		{Code: hal.KeyUp, Pressed: true},
		{Code: hal.KeyUp, Pressed: false},
		{Code: hal.KeyEnter, Pressed: true},
		{Code: hal.KeyUnknown, Pressed: false},
		{Code: hal.KeyCodeMax, Pressed: true},
	}

	var codec KeyEventCodec
	buf := make([]byte, codec.EntrySize())
	for _, e := range tcs {
		codec.Encode(buf, e)
		got, err := codec.Decode(buf)
		if err != nil {
			t.Fatalf("Decode(%+v) error: %v", e, err)
		}
		if got != e {
			t.Fatalf("Decode(Encode(%+v)) = %+v", e, got)
		}
	}
}

func TestKeyEventCodec_RejectsBadEventType(t *testing.T) {
	var codec KeyEventCodec
	buf := make([]byte, codec.EntrySize())
	codec.Encode(buf, KeyEvent{Code: hal.KeyUp, Pressed: true})

	// A compromised producer writes a discriminant neither down nor up.
	buf[0] = 0xFF

	_, err := codec.Decode(buf)
	if err == nil {
		t.Fatal("Decode accepted event_type 0xFF; want rejection")
	}
	if kind := decodeKindOf(t, err); kind != ErrBadEventType {
		t.Fatalf("Decode kind = %s; want %s", kind, ErrBadEventType)
	}
}

func TestKeyEventCodec_RejectsBadKeyCode(t *testing.T) {
	var codec KeyEventCodec
	buf := make([]byte, codec.EntrySize())
	buf[0] = 0
	binary.LittleEndian.PutUint16(buf[1:3], uint16(hal.KeyCodeMax)+1)

	_, err := codec.Decode(buf)
	if kind := decodeKindOf(t, err); kind != ErrBadKeyCode {
		t.Fatalf("Decode kind = %s; want %s", kind, ErrBadKeyCode)
	}
}

func TestCommandCodec_RoundTrip(t *testing.T) {
	tcs := []Command{
		{Op: OpNext},
		{Op: OpShow, Arg: 7},
		{Op: OpSetInterval, Arg: 2500},
		{Op: OpBufferReady, Arg: 3, Seq: 0xDEADBEEF},
	}

	var codec CommandCodec
	buf := make([]byte, codec.EntrySize())
	for _, c := range tcs {
		codec.Encode(buf, c)
		got, err := codec.Decode(buf)
		if err != nil {
			t.Fatalf("Decode(%+v) error: %v", c, err)
		}
		if got != c {
			t.Fatalf("Decode(Encode(%+v)) = %+v", c, got)
		}
	}
}

func TestCommandCodec_RejectsBadOpcode(t *testing.T) {
	var codec CommandCodec
	buf := make([]byte, codec.EntrySize())

	for _, op := range []byte{0, byte(opcodeEnd), 0xFF} {
		buf[0] = op
		_, err := codec.Decode(buf)
		if err == nil {
			t.Fatalf("Decode accepted opcode %#x; want rejection", op)
		}
		if kind := decodeKindOf(t, err); kind != ErrBadOpcode {
			t.Fatalf("Decode(opcode %#x) kind = %s; want %s", op, kind, ErrBadOpcode)
		}
	}
}

func TestFrameCodec_RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xA5, 0x5A}, 300)
	f, err := NewFrame(FrameControl, payload)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}

	var codec FrameCodec
	buf := make([]byte, codec.EntrySize())
	codec.Encode(buf, f)
	got, err := codec.Decode(buf)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got.Flags != FrameControl {
		t.Fatalf("Decode flags = %#x; want %#x", got.Flags, FrameControl)
	}
	if !bytes.Equal(got.Data, payload) {
		t.Fatalf("Decode payload mismatch: %d bytes vs %d", len(got.Data), len(payload))
	}
}

func TestNewFrame_RejectsOversizePayload(t *testing.T) {
	if _, err := NewFrame(0, make([]byte, FrameMTU+1)); err == nil {
		t.Fatal("NewFrame accepted payload over MTU; want error")
	}
	if _, err := NewFrame(0, make([]byte, FrameMTU)); err != nil {
		t.Fatalf("NewFrame at MTU: %v", err)
	}
}

func TestFrameCodec_RejectsBadLength(t *testing.T) {
	var codec FrameCodec
	buf := make([]byte, codec.EntrySize())
	binary.LittleEndian.PutUint16(buf[2:4], FrameMTU+1)

	_, err := codec.Decode(buf)
	if kind := decodeKindOf(t, err); kind != ErrBadLength {
		t.Fatalf("Decode kind = %s; want %s", kind, ErrBadLength)
	}
}

func TestFrameCodec_ZeroPadsSlack(t *testing.T) {
	var codec FrameCodec
	buf := bytes.Repeat([]byte{0xEE}, codec.EntrySize())

	codec.Encode(buf, Frame{Data: []byte{1, 2, 3}})

	for i := frameHeaderSize + 3; i < len(buf); i++ {
		if buf[i] != 0 {
			t.Fatalf("slack byte %d = %#x; want 0", i, buf[i])
		}
	}
}
