package proto

import (
	"encoding/binary"
	"fmt"
)

// Net channel wire layout, one packet per entry:
//
//	0x00 flags   u16le
//	0x02 length  u16le   payload bytes, <= FrameMTU
//	0x04 payload [FrameMTU]byte
const (
	// FrameMTU is the worst-case payload: one Ethernet frame.
	FrameMTU = 1514

	frameHeaderSize = 4
	frameEntrySize  = frameHeaderSize + FrameMTU
)

// Frame flag bits.
const (
	// FrameControl marks a frame whose payload is a remote-control
	// command rather than ordinary traffic.
	FrameControl uint16 = 1 << 0
)

// Frame is one raw packet crossing a net channel.
type Frame struct {
	Flags uint16
	Data  []byte
}

// NewFrame builds a frame, rejecting oversize payloads up front so they
// never reach the encoder.
func NewFrame(flags uint16, data []byte) (Frame, error) {
	if len(data) > FrameMTU {
		return Frame{}, fmt.Errorf("proto: frame payload %d exceeds MTU %d", len(data), FrameMTU)
	}
	return Frame{Flags: flags, Data: data}, nil
}

// FrameCodec carries Frame entries on the net channels.
type FrameCodec struct{}

func (FrameCodec) EntrySize() int { return frameEntrySize }

// Encode writes f into dst. Payloads are validated by NewFrame before
// push; an oversize slice reaching here is clamped to the MTU rather
// than written past the slot.
func (FrameCodec) Encode(dst []byte, f Frame) {
	data := f.Data
	if len(data) > FrameMTU {
		data = data[:FrameMTU]
	}
	binary.LittleEndian.PutUint16(dst[0:2], f.Flags)
	binary.LittleEndian.PutUint16(dst[2:4], uint16(len(data)))
	n := copy(dst[frameHeaderSize:], data)
	for i := frameHeaderSize + n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func (FrameCodec) Decode(src []byte) (Frame, error) {
	length := binary.LittleEndian.Uint16(src[2:4])
	if int(length) > FrameMTU {
		return Frame{}, decodeErr(ErrBadLength, uint32(length))
	}
	data := make([]byte, length)
	copy(data, src[frameHeaderSize:frameHeaderSize+int(length)])
	return Frame{
		Flags: binary.LittleEndian.Uint16(src[0:2]),
		Data:  data,
	}, nil
}
