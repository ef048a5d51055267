package proto

import "encoding/binary"

// Photo command channel wire layout, 8 bytes per entry:
//
//	0x00 opcode   u8
//	0x01 reserved u8
//	0x02 arg      u16le
//	0x04 seq      u32le
const commandEntrySize = 8

// Opcode selects a slideshow command.
type Opcode uint8

const (
	OpNext Opcode = iota + 1
	OpPrev
	OpShow
	OpPause
	OpResume
	OpSetInterval
	OpBufferReady

	opcodeEnd
)

func (o Opcode) String() string {
	switch o {
	case OpNext:
		return "next"
	case OpPrev:
		return "prev"
	case OpShow:
		return "show"
	case OpPause:
		return "pause"
	case OpResume:
		return "resume"
	case OpSetInterval:
		return "set_interval"
	case OpBufferReady:
		return "buffer_ready"
	default:
		return "unknown"
	}
}

// Command is one slideshow control entry.
//
// Arg is opcode-specific: the playlist index for OpShow, the interval in
// ticks for OpSetInterval, unused otherwise. Seq correlates a
// OpBufferReady with the pixel handshake generation it announces.
type Command struct {
	Op  Opcode
	Arg uint16
	Seq uint32
}

// CommandCodec carries Command entries on the photo channels.
type CommandCodec struct{}

func (CommandCodec) EntrySize() int { return commandEntrySize }

func (CommandCodec) Encode(dst []byte, c Command) {
	dst[0] = byte(c.Op)
	dst[1] = 0
	binary.LittleEndian.PutUint16(dst[2:4], c.Arg)
	binary.LittleEndian.PutUint32(dst[4:8], c.Seq)
}

func (CommandCodec) Decode(src []byte) (Command, error) {
	op := Opcode(src[0])
	if op == 0 || op >= opcodeEnd {
		return Command{}, decodeErr(ErrBadOpcode, uint32(src[0]))
	}
	return Command{
		Op:  op,
		Arg: binary.LittleEndian.Uint16(src[2:4]),
		Seq: binary.LittleEndian.Uint32(src[4:8]),
	}, nil
}
