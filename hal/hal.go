package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeySpace
	KeyEscape
	KeyHome
	KeyEnd
	KeyF1
	KeyF2
	KeyF3
)

// KeyCodeMax is the highest assigned key code; entry decoders reject
// anything above it.
const KeyCodeMax = KeyF3

// KeyEvent is a keyboard or remote key state change.
type KeyEvent struct {
	Code  KeyCode
	Press bool
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
}

// Time provides a base tick stream.
//
// The tick duration is platform-defined; slideshow timing counts ticks.
type Time interface {
	Ticks() <-chan uint64
}

// Network provides a low-level packet transport.
//
// Recv is non-blocking: it returns 0 bytes and a nil error when no
// packet is pending, so a domain can poll it on each tick.
type Network interface {
	Send(pkt []byte) error
	Recv(pkt []byte) (int, error)
}

// HAL is the only contact point between the domains and the outside
// world.
type HAL interface {
	Logger() Logger
	Display() Display
	Input() Input
	Time() Time
	Network() Network
}
