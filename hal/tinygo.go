//go:build tinygo

package hal

import "machine"

type deviceHAL struct {
	logger *uartLogger
	fb     *stubFramebuffer
	kbd    *stubKeyboard
	t      *deviceTime
	net    *stubNetwork
}

// New returns the device HAL. Board-specific display and keyboard
// backends hang off build tags; the default is a serial console plus
// stubs, enough to bring the domain system up on any target.
func New() HAL {
	uart := machine.Serial

	return &deviceHAL{
		logger: &uartLogger{uart: uart},
		fb:     &stubFramebuffer{w: 480, h: 320, format: PixelFormatRGB565},
		kbd:    &stubKeyboard{},
		t:      newDeviceTime(),
		net:    &stubNetwork{},
	}
}

func (h *deviceHAL) Logger() Logger   { return h.logger }
func (h *deviceHAL) Display() Display { return deviceDisplay{fb: h.fb} }
func (h *deviceHAL) Input() Input     { return deviceInput{kbd: h.kbd} }
func (h *deviceHAL) Time() Time       { return h.t }
func (h *deviceHAL) Network() Network { return h.net }

type deviceDisplay struct {
	fb *stubFramebuffer
}

func (d deviceDisplay) Framebuffer() Framebuffer { return d.fb }

type deviceInput struct {
	kbd *stubKeyboard
}

func (i deviceInput) Keyboard() Keyboard { return i.kbd }

type uartLogger struct {
	uart machine.Serialer
}

func (l *uartLogger) WriteLineString(s string) {
	l.WriteLineBytes([]byte(s))
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for _, c := range b {
		l.uart.WriteByte(c)
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type stubFramebuffer struct {
	w      int
	h      int
	format PixelFormat
	buf    []byte
}

func (f *stubFramebuffer) Width() int          { return f.w }
func (f *stubFramebuffer) Height() int         { return f.h }
func (f *stubFramebuffer) Format() PixelFormat { return f.format }
func (f *stubFramebuffer) StrideBytes() int    { return f.w * 2 }

func (f *stubFramebuffer) Buffer() []byte {
	if f.buf == nil {
		f.buf = make([]byte, f.StrideBytes()*f.h)
	}
	return f.buf
}

func (f *stubFramebuffer) ClearRGB(r, g, b uint8) {
	buf := f.Buffer()
	pixel := RGB565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i < len(buf); i += 2 {
		buf[i] = lo
		buf[i+1] = hi
	}
}

func (f *stubFramebuffer) Present() error { return ErrNotImplemented }

type stubKeyboard struct{}

func (k *stubKeyboard) Events() <-chan KeyEvent { return nil }

type stubNetwork struct{}

func (stubNetwork) Send(pkt []byte) error {
	_ = pkt
	return ErrNotImplemented
}

func (stubNetwork) Recv(pkt []byte) (int, error) {
	_ = pkt
	return 0, nil
}
