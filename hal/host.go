//go:build !tinygo

package hal

import "os"

type hostHAL struct {
	logger *hostLogger
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	t      *hostTime
	net    *hostNetwork
}

// New returns a host HAL implementation.
func New() HAL {
	return &hostHAL{
		logger: &hostLogger{w: os.Stdout},
		fb:     newHostFramebuffer(480, 320),
		kbd:    newHostKeyboard(),
		t:      newHostTime(),
		net:    newHostNetwork(),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }
func (h *hostHAL) Time() Time       { return h.t }
func (h *hostHAL) Network() Network { return h.net }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd *hostKeyboard
}

func (i hostInput) Keyboard() Keyboard { return i.kbd }

type hostLogger struct {
	w *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.w.WriteString(s)
	l.w.WriteString("\n")
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.w.Write(b)
	l.w.WriteString("\n")
}
