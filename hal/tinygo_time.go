//go:build tinygo

package hal

import "time"

type deviceTime struct {
	ch chan uint64
}

func newDeviceTime() *deviceTime {
	t := &deviceTime{ch: make(chan uint64, 64)}
	go t.run()
	return t
}

func (t *deviceTime) Ticks() <-chan uint64 { return t.ch }

func (t *deviceTime) run() {
	var seq uint64
	for {
		time.Sleep(time.Millisecond)
		seq++
		select {
		case t.ch <- seq:
		default:
		}
	}
}
