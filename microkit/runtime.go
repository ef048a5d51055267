package microkit

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PD is one protection domain: a single-threaded, event-driven unit that
// blocks on its doorbell and handles one coalesced notification batch per
// wakeup. Notified must not block; channel operations are non-blocking by
// construction.
type PD interface {
	Notified(ch Channel)
}

// Starter is implemented by domains that need a setup pass before the
// first notification is delivered.
type Starter interface {
	Start() error
}

type pdEntry struct {
	name string
	pd   PD
	bell *Doorbell
}

// Runtime schedules protection domains on the host: one goroutine per
// domain, so exactly one thread per domain ever touches shared memory.
// On real hardware the kernel plays this role; the semantics are the
// same (block, deliver, return).
type Runtime struct {
	pds []pdEntry
}

// NewRuntime creates an empty runtime.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// Attach registers a domain with its doorbell. Must be called before
// Run. Doorbells are minted first by the system wiring so peer domains
// can be handed notify capabilities against them during construction.
func (r *Runtime) Attach(name string, pd PD, bell *Doorbell) {
	r.pds = append(r.pds, pdEntry{name: name, pd: pd, bell: bell})
}

// Run starts every attached domain and blocks until the context is
// cancelled or a domain's Start fails.
func (r *Runtime) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := range r.pds {
		e := r.pds[i]
		g.Go(func() error {
			if s, ok := e.pd.(Starter); ok {
				if err := s.Start(); err != nil {
					return fmt.Errorf("microkit: pd %s: %w", e.name, err)
				}
			}
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-e.bell.Wake():
					dispatch(e.pd, e.bell.Collect())
				}
			}
		})
	}
	return g.Wait()
}

// dispatch delivers one Notified call per pending channel bit.
func dispatch(pd PD, mask uint32) {
	for ch := Channel(0); ch < MaxChannels; ch++ {
		if mask&(1<<ch) != 0 {
			pd.Notified(ch)
		}
	}
}

// Dispatch drains a doorbell into a domain synchronously. It exists for
// deterministic single-threaded operation (tests, the ringdump tool's
// replay mode) and mirrors exactly what Run does per wakeup.
func Dispatch(pd PD, bell *Doorbell) {
	dispatch(pd, bell.Collect())
}
