package input

import (
	"testing"

	"lumen/hal"
	"lumen/microkit"
	"lumen/proto"
	"lumen/ring"
)

func newInputChannel(t *testing.T, capacity int, init bool) (microkit.RegionCap, *microkit.Doorbell) {
	t.Helper()
	codec := proto.KeyEventCodec{}
	region, err := microkit.NewRegion(make([]byte, ring.RegionBytes(capacity, codec.EntrySize())))
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	grant := microkit.GrantRegion(region, microkit.RightProduce|microkit.RightConsume|microkit.RightInit)
	if init {
		if err := ring.Init(grant.Restrict(microkit.RightInit), capacity, codec.EntrySize()); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	return grant, microkit.NewDoorbell()
}

func newDomain(t *testing.T, grant microkit.RegionCap, peer *microkit.Doorbell) (*PD, *ring.Consumer[proto.KeyEvent]) {
	t.Helper()
	prod, err := ring.NewProducer[proto.KeyEvent](grant.Restrict(microkit.RightProduce), proto.KeyEventCodec{}, microkit.GrantNotify(peer, 0), ring.NotifyEveryPush)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	cons, err := ring.NewConsumer[proto.KeyEvent](grant.Restrict(microkit.RightConsume), proto.KeyEventCodec{})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return New(nil, prod), cons
}

func popEvent(t *testing.T, cons *ring.Consumer[proto.KeyEvent]) proto.KeyEvent {
	t.Helper()
	ev, ok, err := cons.TryPop()
	if err != nil {
		t.Fatalf("TryPop error: %v", err)
	}
	if !ok {
		t.Fatal("TryPop ok=false; want an event")
	}
	return ev
}

// One key press is two entries, down then up, drained by one wakeup.
func TestNotified_DrainsPressAndRelease(t *testing.T) {
	grant, peer := newInputChannel(t, 8, true)
	pd, cons := newDomain(t, grant, peer)

	pd.Enqueue(hal.KeyEvent{Code: hal.KeyUp, Press: true})
	pd.Enqueue(hal.KeyEvent{Code: hal.KeyUp, Press: false})
	pd.Notified(ChIRQ)

	if down := popEvent(t, cons); down != (proto.KeyEvent{Code: hal.KeyUp, Pressed: true}) {
		t.Fatalf("first event = %+v; want KeyUp pressed", down)
	}
	if up := popEvent(t, cons); up != (proto.KeyEvent{Code: hal.KeyUp, Pressed: false}) {
		t.Fatalf("second event = %+v; want KeyUp released", up)
	}
	if _, ok, _ := cons.TryPop(); ok {
		t.Fatal("third TryPop ok=true; want drained channel")
	}

	// The peer was woken for the new entries.
	if mask := peer.Collect(); mask != 1 {
		t.Fatalf("peer pending mask = %#x; want %#x", mask, 1)
	}
}

func TestNotified_KeepsNewestOnFullChannel(t *testing.T) {
	grant, peer := newInputChannel(t, 1, true)
	pd, cons := newDomain(t, grant, peer)

	pd.Enqueue(hal.KeyEvent{Code: hal.KeyRight, Press: true})
	pd.Enqueue(hal.KeyEvent{Code: hal.KeyRight, Press: false})
	pd.Notified(ChIRQ)

	if got := pd.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d; want 1", got)
	}
	if ev := popEvent(t, cons); !ev.Pressed {
		t.Fatalf("first event = %+v; want the press", ev)
	}

	// The superseded release is retried ahead of anything newer.
	pd.Notified(ChIRQ)
	if ev := popEvent(t, cons); ev.Pressed {
		t.Fatalf("retried event = %+v; want the release", ev)
	}
}

func TestNotified_RetriesAfterChannelInit(t *testing.T) {
	grant, peer := newInputChannel(t, 8, false)
	pd, cons := newDomain(t, grant, peer)

	pd.Enqueue(hal.KeyEvent{Code: hal.KeyEnter, Press: true})
	pd.Notified(ChIRQ)

	// Startup race: the event is held, not dropped.
	if got := pd.Dropped(); got != 0 {
		t.Fatalf("Dropped() = %d; want 0 during startup race", got)
	}

	if err := ring.Init(grant.Restrict(microkit.RightInit), 8, proto.KeyEventCodec{}.EntrySize()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	pd.Notified(ChIRQ)

	if ev := popEvent(t, cons); ev.Code != hal.KeyEnter || !ev.Pressed {
		t.Fatalf("event after init = %+v; want KeyEnter pressed", ev)
	}
}

func TestNotified_IgnoresForeignChannels(t *testing.T) {
	grant, peer := newInputChannel(t, 8, true)
	pd, cons := newDomain(t, grant, peer)

	pd.Enqueue(hal.KeyEvent{Code: hal.KeySpace, Press: true})
	pd.Notified(ChIRQ + 1)

	if _, ok, _ := cons.TryPop(); ok {
		t.Fatal("foreign channel notification drained the FIFO")
	}
}
