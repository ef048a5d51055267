package netdrv

import (
	"bytes"
	"encoding/binary"
	"testing"

	"lumen/microkit"
	"lumen/proto"
	"lumen/ring"
)

// fakeNet records sent packets and replays queued inbound ones.
type fakeNet struct {
	sent    [][]byte
	inbound [][]byte
}

func (n *fakeNet) Send(pkt []byte) error {
	cp := make([]byte, len(pkt))
	copy(cp, pkt)
	n.sent = append(n.sent, cp)
	return nil
}

func (n *fakeNet) Recv(pkt []byte) (int, error) {
	if len(n.inbound) == 0 {
		return 0, nil
	}
	p := n.inbound[0]
	n.inbound = n.inbound[1:]
	return copy(pkt, p), nil
}

// rawCodec writes caller-supplied bytes into a frame-sized slot, for
// injecting entries the frame codec would never produce.
type rawCodec struct{}

func (rawCodec) EntrySize() int { return proto.FrameCodec{}.EntrySize() }
func (rawCodec) Encode(dst []byte, b []byte) {
	n := copy(dst, b)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
func (rawCodec) Decode(src []byte) ([]byte, error) { return src, nil }

func newFrameChannel(t *testing.T, capacity int) microkit.RegionCap {
	t.Helper()
	size := proto.FrameCodec{}.EntrySize()
	region, err := microkit.NewRegion(make([]byte, ring.RegionBytes(capacity, size)))
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	grant := microkit.GrantRegion(region, microkit.RightProduce|microkit.RightConsume|microkit.RightInit)
	if err := ring.Init(grant.Restrict(microkit.RightInit), capacity, size); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return grant
}

type harness struct {
	pd  *PD
	net *fakeNet

	txProd *ring.Producer[proto.Frame] // peer side of the TX ring
	rxCons *ring.Consumer[proto.Frame] // peer side of the RX ring
	bell   *microkit.Doorbell          // peer doorbell the RX producer rings
}

func newHarness(t *testing.T, capacity int) *harness {
	t.Helper()
	txGrant := newFrameChannel(t, capacity)
	rxGrant := newFrameChannel(t, capacity)
	bell := microkit.NewDoorbell()

	txProd, err := ring.NewProducer[proto.Frame](txGrant.Restrict(microkit.RightProduce), proto.FrameCodec{}, microkit.NotifyCap{}, ring.NotifyEveryPush)
	if err != nil {
		t.Fatalf("NewProducer(tx): %v", err)
	}
	txCons, err := ring.NewConsumer[proto.Frame](txGrant.Restrict(microkit.RightConsume), proto.FrameCodec{})
	if err != nil {
		t.Fatalf("NewConsumer(tx): %v", err)
	}
	rxProd, err := ring.NewProducer[proto.Frame](rxGrant.Restrict(microkit.RightProduce), proto.FrameCodec{}, microkit.GrantNotify(bell, 0), ring.NotifyOnNonEmpty)
	if err != nil {
		t.Fatalf("NewProducer(rx): %v", err)
	}
	rxCons, err := ring.NewConsumer[proto.Frame](rxGrant.Restrict(microkit.RightConsume), proto.FrameCodec{})
	if err != nil {
		t.Fatalf("NewConsumer(rx): %v", err)
	}

	net := &fakeNet{}
	return &harness{
		pd:     New(nil, net, txCons, rxProd),
		net:    net,
		txProd: txProd,
		rxCons: rxCons,
		bell:   bell,
	}
}

func TestDrainTX_SendsFramesWithWireHeader(t *testing.T) {
	h := newHarness(t, 8)

	payload := []byte("slide status")
	f, err := proto.NewFrame(proto.FrameControl, payload)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	if ok, err := h.txProd.TryPush(f); !ok || err != nil {
		t.Fatalf("TryPush = (%v, %v); want (true, nil)", ok, err)
	}

	h.pd.Notified(ChTX)

	if len(h.net.sent) != 1 {
		t.Fatalf("sent %d packets; want 1", len(h.net.sent))
	}
	pkt := h.net.sent[0]
	if flags := binary.LittleEndian.Uint16(pkt[0:2]); flags != proto.FrameControl {
		t.Fatalf("wire flags = %#x; want %#x", flags, proto.FrameControl)
	}
	if !bytes.Equal(pkt[wireHeaderSize:], payload) {
		t.Fatalf("wire payload = %q; want %q", pkt[wireHeaderSize:], payload)
	}
}

func TestDrainTX_SkipsCorruptEntries(t *testing.T) {
	h := newHarness(t, 8)

	// Same ring region, but pushed through a codec that forges a length
	// field past the MTU.
	txGrant := newFrameChannel(t, 8)
	raw, err := ring.NewProducer[[]byte](txGrant.Restrict(microkit.RightProduce), rawCodec{}, microkit.NotifyCap{}, ring.NotifyEveryPush)
	if err != nil {
		t.Fatalf("NewProducer(raw): %v", err)
	}
	txCons, err := ring.NewConsumer[proto.Frame](txGrant.Restrict(microkit.RightConsume), proto.FrameCodec{})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	h.pd = New(nil, h.net, txCons, nil)

	bad := make([]byte, 4)
	binary.LittleEndian.PutUint16(bad[2:4], proto.FrameMTU+1)
	if ok, err := raw.TryPush(bad); !ok || err != nil {
		t.Fatalf("TryPush(bad) = (%v, %v); want (true, nil)", ok, err)
	}
	good := make([]byte, 4+3)
	binary.LittleEndian.PutUint16(good[2:4], 3)
	copy(good[4:], "abc")
	if ok, err := raw.TryPush(good); !ok || err != nil {
		t.Fatalf("TryPush(good) = (%v, %v); want (true, nil)", ok, err)
	}

	h.pd.Notified(ChTX)

	if len(h.net.sent) != 1 {
		t.Fatalf("sent %d packets; want the good one only", len(h.net.sent))
	}
	_, corrupt, _ := h.pd.Stats()
	if corrupt != 1 {
		t.Fatalf("corrupt TX count = %d; want 1", corrupt)
	}
}

func TestPollRX_PublishesInboundFrames(t *testing.T) {
	h := newHarness(t, 8)

	pkt := make([]byte, wireHeaderSize+5)
	binary.LittleEndian.PutUint16(pkt[0:2], proto.FrameControl)
	copy(pkt[wireHeaderSize:], "hello")
	h.net.inbound = append(h.net.inbound, pkt)

	h.pd.Notified(ChTick)

	f, ok, err := h.rxCons.TryPop()
	if !ok || err != nil {
		t.Fatalf("TryPop = (%v, %v); want (true, nil)", ok, err)
	}
	if f.Flags != proto.FrameControl || !bytes.Equal(f.Data, []byte("hello")) {
		t.Fatalf("frame = %+v; want control frame %q", f, "hello")
	}

	// The consumer side was woken.
	if mask := h.bell.Collect(); mask != 1 {
		t.Fatalf("peer pending mask = %#x; want %#x", mask, 1)
	}
}

func TestPollRX_CountsDropsOnFullChannel(t *testing.T) {
	h := newHarness(t, 1)

	for i := 0; i < 3; i++ {
		pkt := make([]byte, wireHeaderSize+1)
		pkt[wireHeaderSize] = byte(i)
		h.net.inbound = append(h.net.inbound, pkt)
	}

	h.pd.Notified(ChTick)

	dropped, _, _ := h.pd.Stats()
	if dropped != 2 {
		t.Fatalf("dropped = %d; want 2", dropped)
	}
	if f, ok, err := h.rxCons.TryPop(); !ok || err != nil || f.Data[0] != 0 {
		t.Fatalf("TryPop = (%+v, %v, %v); want the first packet", f, ok, err)
	}
}

func TestPollRX_RespectsBudget(t *testing.T) {
	h := newHarness(t, 32)

	for i := 0; i < rxBudget+4; i++ {
		pkt := make([]byte, wireHeaderSize+1)
		h.net.inbound = append(h.net.inbound, pkt)
	}

	h.pd.Notified(ChTick)

	if left := len(h.net.inbound); left != 4 {
		t.Fatalf("%d packets left after one tick; want 4", left)
	}
}
