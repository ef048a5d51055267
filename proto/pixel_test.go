package proto

import (
	"errors"
	"testing"

	"lumen/microkit"
)

func newPixelPair(t *testing.T, payload int) (*PixelWriter, *PixelReader, *microkit.Region) {
	t.Helper()
	region, err := microkit.NewRegion(make([]byte, PixelHeaderBytes+payload))
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	grant := microkit.GrantRegion(region, microkit.RightProduce|microkit.RightConsume)

	w, err := NewPixelWriter(grant.Restrict(microkit.RightProduce))
	if err != nil {
		t.Fatalf("NewPixelWriter: %v", err)
	}
	r, err := NewPixelReader(grant.Restrict(microkit.RightConsume))
	if err != nil {
		t.Fatalf("NewPixelReader: %v", err)
	}
	return w, r, region
}

func TestPixelHandshake_PublishAcquireRelease(t *testing.T) {
	w, r, _ := newPixelPair(t, 8*4*2)

	// Nothing published yet.
	if _, ok, err := r.TryAcquire(); ok || err != nil {
		t.Fatalf("TryAcquire on idle buffer = (%v, %v); want (false, nil)", ok, err)
	}

	pix, err := w.Begin(8, 4)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if len(pix) != 8*4*2 {
		t.Fatalf("Begin window = %d bytes; want %d", len(pix), 8*4*2)
	}
	for i := range pix {
		pix[i] = byte(i)
	}
	if err := w.Publish(41); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	f, ok, err := r.TryAcquire()
	if !ok || err != nil {
		t.Fatalf("TryAcquire after publish = (%v, %v); want (true, nil)", ok, err)
	}
	if f.Width != 8 || f.Height != 4 || f.Stride != 16 || f.Seq != 41 {
		t.Fatalf("frame = %+v; want 8x4 stride 16 seq 41", f)
	}
	for i, b := range f.Pix {
		if b != byte(i) {
			t.Fatalf("pix[%d] = %#x; want %#x", i, b, byte(i))
		}
	}

	if err := r.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok, _ := r.TryAcquire(); ok {
		t.Fatal("TryAcquire after release = true; want false")
	}
}

func TestPixelWriter_BusyUntilReleased(t *testing.T) {
	w, r, _ := newPixelPair(t, 8*4*2)

	if _, err := w.Begin(8, 4); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w.Publish(1); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, err := w.Begin(8, 4); !errors.Is(err, ErrPixelBusy) {
		t.Fatalf("Begin on unconsumed buffer = %v; want ErrPixelBusy", err)
	}

	if _, ok, err := r.TryAcquire(); !ok || err != nil {
		t.Fatalf("TryAcquire = (%v, %v); want (true, nil)", ok, err)
	}
	if err := r.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if _, err := w.Begin(8, 4); err != nil {
		t.Fatalf("Begin after release: %v", err)
	}
}

func TestPixelWriter_RejectsOversizeImage(t *testing.T) {
	w, _, _ := newPixelPair(t, 8*4*2)

	if _, err := w.Begin(8, 5); err == nil {
		t.Fatal("Begin accepted image over payload room; want error")
	}
	if _, err := w.Begin(0, 4); err == nil {
		t.Fatal("Begin accepted zero width; want error")
	}
}

func TestPixelReader_RejectsForgedDimensions(t *testing.T) {
	w, r, region := newPixelPair(t, 8*4*2)

	if _, err := w.Begin(8, 4); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w.Publish(1); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Forge dimensions past the grant, as a compromised decoder would.
	dims, err := region.AtomicU32(pixelOffDims)
	if err != nil {
		t.Fatalf("AtomicU32(dims): %v", err)
	}
	dims.Store(uint32(1024) | uint32(1024)<<16)

	_, ok, err := r.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire ok=false; want consumed-and-rejected")
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != ErrBadPixelDims {
		t.Fatalf("TryAcquire error = %v; want bad_pixel_dims DecodeError", err)
	}

	// The buffer went back to the writer, the protocol is not wedged.
	if _, err := w.Begin(8, 4); err != nil {
		t.Fatalf("Begin after rejected frame: %v", err)
	}
}

func TestPixelRoles_RequireMatchingRights(t *testing.T) {
	region, err := microkit.NewRegion(make([]byte, PixelHeaderBytes+64))
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	grant := microkit.GrantRegion(region, microkit.RightProduce|microkit.RightConsume)

	if _, err := NewPixelWriter(grant.Restrict(microkit.RightConsume)); err == nil {
		t.Fatal("NewPixelWriter with consume-only cap succeeded; want error")
	}
	if _, err := NewPixelReader(grant.Restrict(microkit.RightProduce)); err == nil {
		t.Fatal("NewPixelReader with produce-only cap succeeded; want error")
	}
}
