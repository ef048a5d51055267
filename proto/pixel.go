package proto

import (
	"errors"
	"fmt"

	"lumen/microkit"
)

// Pixel handshake region layout. Decoded images are bulk, one-shot data,
// so they cross the boundary through a single-buffer handshake rather
// than a ring:
//
//	0x00 state  u32   idle / ready / consumed
//	0x04 seq    u32   generation, echoed in the OpBufferReady command
//	0x08 width  u16le
//	0x0A height u16le
//	0x0C stride u32le bytes per row, width*2 for RGB565
//	0x10 pixels [height*stride]byte
const (
	pixelOffState  = 0x00
	pixelOffSeq    = 0x04
	pixelOffDims   = 0x08
	pixelOffStride = 0x0C

	// PixelHeaderBytes is the fixed size of the handshake control block.
	PixelHeaderBytes = 0x10
)

const (
	pixelIdle     = 0
	pixelReady    = 1
	pixelConsumed = 2
)

// ErrPixelBusy reports an unconsumed buffer still owned by the reader.
var ErrPixelBusy = errors.New("proto: pixel buffer not consumed yet")

// PixelFrame is one decoded image as seen by the consuming domain. Pix
// aliases the shared region; the caller finishes with it before Release.
type PixelFrame struct {
	Width  int
	Height int
	Stride int
	Seq    uint32
	Pix    []byte
}

// PixelWriter is the producing side of the handshake (the image decoder
// domain). One buffer generation is in flight at a time.
type PixelWriter struct {
	region *microkit.Region
}

// NewPixelWriter binds the produce role to a handshake region.
func NewPixelWriter(cap microkit.RegionCap) (*PixelWriter, error) {
	r, ok := cap.View(microkit.RightProduce)
	if !ok {
		return nil, errors.New("proto: capability does not grant pixel produce")
	}
	if r.Size() <= PixelHeaderBytes {
		return nil, fmt.Errorf("proto: pixel region of %d bytes has no payload room", r.Size())
	}
	return &PixelWriter{region: r}, nil
}

// MaxPixelBytes returns the payload room of the region.
func (w *PixelWriter) MaxPixelBytes() int { return w.region.Size() - PixelHeaderBytes }

// Begin claims the buffer for a width x height RGB565 image and returns
// the pixel window to fill. ErrPixelBusy means the reader still owns the
// previous generation; retry on the next wakeup.
func (w *PixelWriter) Begin(width, height int) ([]byte, error) {
	state, err := w.region.AtomicU32(pixelOffState)
	if err != nil {
		return nil, err
	}
	if state.Load() == pixelReady {
		return nil, ErrPixelBusy
	}
	if width <= 0 || height <= 0 || width > 0xFFFF || height > 0xFFFF {
		return nil, fmt.Errorf("proto: invalid pixel dimensions %dx%d", width, height)
	}
	need := width * 2 * height
	if need > w.MaxPixelBytes() {
		return nil, fmt.Errorf("proto: %dx%d needs %d bytes, region holds %d", width, height, need, w.MaxPixelBytes())
	}

	dims, err := w.region.AtomicU32(pixelOffDims)
	if err != nil {
		return nil, err
	}
	stride, err := w.region.AtomicU32(pixelOffStride)
	if err != nil {
		return nil, err
	}
	dims.Store(uint32(width) | uint32(height)<<16)
	stride.Store(uint32(width * 2))

	return w.region.Bytes(PixelHeaderBytes, need)
}

// Publish hands the filled buffer to the reader. The state store is the
// publish barrier: every pixel written through Begin's window is
// observable before the ready state is.
func (w *PixelWriter) Publish(seq uint32) error {
	seqWord, err := w.region.AtomicU32(pixelOffSeq)
	if err != nil {
		return err
	}
	state, err := w.region.AtomicU32(pixelOffState)
	if err != nil {
		return err
	}
	seqWord.Store(seq)
	state.Store(pixelReady)
	return nil
}

// PixelReader is the consuming side of the handshake (the display
// domain).
type PixelReader struct {
	region *microkit.Region
}

// NewPixelReader binds the consume role to a handshake region.
func NewPixelReader(cap microkit.RegionCap) (*PixelReader, error) {
	r, ok := cap.View(microkit.RightConsume)
	if !ok {
		return nil, errors.New("proto: capability does not grant pixel consume")
	}
	if r.Size() <= PixelHeaderBytes {
		return nil, fmt.Errorf("proto: pixel region of %d bytes has no payload room", r.Size())
	}
	return &PixelReader{region: r}, nil
}

// TryAcquire returns the published frame, if any. Malformed headers are
// rejected with a DecodeError and the buffer is released back to the
// writer: the decoder is the less trusted domain and its dimensions are
// never trusted unchecked.
func (r *PixelReader) TryAcquire() (PixelFrame, bool, error) {
	state, err := r.region.AtomicU32(pixelOffState)
	if err != nil {
		return PixelFrame{}, false, err
	}
	if state.Load() != pixelReady {
		return PixelFrame{}, false, nil
	}

	dims, err := r.region.AtomicU32(pixelOffDims)
	if err != nil {
		return PixelFrame{}, false, err
	}
	strideWord, err := r.region.AtomicU32(pixelOffStride)
	if err != nil {
		return PixelFrame{}, false, err
	}
	seqWord, err := r.region.AtomicU32(pixelOffSeq)
	if err != nil {
		return PixelFrame{}, false, err
	}

	d := dims.Load()
	width := int(d & 0xFFFF)
	height := int(d >> 16)
	stride := int(strideWord.Load())
	if width == 0 || height == 0 || stride < width*2 || stride*height > r.region.Size()-PixelHeaderBytes {
		state.Store(pixelConsumed)
		return PixelFrame{}, true, decodeErr(ErrBadPixelDims, d)
	}

	pix, err := r.region.Bytes(PixelHeaderBytes, stride*height)
	if err != nil {
		return PixelFrame{}, false, err
	}
	return PixelFrame{
		Width:  width,
		Height: height,
		Stride: stride,
		Seq:    seqWord.Load(),
		Pix:    pix,
	}, true, nil
}

// Release returns the buffer to the writer once the frame has been
// copied out or rendered.
func (r *PixelReader) Release() error {
	state, err := r.region.AtomicU32(pixelOffState)
	if err != nil {
		return err
	}
	state.Store(pixelConsumed)
	return nil
}
