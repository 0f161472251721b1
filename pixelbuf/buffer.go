// Package pixelbuf provides a plain RGBA8 pixel buffer used for tile
// payloads and virtual-image raster export.
//
// It is intentionally minimal: no color-space conversion, no blending, no
// image codec support. Compositing and blending happen on the GPU from the
// tile atlas; this buffer only exists to move raw bytes across the CPU/GPU
// boundary (ingest payloads in, exported rasters out).
package pixelbuf

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// BytesPerPixel is the stride of one RGBA8 texel.
const BytesPerPixel = 4

// Buffer is a rectangular RGBA8 pixel buffer. It implements image.Image and
// draw.Image so it can be handed to image/draw without a copy.
type Buffer struct {
	width  int
	height int
	data   []byte
}

var (
	_ image.Image = (*Buffer)(nil)
	_ draw.Image  = (*Buffer)(nil)
)

// New creates a zeroed buffer of the given pixel dimensions.
func New(width, height int) *Buffer {
	if width <= 0 || height <= 0 {
		return &Buffer{}
	}
	return &Buffer{
		width:  width,
		height: height,
		data:   make([]byte, width*height*BytesPerPixel),
	}
}

// FromBytes wraps an existing RGBA8 byte slice without copying. len(data)
// must equal width*height*BytesPerPixel.
func FromBytes(width, height int, data []byte) (*Buffer, error) {
	want := width * height * BytesPerPixel
	if len(data) != want {
		return nil, fmt.Errorf("pixelbuf: buffer length mismatch: want %d, got %d", want, len(data))
	}
	return &Buffer{width: width, height: height, data: data}, nil
}

func (b *Buffer) Width() int    { return b.width }
func (b *Buffer) Height() int   { return b.height }
func (b *Buffer) Bytes() []byte { return b.data }

// Clear fills the buffer with all-zero (transparent) bytes.
func (b *Buffer) Clear() {
	clear(b.data)
}

// IsAllZero reports whether every byte in the buffer is zero. Used at
// ingest time to coalesce an all-transparent payload to "no tile".
func (b *Buffer) IsAllZero() bool {
	for _, v := range b.data {
		if v != 0 {
			return false
		}
	}
	return true
}

// CopyRect copies an axis-aligned rectangle of RGBA8 texels from src (with
// the given row stride in bytes) into this buffer at (dstX, dstY). Both
// rectangles are assumed to already be clamped to their respective bounds.
func (b *Buffer) CopyRect(dstX, dstY, w, h int, src []byte, srcStride int) {
	for row := 0; row < h; row++ {
		srcOff := row * srcStride
		dstOff := ((dstY+row)*b.width + dstX) * BytesPerPixel
		copy(b.data[dstOff:dstOff+w*BytesPerPixel], src[srcOff:srcOff+w*BytesPerPixel])
	}
}

// SetTexel writes one RGBA8 texel at (x, y). Out-of-bounds writes are
// silently dropped, matching the teacher's tolerant pixel-buffer style.
func (b *Buffer) SetTexel(x, y int, r, g, bl, a byte) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	i := (y*b.width + x) * BytesPerPixel
	b.data[i+0] = r
	b.data[i+1] = g
	b.data[i+2] = bl
	b.data[i+3] = a
}

// Texel reads one RGBA8 texel at (x, y). Out-of-bounds reads return zero.
func (b *Buffer) Texel(x, y int) (r, g, bl, a byte) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return 0, 0, 0, 0
	}
	i := (y*b.width + x) * BytesPerPixel
	return b.data[i+0], b.data[i+1], b.data[i+2], b.data[i+3]
}

// image.Image / draw.Image plumbing, so a Buffer can be the destination or
// source of an image/draw operation. Virtual-image export itself copies
// with CopyRect.

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// At implements image.Image.
func (b *Buffer) At(x, y int) color.Color {
	r, g, bl, a := b.Texel(x, y)
	return color.NRGBA{R: r, G: g, B: bl, A: a}
}

// Set implements draw.Image.
func (b *Buffer) Set(x, y int, c color.Color) {
	nr := color.NRGBAModel.Convert(c).(color.NRGBA)
	b.SetTexel(x, y, nr.R, nr.G, nr.B, nr.A)
}
