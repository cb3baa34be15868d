package koki

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrImageBuffer is returned for an image descriptor that cannot be read.
var ErrImageBuffer = errors.New("invalid image buffer")

// Buffer describes one memory-mapped V4L2 capture buffer.
type Buffer struct { // size 16 (64-bit)
	Length uintptr // offset 0, size 8
	Start  *Uint8  // offset 8, size 8
}

// Bytes views the buffer's memory. The slice aliases foreign memory.
func (b Buffer) Bytes() []byte {
	if b.Start == nil || b.Length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(b.Start)), b.Length)
}

func (b Buffer) String() string {
	return fmt.Sprintf("Buffer (length=%d, start = %p)", b.Length, b.Start)
}

// ImageBuffer describes an 8-bit grayscale image in row-major order with
// Stride bytes per row.
type ImageBuffer struct { // size 24 (64-bit)
	Data   *Uint8 // offset 0, size 8
	Width  int32  // offset 8, size 4
	Height int32  // offset 12, size 4
	Stride int32  // offset 16, size 4
}

// NewImageBuffer describes pix, which must hold at least stride*height bytes.
// The descriptor borrows pix; keep pix alive while the descriptor is in use.
func NewImageBuffer(pix []byte, width, height, stride int) (ImageBuffer, error) {
	img := ImageBuffer{Width: int32(width), Height: int32(height), Stride: int32(stride)}
	if len(pix) > 0 {
		img.Data = (*Uint8)(unsafe.Pointer(&pix[0]))
	}
	if err := img.validate(len(pix)); err != nil {
		return ImageBuffer{}, err
	}
	return img, nil
}

// Validate checks that the descriptor is internally consistent.
func (i ImageBuffer) Validate() error {
	return i.validate(-1)
}

func (i ImageBuffer) validate(n int) error {
	switch {
	case i.Data == nil:
		return fmt.Errorf("%w: no pixel data", ErrImageBuffer)
	case i.Width <= 0 || i.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrImageBuffer, i.Width, i.Height)
	case i.Stride < i.Width:
		return fmt.Errorf("%w: stride %d shorter than width %d", ErrImageBuffer, i.Stride, i.Width)
	case n >= 0 && n < int(i.Stride)*int(i.Height):
		return fmt.Errorf("%w: %d bytes for %d rows of %d", ErrImageBuffer, n, i.Height, i.Stride)
	}
	return nil
}

func (i ImageBuffer) String() string {
	return fmt.Sprintf("ImageBuffer (data = %p, width=%d, height=%d, stride=%d)",
		i.Data, i.Width, i.Height, i.Stride)
}
