package koki

import (
	"fmt"
	"unsafe"
)

// V4L2 constants used when negotiating a capture format.
const (
	BufTypeVideoCapture = 1
	FieldNone           = 1
	ColorspaceDefault   = 0
)

// Pixel formats libkoki can consume.
var (
	PixelFormatGrey = FourCC('G', 'R', 'E', 'Y')
	PixelFormatYUYV = FourCC('Y', 'U', 'Y', 'V')
)

// FormatUnionSize is the size of the fmt union in struct v4l2_format.
const FormatUnionSize = 200

// The fmt union contains pointers, so it is pointer-aligned.
const formatPad = unsafe.Sizeof(uintptr(0)) - 4

// FourCC packs a V4L2 pixel format code.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// FourCCString unpacks a pixel format code.
func FourCCString(v uint32) string {
	return string([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// PixFormat mirrors struct v4l2_pix_format.
type PixFormat struct { // size 48
	Width        uint32 // offset 0, size 4
	Height       uint32 // offset 4, size 4
	PixelFormat  uint32 // offset 8, size 4
	Field        uint32 // offset 12, size 4
	BytesPerLine uint32 // offset 16, size 4
	SizeImage    uint32 // offset 20, size 4
	Colorspace   uint32 // offset 24, size 4
	Priv         uint32 // offset 28, size 4
	Flags        uint32 // offset 32, size 4
	YCbCrEnc     uint32 // offset 36, size 4
	Quantization uint32 // offset 40, size 4
	XferFunc     uint32 // offset 44, size 4
}

func (p PixFormat) String() string {
	return fmt.Sprintf("PixFormat (width=%d, height=%d, pixelformat=%s, field=%d, bytesperline=%d, sizeimage=%d, colorspace=%d)",
		p.Width, p.Height, FourCCString(p.PixelFormat), p.Field, p.BytesPerLine, p.SizeImage, p.Colorspace)
}

// Format mirrors struct v4l2_format. Only the pix member of the union is
// interpreted; the remaining bytes are carried through unchanged.
type Format struct { // size 208 (64-bit), 204 (32-bit)
	Type uint32                // offset 0, size 4
	_    [formatPad]byte       // align
	Raw  [FormatUnionSize]byte // offset 8 (64-bit), size 200
}

// NewCaptureFormat returns a video-capture format request.
func NewCaptureFormat(width, height, pixelFormat uint32) Format {
	var f Format
	f.Type = BufTypeVideoCapture
	f.SetPix(PixFormat{
		Width:       width,
		Height:      height,
		PixelFormat: pixelFormat,
		Field:       FieldNone,
	})
	return f
}

// Pix returns the pix member of the union.
func (f *Format) Pix() PixFormat {
	return *(*PixFormat)(unsafe.Pointer(&f.Raw[0]))
}

// SetPix overwrites the pix member of the union.
func (f *Format) SetPix(p PixFormat) {
	*(*PixFormat)(unsafe.Pointer(&f.Raw[0])) = p
}

func (f Format) String() string {
	return fmt.Sprintf("Format (type=%d, pix = %s)", f.Type, f.Pix())
}
