package koki

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// Offsets below are the 64-bit layouts documented on each record.
func TestRecordLayout(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("documented layouts are for 64-bit targets")
	}

	sizes := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"Point2Di", unsafe.Sizeof(Point2Di{}), 8},
		{"Point2Df", unsafe.Sizeof(Point2Df{}), 8},
		{"Point3Df", unsafe.Sizeof(Point3Df{}), 12},
		{"Bearing", unsafe.Sizeof(Bearing{}), 12},
		{"MarkerRotation", unsafe.Sizeof(MarkerRotation{}), 12},
		{"MarkerVertex", unsafe.Sizeof(MarkerVertex{}), 20},
		{"Marker", unsafe.Sizeof(Marker{}), 136},
		{"ClipRegion", unsafe.Sizeof(ClipRegion{}), 20},
		{"Cell", unsafe.Sizeof(Cell{}), 12},
		{"Grid", unsafe.Sizeof(Grid{}), 1200},
		{"CameraParams", unsafe.Sizeof(CameraParams{}), 24},
		{"Quad", unsafe.Sizeof(Quad{}), 64},
		{"LabelledImage", unsafe.Sizeof(LabelledImage{}), 32},
		{"GArray", unsafe.Sizeof(GArray{}), 16},
		{"GSList", unsafe.Sizeof(GSList{}), 16},
		{"Buffer", unsafe.Sizeof(Buffer{}), 16},
		{"ImageBuffer", unsafe.Sizeof(ImageBuffer{}), 24},
		{"PixFormat", unsafe.Sizeof(PixFormat{}), 48},
		{"Format", unsafe.Sizeof(Format{}), 208},
		{"Uint8", unsafe.Sizeof(Uint8(0)), 1},
		{"Uint16", unsafe.Sizeof(Uint16(0)), 2},
	}
	for _, s := range sizes {
		assert.Equal(t, s.want, s.got, "sizeof %s", s.name)
	}

	var m Marker
	assert.Equal(t, uintptr(0), unsafe.Offsetof(m.Code))
	assert.Equal(t, uintptr(4), unsafe.Offsetof(m.Centre))
	assert.Equal(t, uintptr(24), unsafe.Offsetof(m.Bearing))
	assert.Equal(t, uintptr(36), unsafe.Offsetof(m.Distance))
	assert.Equal(t, uintptr(40), unsafe.Offsetof(m.Rotation))
	assert.Equal(t, uintptr(52), unsafe.Offsetof(m.RotationOffset))
	assert.Equal(t, uintptr(56), unsafe.Offsetof(m.Vertices))

	var l LabelledImage
	assert.Equal(t, uintptr(16), unsafe.Offsetof(l.Data))
	assert.Equal(t, uintptr(24), unsafe.Offsetof(l.H))
	assert.Equal(t, uintptr(26), unsafe.Offsetof(l.W))

	var q Quad
	assert.Equal(t, uintptr(32), unsafe.Offsetof(q.Vertices))

	var f Format
	assert.Equal(t, uintptr(8), unsafe.Offsetof(f.Raw))
}
