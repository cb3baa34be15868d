package libkoki

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unsafe"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gokoki/internal/koki"
)

// openTestLibrary loads libkoki from KOKI_LIB_DIR or skips the test.
func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dir := os.Getenv("KOKI_LIB_DIR")
	if dir == "" {
		t.Skip("KOKI_LIB_DIR not set")
	}
	lib, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestOpen_MissingLibrary(t *testing.T) {
	logger, hook := test.NewNullLogger()
	dir := t.TempDir()

	lib, err := Open(dir, WithLogger(logger))

	assert.Nil(t, lib)
	assert.ErrorIs(t, err, ErrLibraryLoad)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, filepath.Join(dir, LibraryName), loadErr.Path)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestOpen_InvalidLibrary(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LibraryName), []byte("not an ELF file"), 0o644))

	lib, err := Open(dir, WithLogger(logger))

	assert.Nil(t, lib)
	assert.ErrorIs(t, err, ErrLibraryLoad)
}

func TestLibraryPath(t *testing.T) {
	assert.Equal(t, "../libkoki/lib/libkoki.so", LibraryPath(DefaultDir))
}

func TestLibrary_Closed(t *testing.T) {
	lib := &Library{log: logrus.StandardLogger()}

	_, err := lib.OpenDevice("/dev/video0")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = lib.GetFormat(3)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = lib.SetFormat(3, koki.Format{})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = lib.Checksum12(1)
	assert.ErrorIs(t, err, ErrClosed)

	assert.NotPanics(t, func() { lib.CloseDevice(3) })
	assert.NoError(t, lib.Close())
}

func TestLibrary_FindMarkers_InvalidArguments(t *testing.T) {
	lib := &Library{}
	pix := make([]byte, 16)
	img, err := koki.NewImageBuffer(pix, 4, 4, 4)
	require.NoError(t, err)
	params := koki.DefaultCameraParams(4, 4)

	_, err = lib.FindMarkers(koki.ImageBuffer{}, 0.1, params)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, err, koki.ErrImageBuffer)

	_, err = lib.FindMarkers(img, 0, params)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = lib.FindMarkers(img, 0.1, params)
	assert.ErrorIs(t, err, ErrClosed)
}

func markerArray(markers []koki.Marker) *koki.GArray {
	if len(markers) == 0 {
		return &koki.GArray{}
	}
	return &koki.GArray{Data: unsafe.Pointer(&markers[0]), Len: uint32(len(markers))}
}

func TestCopyMarkers(t *testing.T) {
	src := []koki.Marker{
		{Code: 3, Distance: 1.25},
		{Code: 0, Distance: 0},
	}
	src[1].Vertices[2].World.Z = 7

	got, err := copyMarkers(markerArray(src))
	require.NoError(t, err)
	assert.Equal(t, src, got)

	for _, m := range got {
		assert.Len(t, m.Vertices, 4)
	}

	// The copy owns its memory.
	got[0].Code = 42
	assert.Equal(t, int32(3), src[0].Code)
}

func TestCopyMarkers_Contract(t *testing.T) {
	tests := []struct {
		name   string
		result *koki.GArray
	}{
		{
			name:   "negative code",
			result: markerArray([]koki.Marker{{Code: -1}}),
		},
		{
			name:   "negative distance",
			result: markerArray([]koki.Marker{{Code: 1, Distance: -2}}),
		},
		{
			name:   "infinite distance",
			result: markerArray([]koki.Marker{{Code: 1, Distance: float32(math.Inf(1))}}),
		},
		{
			name:   "length without data",
			result: &koki.GArray{Len: 2},
		},
		{
			name:   "too many markers",
			result: &koki.GArray{Data: unsafe.Pointer(&[1]koki.Marker{}), Len: MaxMarkers + 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := copyMarkers(tt.result)
			assert.ErrorIs(t, err, ErrForeignCall)

			var callErr *ForeignCallError
			require.ErrorAs(t, err, &callErr)
			assert.Equal(t, SymFindMarkers, callErr.Symbol)
		})
	}
}

func TestCopyMarkers_Empty(t *testing.T) {
	got, err := copyMarkers(&koki.GArray{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestErrors(t *testing.T) {
	assert.Equal(t, "open /dev/video9: status -1",
		(&DeviceError{Op: "open", Device: "/dev/video9", Status: -1}).Error())
	assert.Equal(t, "set format: status 22",
		(&DeviceError{Op: "set format", Status: 22}).Error())
	assert.Equal(t, "bind koki_crc12: undefined symbol",
		(&SymbolError{Symbol: SymCRC12, Reason: "undefined symbol"}).Error())
}

func TestLibrary_Checksum12(t *testing.T) {
	lib := openTestLibrary(t)

	want := make([]koki.Uint16, 256)
	for i := range want {
		v, err := lib.Checksum12(koki.Uint8(i))
		require.NoError(t, err)
		assert.LessOrEqual(t, v, koki.Uint16(0xfff), "12-bit result")
		want[i] = v
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range want {
				v, err := lib.Checksum12(koki.Uint8(i))
				assert.NoError(t, err)
				assert.Equal(t, want[i], v)
			}
		}()
	}
	wg.Wait()
}

func TestLibrary_OpenDevice_Nonexistent(t *testing.T) {
	lib := openTestLibrary(t)

	fd, err := lib.OpenDevice("/dev/nonexistent-path")

	assert.Negative(t, fd)
	assert.ErrorIs(t, err, ErrDevice)
	assert.NotPanics(t, func() { lib.CloseDevice(fd) })
}

func TestLibrary_FindMarkers_BlankImage(t *testing.T) {
	lib := openTestLibrary(t)

	const w, h = 64, 48
	pix := make([]byte, w*h)
	img, err := koki.NewImageBuffer(pix, w, h, w)
	require.NoError(t, err)

	markers, err := lib.FindMarkers(img, 0.1, koki.DefaultCameraParams(w, h))
	require.NoError(t, err)
	assert.Empty(t, markers)
}

func TestLibrary_CloseTwice(t *testing.T) {
	lib := openTestLibrary(t)

	require.NoError(t, lib.Close())
	assert.NoError(t, lib.Close())

	_, err := lib.Checksum12(0)
	assert.ErrorIs(t, err, ErrClosed)
}
