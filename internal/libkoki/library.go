// Package libkoki loads libkoki.so at run time and exposes its functions
// through typed wrappers.
//
// A Library is only ever returned fully bound: Open loads the shared object,
// resolves every symbol in Signatures and checks each declared record against
// the native layout table before any wrapper can be called.
//
// Native calls block until they return. The Library does not serialize them;
// callers sharing a device descriptor or image buffer across goroutines must
// do that themselves. Checksum12 is pure and safe to call concurrently.
package libkoki

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/gokoki/internal/koki"
)

const (
	// LibraryName is the shared object Open looks for.
	LibraryName = "libkoki.so"

	// DefaultDir is where a libkoki build tree usually places the library
	// relative to the working directory.
	DefaultDir = "../libkoki/lib/"

	// MaxMarkers bounds the marker count accepted from a single detection.
	MaxMarkers = 1 << 12
)

// Option configures Open.
type Option func(*Library)

// WithLogger sets the logger used for load, bind and close events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Library) {
		l.log = log
	}
}

type symbols struct {
	openCam     unsafe.Pointer
	closeCam    unsafe.Pointer
	getFormat   unsafe.Pointer
	setFormat   unsafe.Pointer
	crc12       unsafe.Pointer
	findMarkers unsafe.Pointer
	markersFree unsafe.Pointer
}

func (s *symbols) slot(name string) *unsafe.Pointer {
	switch name {
	case SymOpenCam:
		return &s.openCam
	case SymCloseCam:
		return &s.closeCam
	case SymGetFormat:
		return &s.getFormat
	case SymSetFormat:
		return &s.setFormat
	case SymCRC12:
		return &s.crc12
	case SymFindMarkers:
		return &s.findMarkers
	case SymMarkersFree:
		return &s.markersFree
	}
	return nil
}

// Library is a loaded and bound libkoki.
type Library struct {
	path string
	log  logrus.FieldLogger

	mu     sync.RWMutex
	handle unsafe.Pointer
	sym    symbols
}

// LibraryPath returns the exact path Open loads for dir.
func LibraryPath(dir string) string {
	return filepath.Join(dir, LibraryName)
}

// Open loads LibraryName from dir and binds every symbol in Signatures. Only
// that exact path is tried.
func Open(dir string, opts ...Option) (*Library, error) {
	l := &Library{
		path: LibraryPath(dir),
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	log := l.log.WithFields(logrus.Fields{
		"function": "Open",
		"path":     l.path,
	})

	if _, err := os.Stat(l.path); err != nil {
		log.WithError(err).Error("Library not found")
		return nil, &LoadError{Path: l.path, Reason: err.Error()}
	}

	handle, err := dlOpen(l.path)
	if err != nil {
		log.WithError(err).Error("Failed to load library")
		return nil, &LoadError{Path: l.path, Reason: err.Error()}
	}

	sym, err := bind(handle, Signatures, NativeLayouts())
	if err != nil {
		log.WithError(err).Error("Failed to bind library")
		if cerr := dlClose(handle); cerr != nil {
			log.WithError(cerr).Warn("Failed to unload library")
		}
		return nil, err
	}

	l.handle = handle
	l.sym = sym

	log.WithField("release_hook", sym.markersFree != nil).Info("Library loaded")
	return l, nil
}

func bind(handle unsafe.Pointer, sigs []Signature, layouts map[string]Layout) (symbols, error) {
	var sym symbols
	for _, sig := range sigs {
		slot := sym.slot(sig.Symbol)
		if slot == nil {
			return symbols{}, &SymbolError{Symbol: sig.Symbol, Reason: "no call wrapper"}
		}
		if err := sig.check(layouts); err != nil {
			return symbols{}, err
		}

		fn, err := dlSym(handle, sig.Symbol)
		if err != nil {
			if sig.Optional {
				continue
			}
			return symbols{}, &SymbolError{Symbol: sig.Symbol, Reason: err.Error()}
		}
		*slot = fn
	}
	return sym, nil
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string {
	return l.path
}

// Close unloads the library. Calls made afterwards return ErrClosed.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle == nil {
		return nil
	}

	err := dlClose(l.handle)
	l.handle = nil
	l.sym = symbols{}

	l.log.WithFields(logrus.Fields{
		"function": "Close",
		"path":     l.path,
	}).Info("Library unloaded")

	if err != nil {
		return fmt.Errorf("unload %s: %w", l.path, err)
	}
	return nil
}

// acquire holds the library open for the duration of a call.
func (l *Library) acquire() (*symbols, func(), error) {
	l.mu.RLock()
	if l.handle == nil {
		l.mu.RUnlock()
		return nil, nil, ErrClosed
	}
	return &l.sym, l.mu.RUnlock, nil
}

// OpenDevice opens a V4L2 device. A negative descriptor is returned together
// with a *DeviceError.
func (l *Library) OpenDevice(path string) (int32, error) {
	sym, release, err := l.acquire()
	if err != nil {
		return -1, err
	}
	defer release()

	fd := callOpenCam(sym.openCam, path)
	if fd < 0 {
		return fd, &DeviceError{Op: "open", Device: path, Status: fd}
	}
	return fd, nil
}

// CloseDevice closes a descriptor returned by OpenDevice. Negative
// descriptors are ignored.
func (l *Library) CloseDevice(fd int32) {
	if fd < 0 {
		return
	}
	sym, release, err := l.acquire()
	if err != nil {
		return
	}
	defer release()

	callCloseCam(sym.closeCam, fd)
}

// GetFormat reads the device's current capture format.
func (l *Library) GetFormat(fd int32) (koki.Format, error) {
	sym, release, err := l.acquire()
	if err != nil {
		return koki.Format{}, err
	}
	defer release()

	return callGetFormat(sym.getFormat, fd), nil
}

// SetFormat requests a capture format. A nonzero status means the device
// rejected or adjusted it; read the result back with GetFormat.
func (l *Library) SetFormat(fd int32, f koki.Format) (int32, error) {
	sym, release, err := l.acquire()
	if err != nil {
		return -1, err
	}
	defer release()

	status := callSetFormat(sym.setFormat, fd, f)
	if status != 0 {
		return status, &DeviceError{Op: "set format", Status: status}
	}
	return status, nil
}

// Checksum12 returns the CRC-12 of b as computed by libkoki.
func (l *Library) Checksum12(b koki.Uint8) (koki.Uint16, error) {
	sym, release, err := l.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	return callCRC12(sym.crc12, b), nil
}

// FindMarkers detects markers in img. markerSize is the physical edge length
// of the markers. The markers are copied out of libkoki's result before it is
// released, so the returned slice is owned by the caller.
func (l *Library) FindMarkers(img koki.ImageBuffer, markerSize float32, params koki.CameraParams) ([]koki.Marker, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if markerSize <= 0 {
		return nil, fmt.Errorf("%w: marker size %f", ErrInvalidArgument, markerSize)
	}

	sym, release, err := l.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	result := callFindMarkers(sym.findMarkers, img, markerSize, params)
	if result == nil {
		return nil, &ForeignCallError{Symbol: SymFindMarkers, Reason: "returned NULL"}
	}
	if sym.markersFree != nil {
		defer callMarkersFree(sym.markersFree, result)
	}

	return copyMarkers(result)
}

// copyMarkers copies a borrowed marker array into Go memory, checking it
// against the result contract.
func copyMarkers(result *koki.GArray) ([]koki.Marker, error) {
	if result.Len > MaxMarkers {
		return nil, &ForeignCallError{
			Symbol: SymFindMarkers,
			Reason: fmt.Sprintf("%d markers exceeds limit of %d", result.Len, MaxMarkers),
		}
	}
	if result.Data == nil && result.Len > 0 {
		return nil, &ForeignCallError{
			Symbol: SymFindMarkers,
			Reason: fmt.Sprintf("%d markers with no data", result.Len),
		}
	}

	markers := koki.NewArrayView[koki.Marker](result).Copy()
	for i, m := range markers {
		if !m.Valid() {
			return nil, &ForeignCallError{
				Symbol: SymFindMarkers,
				Reason: fmt.Sprintf("marker %d has code %d, distance %f", i, m.Code, m.Distance),
			}
		}
	}
	return markers, nil
}
