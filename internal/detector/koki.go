package detector

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/gokoki/internal/capture"
	"github.com/ayusman/gokoki/internal/koki"
	"github.com/ayusman/gokoki/internal/libkoki"
)

// ErrEmptyFrame is returned when Detect is given no image data.
var ErrEmptyFrame = errors.New("empty frame")

// Finder runs libkoki's marker search. *libkoki.Library implements it.
type Finder interface {
	FindMarkers(img koki.ImageBuffer, markerSize float32, params koki.CameraParams) ([]koki.Marker, error)
}

var _ Finder = (*libkoki.Library)(nil)

// KokiDetector implements Detector with libkoki.
type KokiDetector struct {
	config Config
	finder Finder
	lib    *libkoki.Library // set when the detector owns the library
	mu     sync.Mutex
}

// NewKokiDetector creates a detector that searches with finder.
func NewKokiDetector(finder Finder, config Config) *KokiDetector {
	if config.MarkerSize <= 0 {
		config.MarkerSize = DefaultConfig().MarkerSize
	}
	return &KokiDetector{
		config: config,
		finder: finder,
	}
}

// Open loads libkoki from dir and returns a detector that closes it on Close.
func Open(dir string, config Config, opts ...libkoki.Option) (*KokiDetector, error) {
	lib, err := libkoki.Open(dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("open libkoki: %w", err)
	}
	d := NewKokiDetector(lib, config)
	d.lib = lib
	return d, nil
}

// Detect converts frame to grayscale if needed and returns its markers.
// Calls are serialized.
func (d *KokiDetector) Detect(frame *gocv.Mat) ([]koki.Marker, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	gray := *frame
	if frame.Type() != gocv.MatTypeCV8UC1 {
		converted, err := capture.Grayscale(*frame)
		if err != nil {
			return nil, fmt.Errorf("convert frame: %w", err)
		}
		defer converted.Close()
		gray = converted
	}

	pix := gray.ToBytes()
	img, err := koki.NewImageBuffer(pix, gray.Cols(), gray.Rows(), gray.Cols())
	if err != nil {
		return nil, err
	}

	params := koki.DefaultCameraParams(gray.Cols(), gray.Rows())
	if d.config.Params != nil {
		params = *d.config.Params
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	markers, err := d.finder.FindMarkers(img, d.config.MarkerSize, params)
	if err != nil {
		return nil, fmt.Errorf("find markers: %w", err)
	}
	return markers, nil
}

// Close unloads libkoki if the detector opened it.
func (d *KokiDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lib == nil {
		return nil
	}
	err := d.lib.Close()
	d.lib = nil
	return err
}
