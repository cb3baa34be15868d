// Package detector finds fiducial markers in video frames.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/gokoki/internal/koki"
)

// Detector defines the interface for marker detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the markers found in it.
	// Returns an empty slice if no markers are visible.
	Detect(frame *gocv.Mat) ([]koki.Marker, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for marker detection.
type Config struct {
	// MarkerSize is the physical edge length of the markers, in metres
	// (default: 0.1).
	MarkerSize float32

	// Params are the camera intrinsics. When nil, uncalibrated intrinsics
	// are derived from each frame's size.
	Params *koki.CameraParams
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MarkerSize: 0.1,
	}
}
