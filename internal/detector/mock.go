package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/gokoki/internal/koki"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	markers []koki.Marker
	err     error
	calls   int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetMarkers sets the markers that will be returned by Detect.
func (m *MockDetector) SetMarkers(markers []koki.Marker) {
	m.markers = markers
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured markers or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]koki.Marker, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.markers, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// SampleMarker returns a marker with the given code, seen straight on at
// distance metres, with its centre at cx, cy in a 640x480 frame.
func SampleMarker(code int32, distance, cx, cy float32) koki.Marker {
	const half = 20
	m := koki.Marker{
		Code: code,
		Centre: koki.MarkerVertex{
			Image: koki.Point2Df{X: cx, Y: cy},
			World: koki.Point3Df{X: 0, Y: 0, Z: distance},
		},
		Distance: distance,
	}

	corners := [koki.NumVertices][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, c := range corners {
		m.Vertices[i] = koki.MarkerVertex{
			Image: koki.Point2Df{X: cx + c[0]*half, Y: cy + c[1]*half},
			World: koki.Point3Df{X: c[0] * 0.05, Y: c[1] * 0.05, Z: distance},
		}
	}
	return m
}
