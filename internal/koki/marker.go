package koki

import (
	"fmt"
	"math"
)

// NumVertices is the number of corners on every marker and quad.
const NumVertices = 4

// MarkerVertex pairs an image-space point with its world-space position.
type MarkerVertex struct { // size 20
	Image Point2Df // offset 0, size 8
	World Point3Df // offset 8, size 12
}

func (v MarkerVertex) String() string {
	return fmt.Sprintf("Marker Vertex (image = %s, world = %s)", v.Image, v.World)
}

// Marker is koki_marker_t, one decoded fiducial.
type Marker struct { // size 136
	Code           int32                     // offset 0, size 4
	Centre         MarkerVertex              // offset 4, size 20
	Bearing        Bearing                   // offset 24, size 12
	Distance       float32                   // offset 36, size 4
	Rotation       MarkerRotation            // offset 40, size 12
	RotationOffset float32                   // offset 52, size 4
	Vertices       [NumVertices]MarkerVertex // offset 56, size 80
}

// Valid reports whether the marker carries a decoded code, a non-negative
// distance, and finite values in every float field.
func (m Marker) Valid() bool {
	return m.Code >= 0 && m.Distance >= 0 && m.finite()
}

func (m Marker) finite() bool {
	fs := []float32{
		m.Distance, m.RotationOffset,
		m.Bearing.X, m.Bearing.Y, m.Bearing.Z,
		m.Rotation.X, m.Rotation.Y, m.Rotation.Z,
	}
	for _, v := range append(m.Vertices[:], m.Centre) {
		fs = append(fs, v.Image.X, v.Image.Y, v.World.X, v.World.Y, v.World.Z)
	}
	for _, f := range fs {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
	}
	return true
}

func (m Marker) String() string {
	return fmt.Sprintf("Marker (\n\tcode=%d,\n\tcentre = %s,\n\tbearing = %s,\n\tdistance=%f,\n\t"+
		"rotation = %s,\n\trotation_offset=%f,\n\tvertices = [\n\t\t%s,\n\t\t%s,\n\t\t%s,\n\t\t%s])",
		m.Code, m.Centre, m.Bearing, m.Distance, m.Rotation, m.RotationOffset,
		m.Vertices[0], m.Vertices[1], m.Vertices[2], m.Vertices[3])
}
