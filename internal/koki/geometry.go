package koki

import "fmt"

// Point2Di is koki_point2Di_t.
type Point2Di struct { // size 8
	X int32 // offset 0, size 4
	Y int32 // offset 4, size 4
}

func (p Point2Di) String() string {
	return fmt.Sprintf("Point2Di (x=%d, y=%d)", p.X, p.Y)
}

// Point2Df is koki_point2Df_t.
type Point2Df struct { // size 8
	X float32 // offset 0, size 4
	Y float32 // offset 4, size 4
}

func (p Point2Df) String() string {
	return fmt.Sprintf("Point2Df (x=%f, y=%f)", p.X, p.Y)
}

// Point3Df is koki_point3Df_t.
type Point3Df struct { // size 12
	X float32 // offset 0, size 4
	Y float32 // offset 4, size 4
	Z float32 // offset 8, size 4
}

func (p Point3Df) String() string {
	return fmt.Sprintf("Point3Df (x=%f, y=%f, z=%f)", p.X, p.Y, p.Z)
}

// Bearing is the angular position of a marker relative to the camera axis.
type Bearing struct { // size 12
	X float32 // offset 0, size 4
	Y float32 // offset 4, size 4
	Z float32 // offset 8, size 4
}

func (b Bearing) String() string {
	return fmt.Sprintf("Bearing (x=%f, y=%f, z=%f)", b.X, b.Y, b.Z)
}

// MarkerRotation is the rotation of a marker about each axis.
type MarkerRotation struct { // size 12
	X float32 // offset 0, size 4
	Y float32 // offset 4, size 4
	Z float32 // offset 8, size 4
}

func (r MarkerRotation) String() string {
	return fmt.Sprintf("MarkerRotation (x=%f, y=%f, z=%f)", r.X, r.Y, r.Z)
}
