package koki

import "fmt"

// DefaultFocalLength is the focal length, in pixels, used when a camera has
// not been calibrated.
const DefaultFocalLength = 571

// CameraParams holds the pinhole intrinsics used for pose and distance.
type CameraParams struct { // size 24
	FocalLength    Point2Df // offset 0, size 8
	PrincipalPoint Point2Df // offset 8, size 8
	Size           Point2Di // offset 16, size 8
}

// DefaultCameraParams returns intrinsics for an uncalibrated camera producing
// width x height frames, with the principal point at the image centre.
func DefaultCameraParams(width, height int) CameraParams {
	return CameraParams{
		FocalLength:    Point2Df{X: DefaultFocalLength, Y: DefaultFocalLength},
		PrincipalPoint: Point2Df{X: float32(width) / 2, Y: float32(height) / 2},
		Size:           Point2Di{X: int32(width), Y: int32(height)},
	}
}

func (c CameraParams) String() string {
	return fmt.Sprintf("CameraParams (focal_length = %s, principal_point = %s, size = %s)",
		c.FocalLength, c.PrincipalPoint, c.Size)
}
