package features

import (
	"errors"
	"fmt"
	"math"
)

// MediaPipe face-mesh landmark indices.
const (
	NumLandmarks = 468

	// Mouth
	MouthTop             = 13
	MouthBottom          = 14
	MouthUpperInnerLeft  = 82
	MouthLowerInnerLeft  = 87
	MouthUpperInnerRight = 312
	MouthLowerInnerRight = 317
	MouthLeftCorner      = 61
	MouthRightCorner     = 291

	// Face width / height references
	FaceLeft   = 234
	FaceRight  = 454
	FaceTop    = 10
	FaceBottom = 152

	// Brows (inner and mid point of the upper brow contour)
	RightBrowInner = 107
	RightBrowMid   = 105
	LeftBrowInner  = 336
	LeftBrowMid    = 334

	// Upper eyelid points below the brow points above
	RightLidInner = 158
	RightLidMid   = 159
	LeftLidInner  = 385
	LeftLidMid    = 386
)

// Eye landmarks in p1..p6 order: outer corner, upper-outer, upper-inner,
// inner corner, lower-inner, lower-outer. The left eye is mirrored.
var (
	RightEye = [6]int{33, 160, 158, 133, 153, 144}
	LeftEye  = [6]int{362, 385, 387, 263, 373, 380}
)

// ErrMalformedLandmarks is returned when a collaborator hands over a point
// set that does not follow the face-mesh layout.
var ErrMalformedLandmarks = errors.New("malformed landmark set")

// Point is a 2D image point. Pixel y grows downward.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Landmarks is one frame's face mesh.
type Landmarks [NumLandmarks]Point

// FromNormalized builds a Landmarks from normalized [x, y(, z)] points,
// scaling them to a width x height image. z is ignored. An empty point list
// means the detector found no face.
func FromNormalized(points [][]float64, width, height float64) (*Landmarks, error) {
	if len(points) == 0 {
		return nil, ErrNoFaceDetected
	}
	if len(points) != NumLandmarks {
		return nil, fmt.Errorf("%w: got %d points, want %d", ErrMalformedLandmarks, len(points), NumLandmarks)
	}
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	var lm Landmarks
	for i, p := range points {
		if len(p) < 2 {
			return nil, fmt.Errorf("%w: point %d has %d coordinates", ErrMalformedLandmarks, i, len(p))
		}
		lm[i] = Point{X: p[0] * width, Y: p[1] * height}
	}
	return &lm, nil
}
