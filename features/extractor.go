package features

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoFaceDetected marks a frame without a usable face.
var ErrNoFaceDetected = errors.New("no face detected")

// Extraction carries the parameter vector plus per-eye detail.
type Extraction struct {
	Params
	EARLeft  float64 `json:"ear_left"`
	EARRight float64 `json:"ear_right"`
}

// Extract converts a face mesh into the five-parameter vector.
func Extract(lm *Landmarks) (Params, error) {
	e, err := ExtractDetailed(lm)
	if err != nil {
		return Params{}, err
	}
	return e.Params, nil
}

// ExtractDetailed is Extract plus the individual eye aspect ratios.
// A nil mesh or any non-finite value is reported as ErrNoFaceDetected.
func ExtractDetailed(lm *Landmarks) (Extraction, error) {
	if lm == nil {
		return Extraction{}, ErrNoFaceDetected
	}
	right := EyeAspectRatio(lm, RightEye)
	left := EyeAspectRatio(lm, LeftEye)
	e := Extraction{
		Params: Params{
			EARAvg:     (right + left) / 2,
			MAR:        MouthAspectRatio(lm),
			SmileCoeff: SmileCoefficient(lm),
			MouthWidth: MouthWidth(lm),
			BrowDist:   BrowDistance(lm),
		},
		EARLeft:  left,
		EARRight: right,
	}
	if !e.Finite() {
		return Extraction{}, fmt.Errorf("%w: non-finite parameter", ErrNoFaceDetected)
	}
	return e, nil
}

// EyeAspectRatio is (|p2-p6| + |p3-p5|) / (2 |p1-p4|).
func EyeAspectRatio(lm *Landmarks, eye [6]int) float64 {
	p1, p2, p3, p4, p5, p6 := lm[eye[0]], lm[eye[1]], lm[eye[2]], lm[eye[3]], lm[eye[4]], lm[eye[5]]
	return ratio(p2.Dist(p6)+p3.Dist(p5), 2*p1.Dist(p4))
}

// MouthAspectRatio averages three vertical mouth openings over the mouth width.
func MouthAspectRatio(lm *Landmarks) float64 {
	a := lm[MouthTop].Dist(lm[MouthBottom])
	b := lm[MouthUpperInnerLeft].Dist(lm[MouthLowerInnerLeft])
	c := lm[MouthUpperInnerRight].Dist(lm[MouthLowerInnerRight])
	return ratio(a+b+c, 3*lm[MouthLeftCorner].Dist(lm[MouthRightCorner]))
}

// SmileCoefficient is positive when the mouth corners sit above the mouth center.
func SmileCoefficient(lm *Landmarks) float64 {
	cornerY := (lm[MouthLeftCorner].Y + lm[MouthRightCorner].Y) / 2
	return ratio(lm[MouthTop].Y-cornerY, faceHeight(lm))
}

// MouthWidth is the corner-to-corner distance over the face width.
func MouthWidth(lm *Landmarks) float64 {
	return ratio(lm[MouthLeftCorner].Dist(lm[MouthRightCorner]), lm[FaceLeft].Dist(lm[FaceRight]))
}

// BrowDistance averages four brow-to-upper-lid vertical gaps over the face height.
func BrowDistance(lm *Landmarks) float64 {
	pairs := [4][2]int{
		{RightBrowInner, RightLidInner},
		{RightBrowMid, RightLidMid},
		{LeftBrowInner, LeftLidInner},
		{LeftBrowMid, LeftLidMid},
	}
	var sum float64
	for _, p := range pairs {
		sum += math.Abs(lm[p[1]].Y - lm[p[0]].Y)
	}
	return ratio(sum/4, faceHeight(lm))
}

func faceHeight(lm *Landmarks) float64 {
	return lm[FaceTop].Dist(lm[FaceBottom])
}

// ratio returns 0 for a degenerate denominator.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
