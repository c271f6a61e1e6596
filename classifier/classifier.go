// Package classifier maps a smoothed parameter vector to one of five
// emotions using priority-ordered rules.
package classifier

import "github.com/maastricht-university/facial-emotion/features"

type Emotion string

const (
	Surprised Emotion = "Surprised"
	Happy     Emotion = "Happy"
	Angry     Emotion = "Angry"
	Sad       Emotion = "Sad"
	Neutral   Emotion = "Neutral"
)

// Emotions lists every label in rule priority order.
var Emotions = []Emotion{Surprised, Happy, Angry, Sad, Neutral}

type Mode string

const (
	ModeCalibrated Mode = "calibrated"
	ModeAbsolute   Mode = "absolute"
)

// ModeFor returns the mode selected by the presence of a baseline.
func ModeFor(baseline *features.Params) Mode {
	if baseline != nil {
		return ModeCalibrated
	}
	return ModeAbsolute
}

type Result struct {
	Emotion Emotion `json:"emotion"`
	Mode    Mode    `json:"mode"`
}

type Classifier struct {
	absolute []Rule
	delta    []Rule
}

func New(absolute, delta Thresholds) *Classifier {
	return &Classifier{
		absolute: AbsoluteRules(absolute),
		delta:    DeltaRules(delta),
	}
}

// Default returns a Classifier using the stock thresholds.
func Default() *Classifier {
	return New(DefaultAbsolute(), DefaultDelta())
}

// Classify labels smoothed. With a baseline every rule sees
// smoothed - baseline instead of the absolute values.
func (c *Classifier) Classify(smoothed features.Params, baseline *features.Params) Result {
	if baseline == nil {
		return Result{Emotion: FirstMatch(c.absolute, smoothed), Mode: ModeAbsolute}
	}
	return Result{Emotion: FirstMatch(c.delta, smoothed.Sub(*baseline)), Mode: ModeCalibrated}
}
