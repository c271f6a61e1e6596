package orchestrator

import (
	"github.com/maastricht-university/facial-emotion/classifier"
	"github.com/maastricht-university/facial-emotion/features"
)

// Record is the per-frame output handed to rendering, logging and export.
type Record struct {
	Frame     int                `json:"frame"`     // 1-based, counts classified frames only
	Timestamp int64              `json:"timestamp"` // ms, as reported by the landmark source
	Emotion   classifier.Emotion `json:"emotion"`
	Mode      classifier.Mode    `json:"mode"`
	Raw       features.Params    `json:"raw"`
	Smoothed  features.Params    `json:"smoothed"`
}

type Stats struct {
	CalibrationFrames int                        `json:"calibration_frames"` // frames spent in the warm-up window
	Frames            int                        `json:"frames"`             // steady-state frames
	Classified        int                        `json:"classified"`
	NoFace            int                        `json:"no_face"`
	Emotions          map[classifier.Emotion]int `json:"emotions"`
}

func newStats() Stats {
	return Stats{Emotions: make(map[classifier.Emotion]int, len(classifier.Emotions))}
}

func (s Stats) clone() Stats {
	out := s
	out.Emotions = make(map[classifier.Emotion]int, len(s.Emotions))
	for k, v := range s.Emotions {
		out.Emotions[k] = v
	}
	return out
}
