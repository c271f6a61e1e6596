package classifier

import "github.com/maastricht-university/facial-emotion/features"

// Thresholds holds every tunable constant of one rule table. In delta mode
// the same fields are compared against smoothed-minus-baseline values.
type Thresholds struct {
	SurprisedEAR float64 `yaml:"surprised_ear" json:"surprised_ear"`
	SurprisedMAR float64 `yaml:"surprised_mar" json:"surprised_mar"`

	HappySmile      float64 `yaml:"happy_smile" json:"happy_smile"`
	HappyMAR        float64 `yaml:"happy_mar" json:"happy_mar"`
	HappyMouthWidth float64 `yaml:"happy_mouth_width" json:"happy_mouth_width"`

	AngrySmile float64 `yaml:"angry_smile" json:"angry_smile"`
	AngryBrow  float64 `yaml:"angry_brow" json:"angry_brow"`
	AngryEAR   float64 `yaml:"angry_ear" json:"angry_ear"`
	AngryMAR   float64 `yaml:"angry_mar" json:"angry_mar"`

	SadSmile float64 `yaml:"sad_smile" json:"sad_smile"`
	SadEAR   float64 `yaml:"sad_ear" json:"sad_ear"`
	SadBrow  float64 `yaml:"sad_brow" json:"sad_brow"`
}

// DefaultAbsolute returns the thresholds used without a baseline.
func DefaultAbsolute() Thresholds {
	return Thresholds{
		SurprisedEAR: 0.30,
		SurprisedMAR: 0.5,

		HappySmile:      0.005,
		HappyMAR:        0.1,
		HappyMouthWidth: 0.43,

		AngrySmile: 0.005,
		AngryBrow:  0.055,
		AngryEAR:   0.26,
		AngryMAR:   0.15,

		SadSmile: -0.005,
		SadEAR:   0.26,
		SadBrow:  0.055,
	}
}

// DefaultDelta returns the thresholds applied to deviations from a baseline.
func DefaultDelta() Thresholds {
	return Thresholds{
		SurprisedEAR: 0.04,
		SurprisedMAR: 0.35,

		HappySmile:      0.006,
		HappyMAR:        -0.01,
		HappyMouthWidth: 0.015,

		AngrySmile: -0.006,
		AngryBrow:  -0.02,
		AngryEAR:   -0.03,
		AngryMAR:   0.08,

		SadSmile: -0.006,
		SadEAR:   -0.03,
		SadBrow:  -0.02,
	}
}

// Rule pairs a predicate with the label it yields.
type Rule struct {
	Emotion Emotion
	Match   func(v features.Params) bool
}

// AbsoluteRules builds the priority-ordered table for raw smoothed values.
func AbsoluteRules(t Thresholds) []Rule {
	return []Rule{
		{Surprised, func(v features.Params) bool {
			return v.EARAvg > t.SurprisedEAR && v.MAR > t.SurprisedMAR
		}},
		{Happy, func(v features.Params) bool {
			return v.SmileCoeff > t.HappySmile && (v.MAR >= t.HappyMAR || v.MouthWidth > t.HappyMouthWidth)
		}},
		// either a furrowed brow alone, or narrow eyes with a tight mouth
		{Angry, func(v features.Params) bool {
			return v.SmileCoeff < t.AngrySmile && (v.BrowDist < t.AngryBrow || (v.EARAvg < t.AngryEAR && v.MAR < t.AngryMAR))
		}},
		// eye and brow guards keep angry faces out of Sad
		{Sad, func(v features.Params) bool {
			return v.SmileCoeff < t.SadSmile && v.EARAvg >= t.SadEAR && v.BrowDist >= t.SadBrow
		}},
	}
}

// DeltaRules builds the priority-ordered table for baseline deviations.
func DeltaRules(t Thresholds) []Rule {
	return []Rule{
		{Surprised, func(d features.Params) bool {
			return d.EARAvg > t.SurprisedEAR && d.MAR > t.SurprisedMAR
		}},
		{Happy, func(d features.Params) bool {
			return d.SmileCoeff > t.HappySmile && (d.MAR > t.HappyMAR || d.MouthWidth > t.HappyMouthWidth)
		}},
		{Angry, func(d features.Params) bool {
			return d.SmileCoeff < t.AngrySmile && (d.BrowDist < t.AngryBrow || (d.EARAvg < t.AngryEAR && d.MAR < t.AngryMAR))
		}},
		{Sad, func(d features.Params) bool {
			return d.SmileCoeff < t.SadSmile && d.EARAvg >= t.SadEAR && d.BrowDist >= t.SadBrow
		}},
	}
}

// FirstMatch returns the label of the first matching rule, or Neutral.
func FirstMatch(rules []Rule, v features.Params) Emotion {
	for _, r := range rules {
		if r.Match(v) {
			return r.Emotion
		}
	}
	return Neutral
}
