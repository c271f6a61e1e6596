package orchestrator

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/facial-emotion/classifier"
	"github.com/maastricht-university/facial-emotion/features"
)

// distribution returns each emotion's share of classified frames, in rule
// priority order.
func distribution(st Stats) ([]string, []float64) {
	cats := make([]string, 0, len(classifier.Emotions))
	vals := make([]float64, 0, len(classifier.Emotions))
	for _, e := range classifier.Emotions {
		share := 0.0
		if st.Classified > 0 {
			share = float64(st.Emotions[e]) / float64(st.Classified)
		}
		cats = append(cats, string(e))
		vals = append(vals, share)
	}
	return cats, vals
}

func timeline(recs []Record) ([]int64, []string) {
	ts := make([]int64, 0, len(recs))
	emo := make([]string, 0, len(recs))
	for _, r := range recs {
		ts = append(ts, r.Timestamp)
		emo = append(emo, string(r.Emotion))
	}
	return ts, emo
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func paramFields(p features.Params) logrus.Fields {
	f := logrus.Fields{}
	for k, v := range p.Map() {
		f[k] = round5(v)
	}
	return f
}
