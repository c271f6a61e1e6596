// Package smoothing low-pass filters the per-frame parameter vector.
package smoothing

import (
	"errors"
	"fmt"
	"math"

	"github.com/maastricht-university/facial-emotion/features"
)

// DefaultAlpha is the blend weight given to the newest sample.
const DefaultAlpha = 0.3

var ErrInvalidAlpha = errors.New("alpha must be within [0, 1]")

// Smoother is an exponential moving average, one channel per parameter.
// The first sample passes through unchanged.
type Smoother struct {
	alpha  float64
	prev   features.Params
	primed bool
}

func New(alpha float64) (*Smoother, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	return &Smoother{alpha: alpha}, nil
}

// Alpha returns the configured blend weight.
func (s *Smoother) Alpha() float64 { return s.alpha }

// Update blends raw into the running state and returns the smoothed vector.
func (s *Smoother) Update(raw features.Params) features.Params {
	if !s.primed {
		s.prev = raw
		s.primed = true
		return raw
	}
	prev, cur := s.prev.Values(), raw.Values()
	for i := range prev {
		// same as alpha*cur + (1-alpha)*prev, but never steps past cur
		prev[i] += s.alpha * (cur[i] - prev[i])
	}
	s.prev = features.FromValues(prev)
	return s.prev
}
