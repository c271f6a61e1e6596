// Package calibration builds a per-person neutral-face baseline from a
// fixed warm-up window of parameter snapshots.
package calibration

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/maastricht-university/facial-emotion/features"
)

// DefaultFrameCount is the warm-up length in observed frames.
const DefaultFrameCount = 90

var (
	ErrCalibrationAbandoned = errors.New("calibration abandoned")
	ErrIncomplete           = errors.New("calibration window not filled")
	ErrWindowFull           = errors.New("calibration window already full")
	ErrClosed               = errors.New("calibration already finished")
	ErrInvalidFrameCount    = errors.New("calibration frame count must be positive")
)

// State of a Calibrator. Complete and Abandoned are terminal.
type State int

const (
	Collecting State = iota
	Complete
	Abandoned
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Complete:
		return "complete"
	case Abandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Baseline is the averaged neutral face. It is immutable once produced.
type Baseline struct {
	features.Params
	Frames int `json:"frames"`
}

// Calibrator accumulates raw snapshots until it holds exactly n of them.
type Calibrator struct {
	n         int
	state     State
	snapshots []features.Params
	observed  int // survives Finalize and Abandon
}

func New(n int) (*Calibrator, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFrameCount, n)
	}
	return &Calibrator{n: n, snapshots: make([]features.Params, 0, n)}, nil
}

// State returns the current state.
func (c *Calibrator) State() State { return c.state }

// Target is the number of snapshots needed.
func (c *Calibrator) Target() int { return c.n }

// Count is the number of snapshots accepted so far. It keeps its value
// after the calibrator reaches a terminal state.
func (c *Calibrator) Count() int { return c.observed }

// Ready reports whether Finalize can succeed.
func (c *Calibrator) Ready() bool {
	return c.state == Collecting && len(c.snapshots) == c.n
}

// Progress returns collection progress as an integer percentage.
func (c *Calibrator) Progress() int {
	if c.state == Complete {
		return 100
	}
	return c.observed * 100 / c.n
}

// Observe records one snapshot. It returns true once the window is full.
func (c *Calibrator) Observe(p features.Params) (bool, error) {
	switch {
	case c.state == Abandoned:
		return false, ErrCalibrationAbandoned
	case c.state != Collecting:
		return false, ErrClosed
	case len(c.snapshots) == c.n:
		return true, ErrWindowFull
	}
	c.snapshots = append(c.snapshots, p)
	c.observed++
	return len(c.snapshots) == c.n, nil
}

// Abandon ends calibration without a baseline. It is a no-op once terminal.
func (c *Calibrator) Abandon() {
	if c.state != Collecting {
		return
	}
	c.state = Abandoned
	c.snapshots = nil
}

// Finalize averages each parameter over the collected window and moves
// the calibrator to Complete. The snapshots are released afterwards.
func (c *Calibrator) Finalize() (*Baseline, error) {
	switch {
	case c.state == Abandoned:
		return nil, ErrCalibrationAbandoned
	case c.state != Collecting:
		return nil, ErrClosed
	case len(c.snapshots) < c.n:
		return nil, fmt.Errorf("%w: %d of %d frames", ErrIncomplete, len(c.snapshots), c.n)
	}

	var mean [5]float64
	column := make([]float64, len(c.snapshots))
	for k := range mean {
		for i, s := range c.snapshots {
			column[i] = s.Values()[k]
		}
		mean[k] = shiftedMean(column)
	}

	c.state = Complete
	c.snapshots = nil
	return &Baseline{Params: features.FromValues(mean), Frames: c.n}, nil
}

// shiftedMean averages around the first sample so a constant column comes
// back bit-for-bit.
func shiftedMean(xs []float64) float64 {
	shift := xs[0]
	floats.AddConst(-shift, xs)
	return shift + stat.Mean(xs, nil)
}
