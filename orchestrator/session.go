package orchestrator

import (
	"github.com/maastricht-university/facial-emotion/calibration"
	"github.com/maastricht-university/facial-emotion/classifier"
	cfg "github.com/maastricht-university/facial-emotion/config"
	"github.com/maastricht-university/facial-emotion/features"
	"github.com/maastricht-university/facial-emotion/smoothing"
)

// Session owns all per-person state: the smoother, the calibrator and
// the baseline it produced. Sessions are independent of each other and
// are not safe for concurrent use.
type Session struct {
	smoother   *smoothing.Smoother
	calibrator *calibration.Calibrator // nil when calibration is disabled
	classifier *classifier.Classifier
	baseline   *calibration.Baseline
	frame      int
	stats      Stats
}

// NewSession validates c and builds a fresh session from it.
func NewSession(c *cfg.Root) (*Session, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sm, err := smoothing.New(c.Smoothing.Alpha)
	if err != nil {
		return nil, err
	}
	s := &Session{
		smoother:   sm,
		classifier: classifier.New(c.Classifier.Absolute, c.Classifier.Delta),
		stats:      newStats(),
	}
	if c.Calibration.Enabled {
		if s.calibrator, err = calibration.New(c.Calibration.FrameCount); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Calibrating reports whether the warm-up window is still open.
func (s *Session) Calibrating() bool {
	return s.calibrator != nil && s.calibrator.State() == calibration.Collecting
}

// Calibrator exposes the warm-up state, nil when calibration is disabled.
func (s *Session) Calibrator() *calibration.Calibrator { return s.calibrator }

// Observe feeds one warm-up frame to the calibrator. Frames without a face
// are not counted. Once the window fills the baseline is computed and
// done is true.
func (s *Session) Observe(lm *features.Landmarks) (done bool, err error) {
	if !s.Calibrating() {
		return false, calibration.ErrClosed
	}
	s.stats.CalibrationFrames++
	raw, err := features.Extract(lm)
	if err != nil {
		s.stats.NoFace++
		return false, err
	}
	if _, err := s.calibrator.Observe(raw); err != nil {
		return false, err
	}
	if !s.calibrator.Ready() {
		return false, nil
	}
	b, err := s.calibrator.Finalize()
	if err != nil {
		return false, err
	}
	s.baseline = b
	return true, nil
}

// AbandonCalibration closes the warm-up window without a baseline.
func (s *Session) AbandonCalibration() {
	if s.calibrator != nil {
		s.calibrator.Abandon()
	}
}

// Baseline returns the neutral-face baseline, nil in absolute mode.
func (s *Session) Baseline() *calibration.Baseline { return s.baseline }

// Mode returns the classification mode for the remainder of the session.
func (s *Session) Mode() classifier.Mode {
	return classifier.ModeFor(s.baselineParams())
}

func (s *Session) baselineParams() *features.Params {
	if s.baseline == nil {
		return nil
	}
	return &s.baseline.Params
}

// Alpha is the smoothing weight in use.
func (s *Session) Alpha() float64 { return s.smoother.Alpha() }

// Stats returns a copy of the running counters.
func (s *Session) Stats() Stats { return s.stats.clone() }

// Process runs extract, smooth and classify for one steady-state frame.
// A still-open warm-up window is abandoned first so the mode cannot change
// mid-session. Frames without a face return ErrNoFaceDetected and leave
// the smoother untouched.
func (s *Session) Process(timestampMS int64, lm *features.Landmarks) (*Record, error) {
	if s.Calibrating() {
		s.AbandonCalibration()
	}
	s.stats.Frames++

	raw, err := features.Extract(lm)
	if err != nil {
		s.stats.NoFace++
		return nil, err
	}
	smoothed := s.smoother.Update(raw)

	res := s.classifier.Classify(smoothed, s.baselineParams())

	s.frame++
	s.stats.Classified++
	s.stats.Emotions[res.Emotion]++
	return &Record{
		Frame:     s.frame,
		Timestamp: timestampMS,
		Emotion:   res.Emotion,
		Mode:      res.Mode,
		Raw:       raw,
		Smoothed:  smoothed,
	}, nil
}
