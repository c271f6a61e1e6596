package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/facial-emotion/calibration"
	"github.com/maastricht-university/facial-emotion/classifier"
	"github.com/maastricht-university/facial-emotion/clients"
	cfg "github.com/maastricht-university/facial-emotion/config"
	"github.com/maastricht-university/facial-emotion/features"
)

// FrameSource yields landmark frames in capture order and io.EOF when the
// stream ends.
type FrameSource interface {
	Next(ctx context.Context) (*clients.LandmarkFrame, error)
}

type Pipeline struct {
	cfg  *cfg.Root
	http *clients.HTTP
	log  *logrus.Entry

	// OnCalibrationProgress is called after every warm-up frame.
	OnCalibrationProgress func(count, target int)
	// OnCalibrationEnd is called once the warm-up window closes, with
	// calibration.Complete or calibration.Abandoned.
	OnCalibrationEnd func(calibration.State)
	// OnRecord receives every classified frame.
	OnRecord func(Record)

	now func() time.Time
}

// Summary describes a finished run.
type Summary struct {
	SessionID string
	RunID     string
	Mode      classifier.Mode
	Baseline  *calibration.Baseline
	Stats     Stats
	Records   []Record
	Dir       string
	CSVPath   string
	JSONPath  string
}

func NewPipeline(c *cfg.Root, log *logrus.Logger) *Pipeline {
	return &Pipeline{cfg: c, http: clients.NewHTTP(), log: logrus.NewEntry(log), now: time.Now}
}

// Run drives one session over src: the calibration window first (when
// enabled), then steady-state classification until the stream ends or ctx
// is cancelled. Cancellation is only observed between frames. A source
// error ends the stream early: whatever was recorded is still exported and
// the summary is returned together with the error.
func (p *Pipeline) Run(ctx context.Context, src FrameSource) (*Summary, error) {
	sess, err := NewSession(p.cfg)
	if err != nil {
		return nil, err
	}
	sum := &Summary{SessionID: sessionID(p.now()), RunID: uuid.NewString()}
	log := p.log.WithFields(logrus.Fields{"session": sum.SessionID, "run_id": sum.RunID})

	var (
		eof    bool
		runErr error
	)
	if sess.Calibrating() {
		eof, runErr = p.calibrate(ctx, src, sess, log)
	}
	sum.Mode = sess.Mode()
	sum.Baseline = sess.Baseline()
	log.WithField("mode", sum.Mode).Info("running")

	if !eof && runErr == nil {
		sum.Records, runErr = p.classify(ctx, src, sess, log)
	}
	if runErr != nil {
		log.WithError(runErr).Error("stream stopped early")
	}
	sum.Stats = sess.Stats()
	log.WithFields(logrus.Fields{
		"classified": sum.Stats.Classified,
		"no_face":    sum.Stats.NoFace,
	}).Info("session finished")

	// export must still happen after a cancelled or failed run
	if err := p.export(context.WithoutCancel(ctx), sum, sess, log); err != nil {
		return sum, errors.Join(runErr, err)
	}
	return sum, runErr
}

// calibrate fills the warm-up window. It reports eof when the stream ended
// before steady state could begin.
func (p *Pipeline) calibrate(ctx context.Context, src FrameSource, sess *Session, log *logrus.Entry) (bool, error) {
	cal := sess.Calibrator()
	maxFrames := p.cfg.Calibration.MaxFrames
	log.WithField("frames", cal.Target()).Info("calibration: keep a neutral face")

	defer func() {
		if p.OnCalibrationEnd != nil {
			p.OnCalibrationEnd(cal.State())
		}
	}()

	seen := 0
	for sess.Calibrating() {
		if ctx.Err() != nil {
			sess.AbandonCalibration()
			log.WithField("progress", cal.Progress()).Warn("calibration cancelled")
			return false, nil
		}
		if maxFrames > 0 && seen >= maxFrames {
			sess.AbandonCalibration()
			log.WithFields(logrus.Fields{"frames": seen, "progress": cal.Progress()}).
				Warn("calibration window expired without enough faces")
			return false, nil
		}

		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			sess.AbandonCalibration()
			log.WithFields(logrus.Fields{"observed": cal.Count(), "progress": cal.Progress()}).
				Warn("stream ended during calibration")
			return true, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			sess.AbandonCalibration()
			return false, fmt.Errorf("calibration: %w", err)
		}
		seen++

		done, err := sess.Observe(p.landmarks(f, log))
		if err != nil && !errors.Is(err, features.ErrNoFaceDetected) {
			sess.AbandonCalibration()
			return false, fmt.Errorf("calibration: %w", err)
		}
		if p.OnCalibrationProgress != nil {
			p.OnCalibrationProgress(cal.Count(), cal.Target())
		}
		if done {
			log.WithFields(paramFields(sess.Baseline().Params)).Info("calibration complete")
		}
	}
	return false, nil
}

func (p *Pipeline) classify(ctx context.Context, src FrameSource, sess *Session, log *logrus.Entry) ([]Record, error) {
	var recs []Record
	every := p.cfg.Export.LogEvery
	for ctx.Err() == nil {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return recs, fmt.Errorf("frame source: %w", err)
		}

		rec, err := sess.Process(f.TimestampMS, p.landmarks(f, log))
		if errors.Is(err, features.ErrNoFaceDetected) {
			log.WithField("timestamp", f.TimestampMS).Debug("no face detected")
			continue
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, *rec)
		if p.OnRecord != nil {
			p.OnRecord(*rec)
		}
		if every > 0 && rec.Frame%every == 0 {
			log.WithFields(paramFields(rec.Smoothed)).WithFields(logrus.Fields{
				"frame":   rec.Frame,
				"mode":    rec.Mode,
				"emotion": rec.Emotion,
			}).Info("frame")
		}
	}
	return recs, nil
}

// landmarks converts a collaborator frame. Anything unusable, including a
// point set that breaks the mesh layout, becomes a no-face frame.
func (p *Pipeline) landmarks(f *clients.LandmarkFrame, log *logrus.Entry) *features.Landmarks {
	lm, err := features.FromNormalized(f.Landmarks, f.Width, f.Height)
	if errors.Is(err, features.ErrMalformedLandmarks) {
		log.WithError(err).Warn("dropping frame")
	}
	return lm
}

func (p *Pipeline) export(ctx context.Context, sum *Summary, sess *Session, log *logrus.Entry) error {
	ex := p.cfg.Export
	if p.cfg.Paths.Outputs != "" && (ex.CSV || ex.JSON) {
		dir, err := mkSessionDir(p.cfg.Paths.Outputs, sum.SessionID)
		if err != nil {
			return err
		}
		b := &PersistBundle{
			SessionID:   sum.SessionID,
			RunID:       sum.RunID,
			GeneratedAt: p.now(),
			Calibration: CalibrationInfo{Enabled: sum.Baseline != nil},
			Smoothing:   SmoothingInfo{Enabled: true, Alpha: sess.Alpha()},
			Stats:       sum.Stats,
		}
		if sum.Baseline != nil {
			b.Calibration.Baseline = &sum.Baseline.Params
		}
		if sum.CSVPath, sum.JSONPath, err = persist(dir, b, sum.Records, ex.CSV, ex.JSON); err != nil {
			return err
		}
		sum.Dir = dir
		log.WithFields(logrus.Fields{"csv": sum.CSVPath, "json": sum.JSONPath}).Info("results saved")
	}

	url := p.cfg.Services.Visualization.URL
	if url == "" || len(sum.Records) == 0 {
		return nil
	}
	ts, emo := timeline(sum.Records)
	if _, err := p.http.GenerateTimeline(ctx, url, clients.TimelineReq{
		SessionID:  sum.SessionID,
		Timestamps: ts,
		Emotions:   emo,
		Mode:       string(sum.Mode),
		OutputDir:  sum.Dir,
	}); err != nil {
		log.WithError(err).Warn("visualization timeline failed")
	}
	cats, vals := distribution(sum.Stats)
	if _, err := p.http.GenerateRadar(ctx, url, clients.RadarReq{
		Categories: cats,
		Values:     vals,
		SessionID:  sum.SessionID,
		OutputDir:  sum.Dir,
	}); err != nil {
		log.WithError(err).Warn("visualization radar failed")
	}
	return nil
}
