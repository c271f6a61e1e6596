package orchestrator

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/facial-emotion/calibration"
	"github.com/maastricht-university/facial-emotion/classifier"
	"github.com/maastricht-university/facial-emotion/clients"
	cfg "github.com/maastricht-university/facial-emotion/config"
)

type sliceSource struct {
	frames []*clients.LandmarkFrame
	i      int
	err    error     // returned once frames run out, instead of io.EOF
	onNext func(int) // called before each read with the read index
}

func (s *sliceSource) Next(ctx context.Context) (*clients.LandmarkFrame, error) {
	if s.onNext != nil {
		s.onNext(s.i)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.i >= len(s.frames) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestPipeline(c *cfg.Root) *Pipeline {
	p := NewPipeline(c, quietLogger())
	p.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }
	return p
}

func TestRunCalibrated(t *testing.T) {
	c := testConfig(true, 3)
	c.Paths.Outputs = t.TempDir()
	c.Export.LogEvery = 1

	src := &sliceSource{frames: []*clients.LandmarkFrame{
		faceFrame(1, neutralFace),
		noFaceFrame(2),
		faceFrame(3, neutralFace),
		faceFrame(4, neutralFace),
		faceFrame(5, surprisedFace),
		noFaceFrame(6),
		faceFrame(7, neutralFace),
	}}

	p := newTestPipeline(c)
	var progress []int
	p.OnCalibrationProgress = func(n, target int) {
		assert.Equal(t, 3, target)
		progress = append(progress, n)
	}
	var ended []calibration.State
	p.OnCalibrationEnd = func(st calibration.State) { ended = append(ended, st) }
	var seen []Record
	p.OnRecord = func(r Record) { seen = append(seen, r) }

	sum, err := p.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, 2, 3}, progress)
	assert.Equal(t, []calibration.State{calibration.Complete}, ended)
	assert.Equal(t, classifier.ModeCalibrated, sum.Mode)
	require.NotNil(t, sum.Baseline)
	assert.InDelta(t, 0.28, sum.Baseline.EARAvg, 1e-9)

	require.Len(t, sum.Records, 2)
	if diff := cmp.Diff(sum.Records, seen); diff != "" {
		t.Errorf("OnRecord saw a different sequence (-summary +hook):\n%s", diff)
	}
	assert.Equal(t, classifier.Surprised, sum.Records[0].Emotion)
	assert.Equal(t, int64(5), sum.Records[0].Timestamp)
	assert.Equal(t, 2, sum.Records[1].Frame)
	for _, r := range sum.Records {
		assert.Equal(t, classifier.ModeCalibrated, r.Mode)
	}

	assert.Equal(t, 4, sum.Stats.CalibrationFrames)
	assert.Equal(t, 3, sum.Stats.Frames)
	assert.Equal(t, 2, sum.Stats.NoFace)
	assert.Equal(t, 2, sum.Stats.Classified)

	assert.Equal(t, "session_20261018-093000", sum.SessionID)
	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, filepath.Join(c.Paths.Outputs, sum.SessionID), sum.Dir)

	f, err := os.Open(sum.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader(), rows[0])
	assert.Equal(t, []string{"1", "5", "Surprised", "calibrated"}, rows[1][:4])
	assert.Equal(t, "0.34", rows[1][4])

	raw, err := os.ReadFile(sum.JSONPath)
	require.NoError(t, err)
	var bundle struct {
		Session     string `json:"session"`
		Calibration struct {
			Enabled  bool               `json:"enabled"`
			Baseline map[string]float64 `json:"baseline"`
		} `json:"calibration"`
		Smoothing struct {
			Enabled bool    `json:"enabled"`
			Alpha   float64 `json:"alpha"`
		} `json:"smoothing"`
		Frames []map[string]any `json:"frames"`
	}
	require.NoError(t, json.Unmarshal(raw, &bundle))
	assert.Equal(t, sum.SessionID, bundle.Session)
	assert.True(t, bundle.Calibration.Enabled)
	assert.InDelta(t, 0.1, bundle.Calibration.Baseline["mar"], 1e-9)
	assert.True(t, bundle.Smoothing.Enabled)
	assert.Equal(t, 0.3, bundle.Smoothing.Alpha)
	require.Len(t, bundle.Frames, 2)
	assert.Equal(t, "Surprised", bundle.Frames[0]["emotion"])
	assert.Equal(t, 0.55, bundle.Frames[0]["mar_raw"])
}

func TestRunAbsoluteWhenDisabled(t *testing.T) {
	src := &sliceSource{frames: []*clients.LandmarkFrame{
		faceFrame(1, faceShape{ear: 0.32, mar: 0.55, brow: 0.06}),
		faceFrame(2, neutralFace),
	}}
	sum, err := newTestPipeline(testConfig(false, 3)).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, classifier.ModeAbsolute, sum.Mode)
	assert.Nil(t, sum.Baseline)
	require.Len(t, sum.Records, 2)
	assert.Equal(t, classifier.Surprised, sum.Records[0].Emotion)
	assert.Empty(t, sum.Dir)
	assert.Empty(t, sum.CSVPath)
}

func TestRunStreamEndsDuringCalibration(t *testing.T) {
	c := testConfig(true, 90)
	c.Paths.Outputs = t.TempDir()
	c.Export.CSV = false

	src := &sliceSource{frames: []*clients.LandmarkFrame{faceFrame(1, neutralFace), noFaceFrame(2)}}
	p := newTestPipeline(c)
	var ended []calibration.State
	p.OnCalibrationEnd = func(st calibration.State) { ended = append(ended, st) }
	sum, err := p.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, []calibration.State{calibration.Abandoned}, ended)

	assert.Equal(t, classifier.ModeAbsolute, sum.Mode)
	assert.Nil(t, sum.Baseline)
	assert.Empty(t, sum.Records)
	assert.Empty(t, sum.CSVPath)
	assert.FileExists(t, sum.JSONPath)
}

func TestRunCalibrationWindowExpires(t *testing.T) {
	c := testConfig(true, 3)
	c.Calibration.MaxFrames = 3

	src := &sliceSource{frames: []*clients.LandmarkFrame{
		noFaceFrame(1),
		faceFrame(2, neutralFace),
		noFaceFrame(3),
		faceFrame(4, faceShape{ear: 0.32, mar: 0.55, brow: 0.06}),
	}}
	sum, err := newTestPipeline(c).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, classifier.ModeAbsolute, sum.Mode)
	require.Len(t, sum.Records, 1)
	assert.Equal(t, classifier.Surprised, sum.Records[0].Emotion)
	assert.Equal(t, 3, sum.Stats.CalibrationFrames)
}

func TestRunCancelledDuringCalibration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make([]*clients.LandmarkFrame, 10)
	for i := range frames {
		frames[i] = faceFrame(int64(i), neutralFace)
	}
	src := &sliceSource{frames: frames, onNext: func(i int) {
		if i == 2 {
			cancel()
		}
	}}

	sum, err := newTestPipeline(testConfig(true, 5)).Run(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, classifier.ModeAbsolute, sum.Mode)
	assert.Empty(t, sum.Records)
	assert.Equal(t, 2, src.i)
}

func TestRunCancelledInSteadyState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make([]*clients.LandmarkFrame, 10)
	for i := range frames {
		frames[i] = faceFrame(int64(i), neutralFace)
	}
	src := &sliceSource{frames: frames}
	p := newTestPipeline(testConfig(false, 1))
	p.OnRecord = func(r Record) {
		if r.Frame == 4 {
			cancel()
		}
	}

	sum, err := p.Run(ctx, src)
	require.NoError(t, err)
	assert.Len(t, sum.Records, 4)
}

func TestRunMalformedFrameIsSkipped(t *testing.T) {
	src := &sliceSource{frames: []*clients.LandmarkFrame{
		{TimestampMS: 1, Landmarks: [][]float64{{0.1, 0.1}, {0.2, 0.2}}},
		faceFrame(2, neutralFace),
	}}
	sum, err := newTestPipeline(testConfig(false, 1)).Run(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, sum.Records, 1)
	assert.Equal(t, int64(2), sum.Records[0].Timestamp)
	assert.Equal(t, 1, sum.Stats.NoFace)
}

func TestRunSourceError(t *testing.T) {
	boom := errors.New("camera unplugged")

	_, err := newTestPipeline(testConfig(false, 1)).Run(context.Background(), &sliceSource{err: boom})
	assert.ErrorIs(t, err, boom)

	_, err = newTestPipeline(testConfig(true, 2)).Run(context.Background(), &sliceSource{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestRunSourceErrorKeepsRecords(t *testing.T) {
	boom := errors.New("camera unplugged")
	c := testConfig(false, 1)
	c.Paths.Outputs = t.TempDir()

	src := &sliceSource{frames: []*clients.LandmarkFrame{
		noFaceFrame(1),
		faceFrame(2, neutralFace),
		faceFrame(3, neutralFace),
	}, err: boom}
	sum, err := newTestPipeline(c).Run(context.Background(), src)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, sum)
	assert.Len(t, sum.Records, 2)
	assert.Equal(t, 1, sum.Stats.NoFace)

	f, err := os.Open(sum.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.FileExists(t, sum.JSONPath)
}

func TestRunSourceErrorDuringCalibration(t *testing.T) {
	boom := errors.New("camera unplugged")
	c := testConfig(true, 5)
	c.Paths.Outputs = t.TempDir()

	src := &sliceSource{frames: []*clients.LandmarkFrame{faceFrame(1, neutralFace)}, err: boom}
	p := newTestPipeline(c)
	var ended []calibration.State
	p.OnCalibrationEnd = func(st calibration.State) { ended = append(ended, st) }

	sum, err := p.Run(context.Background(), src)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, sum)
	assert.Equal(t, classifier.ModeAbsolute, sum.Mode)
	assert.Nil(t, sum.Baseline)
	assert.Empty(t, sum.Records)
	assert.Equal(t, []calibration.State{calibration.Abandoned}, ended)
	assert.FileExists(t, sum.JSONPath)
}

func TestRunRejectsBadConfig(t *testing.T) {
	c := testConfig(true, 0)
	_, err := newTestPipeline(c).Run(context.Background(), &sliceSource{})
	assert.Error(t, err)
}

func TestRunPostsVisualization(t *testing.T) {
	var (
		mu       sync.Mutex
		timeline clients.TimelineReq
		radar    clients.RadarReq
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/generate-emotion-timeline":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&timeline))
		case "/generate-radar":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&radar))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"Status": "ok"})
	}))
	defer srv.Close()

	c := testConfig(false, 1)
	c.Services.Visualization.URL = srv.URL
	src := &sliceSource{frames: []*clients.LandmarkFrame{
		faceFrame(10, faceShape{ear: 0.32, mar: 0.55, brow: 0.06}),
		faceFrame(20, faceShape{ear: 0.32, mar: 0.55, brow: 0.06}),
	}}
	sum, err := newTestPipeline(c).Run(context.Background(), src)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, sum.SessionID, timeline.SessionID)
	assert.Equal(t, []int64{10, 20}, timeline.Timestamps)
	assert.Equal(t, []string{"Surprised", "Surprised"}, timeline.Emotions)
	assert.Equal(t, "absolute", timeline.Mode)
	assert.Equal(t, []string{"Surprised", "Happy", "Angry", "Sad", "Neutral"}, radar.Categories)
	assert.Equal(t, []float64{1, 0, 0, 0, 0}, radar.Values)
}
