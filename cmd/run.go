package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maastricht-university/facial-emotion/calibration"
	"github.com/maastricht-university/facial-emotion/classifier"
	"github.com/maastricht-university/facial-emotion/clients"
	"github.com/maastricht-university/facial-emotion/config"
	"github.com/maastricht-university/facial-emotion/features"
	"github.com/maastricht-university/facial-emotion/orchestrator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Calibrate on a neutral face, then classify every frame",
	Long: `Reads landmark frames from a JSON-lines recording (--landmarks) or from a
landmark service (--service / services.landmarks.url). The first frames
build a neutral-face baseline unless --calibrate=false; afterwards each
frame with a face gets one emotion label. Results are written to
<outputs>/session_<timestamp>/frames.csv and session.json.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("landmarks", "", "JSON-lines landmark recording to replay")
	f.String("service", "", "landmark service base URL")
	f.String("viz", "", "visualization service base URL")
	f.String("outputs", "", "directory for session exports (empty disables export)")
	f.Float64("alpha", 0, "smoothing weight of the newest frame, in [0, 1]")
	f.Bool("calibrate", true, "collect a neutral-face baseline before classifying")
	f.Int("calibration-frames", 0, "frames with a face needed for the baseline")
	f.Int("max-calibration-frames", 0, "give up calibrating after this many frames (0 waits forever)")
	f.Int("log-every", 0, "log smoothed parameters every N classified frames")

	for flag, key := range map[string]string{
		"service":                "services.landmarks.url",
		"viz":                    "services.visualization.url",
		"outputs":                "paths.outputs",
		"alpha":                  "smoothing.alpha",
		"calibrate":              "calibration.enabled",
		"calibration-frames":     "calibration.frame_count",
		"max-calibration-frames": "calibration.max_frames",
		"log-every":              "export.log_every",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	log := newLogger(c, cmd.ErrOrStderr())

	src, closeSrc, err := openSource(mustGetString(cmd, "landmarks"), c)
	if err != nil {
		return err
	}
	defer closeSrc()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := orchestrator.NewPipeline(c, log)
	if c.Calibration.Enabled {
		bar := progressbar.NewOptions(c.Calibration.FrameCount,
			progressbar.OptionSetDescription("Calibrating, keep a neutral face"),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		p.OnCalibrationProgress = func(n, _ int) { _ = bar.Set(n) }
		p.OnCalibrationEnd = func(st calibration.State) {
			if st == calibration.Complete {
				_ = bar.Finish()
				return
			}
			// drop the half-drawn bar before the absolute-mode logs
			_ = bar.Clear()
			fmt.Fprintln(cmd.ErrOrStderr(), "Calibration skipped, classifying without a baseline")
		}
	}

	sum, err := p.Run(ctx, src)
	if sum != nil {
		printSummary(cmd.OutOrStdout(), sum)
	}
	return err
}

func newLogger(c *config.Root, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	// validated by config.Root.Validate
	lvl, _ := logrus.ParseLevel(c.Pipeline.LogLvl)
	log.SetLevel(lvl)
	return log
}

func openSource(path string, c *config.Root) (orchestrator.FrameSource, func(), error) {
	if path != "" {
		r, err := clients.OpenReplay(path)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	}
	if url := c.Services.Landmarks.URL; url != "" {
		return clients.NewHTTP().Source(url), func() {}, nil
	}
	return nil, nil, errors.New("no landmark source: pass --landmarks or set services.landmarks.url")
}

func printSummary(w io.Writer, sum *orchestrator.Summary) {
	fmt.Fprintf(w, "Session %s [%s]\n", sum.SessionID, sum.Mode)
	if sum.Baseline != nil {
		fmt.Fprintln(w, "Baseline:")
		for i, v := range sum.Baseline.Values() {
			fmt.Fprintf(w, "  %-12s %.5f\n", features.Keys[i], v)
		}
	}
	fmt.Fprintf(w, "Frames: %d classified, %d without face\n", sum.Stats.Classified, sum.Stats.NoFace)
	for _, e := range classifier.Emotions {
		fmt.Fprintf(w, "  %-10s %d\n", e, sum.Stats.Emotions[e])
	}
	if sum.CSVPath != "" {
		fmt.Fprintf(w, "CSV:  %s\n", sum.CSVPath)
	}
	if sum.JSONPath != "" {
		fmt.Fprintf(w, "JSON: %s\n", sum.JSONPath)
	}
}
