package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maastricht-university/facial-emotion/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "facial-emotion",
	Short: "Classify facial emotion frame by frame from face-mesh landmarks",
	Long: `facial-emotion turns a stream of 468-point face-mesh landmarks into a
stable per-frame emotion label. It extracts five geometric parameters,
smooths them, optionally calibrates a neutral-face baseline and applies a
fixed priority-ordered rule table.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config/$CONFIG_ENV/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("pipeline.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
	viper.SetEnvPrefix("EMOTION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the YAML config and lets flags and EMOTION_* variables
// override it.
func loadConfig(v *viper.Viper) (*config.Root, error) {
	c, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	applyOverrides(c, v)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func applyOverrides(c *config.Root, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	integer := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	str("pipeline.log_level", &c.Pipeline.LogLvl)
	str("services.landmarks.url", &c.Services.Landmarks.URL)
	str("services.visualization.url", &c.Services.Visualization.URL)
	str("paths.outputs", &c.Paths.Outputs)
	integer("calibration.frame_count", &c.Calibration.FrameCount)
	integer("calibration.max_frames", &c.Calibration.MaxFrames)
	integer("export.log_every", &c.Export.LogEvery)
	if v.IsSet("smoothing.alpha") {
		c.Smoothing.Alpha = v.GetFloat64("smoothing.alpha")
	}
	if v.IsSet("calibration.enabled") {
		c.Calibration.Enabled = v.GetBool("calibration.enabled")
	}
}
