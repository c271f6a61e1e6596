package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/maastricht-university/facial-emotion/calibration"
	"github.com/maastricht-university/facial-emotion/classifier"
	"github.com/maastricht-university/facial-emotion/smoothing"
)

type Service struct {
	URL string `yaml:"url"`
}
type Services struct {
	Landmarks     Service `yaml:"landmarks"`
	Visualization Service `yaml:"visualization"`
}
type Smoothing struct {
	Alpha float64 `yaml:"alpha"`
}
type Calibration struct {
	Enabled    bool `yaml:"enabled"`
	FrameCount int  `yaml:"frame_count"`
	MaxFrames  int  `yaml:"max_frames"` // 0 = wait indefinitely
}
type Classifier struct {
	Absolute classifier.Thresholds `yaml:"absolute"`
	Delta    classifier.Thresholds `yaml:"delta"`
}
type Export struct {
	CSV      bool `yaml:"csv"`
	JSON     bool `yaml:"json"`
	LogEvery int  `yaml:"log_every"`
}
type Root struct {
	Pipeline struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		LogLvl  string `yaml:"log_level"`
	} `yaml:"pipeline"`
	Smoothing   Smoothing   `yaml:"smoothing"`
	Calibration Calibration `yaml:"calibration"`
	Classifier  Classifier  `yaml:"classifier"`
	Services    Services    `yaml:"services"`
	Export      Export      `yaml:"export"`
	Paths       struct {
		Outputs string `yaml:"outputs"`
	} `yaml:"paths"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Root {
	var c Root
	c.Pipeline.Name = "facial-emotion"
	c.Pipeline.Version = "dev"
	c.Pipeline.LogLvl = "info"
	c.Smoothing.Alpha = smoothing.DefaultAlpha
	c.Calibration = Calibration{Enabled: true, FrameCount: calibration.DefaultFrameCount}
	c.Classifier = Classifier{Absolute: classifier.DefaultAbsolute(), Delta: classifier.DefaultDelta()}
	c.Export = Export{CSV: true, JSON: true, LogEvery: 30}
	c.Paths.Outputs = "output"
	return &c
}

// Load reads path, or when empty the first of config/<CONFIG_ENV>/config.yaml
// and config.yaml that exists. Keys missing from the file keep their defaults.
// With no file at all the defaults are returned.
func Load(path string) (*Root, error) {
	guess := []string{path}
	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		guess = []string{
			filepath.Join("config", env, "config.yaml"),
			"config.yaml",
		}
	}
	for _, p := range guess {
		f, err := os.Open(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && path == "" {
				continue
			}
			return nil, err
		}
		defer f.Close()
		cfg := Default()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p, err)
		}
		return cfg, nil
	}
	return Default(), nil
}

// Validate rejects settings that would otherwise only fail mid-session.
func (c *Root) Validate() error {
	if a := c.Smoothing.Alpha; math.IsNaN(a) || a < 0 || a > 1 {
		return fmt.Errorf("smoothing.alpha: %w: got %v", smoothing.ErrInvalidAlpha, a)
	}
	if c.Calibration.FrameCount < 1 {
		return fmt.Errorf("calibration.frame_count: %w: got %d", calibration.ErrInvalidFrameCount, c.Calibration.FrameCount)
	}
	if m := c.Calibration.MaxFrames; m < 0 || (m > 0 && m < c.Calibration.FrameCount) {
		return fmt.Errorf("calibration.max_frames must be 0 or >= frame_count (%d), got %d", c.Calibration.FrameCount, m)
	}
	if c.Export.LogEvery < 0 {
		return fmt.Errorf("export.log_every must not be negative, got %d", c.Export.LogEvery)
	}
	if _, err := logrus.ParseLevel(c.Pipeline.LogLvl); err != nil {
		return fmt.Errorf("pipeline.log_level: %w", err)
	}
	return nil
}
