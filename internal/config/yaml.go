// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	applog "pav/internal/log"

	"gopkg.in/yaml.v3"
)

var logger = applog.For("config")

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel string         `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Analysis AnalysisConfig `yaml:"analysis"`  // Framing and spectral settings.
	Source   SourceConfig   `yaml:"source"`    // Layout of raw input streams.
	Output   OutputConfig   `yaml:"output"`    // Where frame reports go.
}

// AnalysisConfig holds settings for framing and the analysis engine.
type AnalysisConfig struct {
	SampleRate   float64 `yaml:"sample_rate"`   // Sample rate in Hz of raw streams; decoded files use their own.
	FrameSize    int     `yaml:"frame_size"`    // Samples per analysis frame.
	HopSize      int     `yaml:"hop_size"`      // Samples between frame starts, 0 follows FrameSize.
	MelBands     int     `yaml:"mel_bands"`     // Number of Mel bands per report.
	FeedCapacity int     `yaml:"feed_capacity"` // Frames queued between reader and engine before dropping.
}

// SourceConfig describes headerless PCM input.
type SourceConfig struct {
	SampleFormat string `yaml:"sample_format"` // "float32" or "int16".
	ByteOrder    string `yaml:"byte_order"`    // "le" or "be".
	Channels     int    `yaml:"channels"`      // Interleaved channels, mixed down to mono.
}

// OutputConfig selects the frame report sink.
type OutputConfig struct {
	Format string `yaml:"format"` // "json", "log", "packet" or "none".
	Path   string `yaml:"path"`   // Output file, "-" for stdout.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debugf("loaded %s", path)
	}

	// Environment variables win over the file.
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and returns the first problem found, wrapped
// in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel)
	}

	a := c.Analysis
	if !(a.SampleRate > 0) || math.IsInf(a.SampleRate, 0) {
		return invalid("analysis.sample_rate must be positive, got %v", a.SampleRate)
	}
	if a.FrameSize < 2 {
		return invalid("analysis.frame_size must be at least 2, got %d", a.FrameSize)
	}
	if a.HopSize < 0 {
		return invalid("analysis.hop_size must not be negative, got %d", a.HopSize)
	}
	if a.MelBands <= 0 {
		return invalid("analysis.mel_bands must be positive, got %d", a.MelBands)
	}
	if a.FeedCapacity <= 0 {
		return invalid("analysis.feed_capacity must be positive, got %d", a.FeedCapacity)
	}

	switch c.Source.SampleFormat {
	case "float32", "int16":
	default:
		return invalid("source.sample_format %q is not float32 or int16", c.Source.SampleFormat)
	}
	switch c.Source.ByteOrder {
	case "le", "be":
	default:
		return invalid("source.byte_order %q is not le or be", c.Source.ByteOrder)
	}
	if c.Source.Channels <= 0 {
		return invalid("source.channels must be positive, got %d", c.Source.Channels)
	}

	switch c.Output.Format {
	case OutputJSON, OutputLog, OutputPacket, OutputNone:
	default:
		return invalid("output.format %q is not json, log, packet or none", c.Output.Format)
	}
	return nil
}

// applyEnvOverrides replaces settings with the PAV_* environment variables
// that are set. A variable that does not parse is an error. Setting
// PAV_FRAME_SIZE without PAV_HOP_SIZE makes the hop follow the frame size.
func (c *Config) applyEnvOverrides() error {
	strs := []struct {
		env   string
		field string
		dst   *string
	}{
		{"PAV_LOG_LEVEL", "log_level", &c.LogLevel},
		{"PAV_SAMPLE_FORMAT", "source.sample_format", &c.Source.SampleFormat},
		{"PAV_BYTE_ORDER", "source.byte_order", &c.Source.ByteOrder},
		{"PAV_OUTPUT_FORMAT", "output.format", &c.Output.Format},
		{"PAV_OUTPUT_PATH", "output.path", &c.Output.Path},
	}
	for _, o := range strs {
		if val, ok := os.LookupEnv(o.env); ok {
			*o.dst = val
			logger.Debugf("overriding %s from env: %s", o.field, val)
		}
	}

	// PAV_SAMPLE_RATE
	if val, ok := os.LookupEnv("PAV_SAMPLE_RATE"); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("%w: PAV_SAMPLE_RATE: %w", ErrInvalidConfig, err)
		}
		c.Analysis.SampleRate = f
		logger.Debugf("overriding analysis.sample_rate from env: %v", f)
	}

	if _, ok := os.LookupEnv("PAV_FRAME_SIZE"); ok {
		if _, ok := os.LookupEnv("PAV_HOP_SIZE"); !ok {
			c.Analysis.HopSize = 0
		}
	}

	ints := []struct {
		env   string
		field string
		dst   *int
	}{
		{"PAV_FRAME_SIZE", "analysis.frame_size", &c.Analysis.FrameSize},
		{"PAV_HOP_SIZE", "analysis.hop_size", &c.Analysis.HopSize},
		{"PAV_MEL_BANDS", "analysis.mel_bands", &c.Analysis.MelBands},
		{"PAV_FEED_CAPACITY", "analysis.feed_capacity", &c.Analysis.FeedCapacity},
		{"PAV_CHANNELS", "source.channels", &c.Source.Channels},
	}
	for _, o := range ints {
		val, ok := os.LookupEnv(o.env)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, o.env, err)
		}
		*o.dst = n
		logger.Debugf("overriding %s from env: %d", o.field, n)
	}
	return nil
}

// Hop returns the samples between frame starts with a zero HopSize resolved
// to the frame size.
func (a AnalysisConfig) Hop() int {
	if a.HopSize == 0 {
		return a.FrameSize
	}
	return a.HopSize
}

// Level returns the parsed log level. It is only meaningful after Validate.
func (c *Config) Level() applog.LogLevel {
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}
