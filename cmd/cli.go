// SPDX-License-Identifier: MIT
package cmd

import (
	"pav/internal/config"
	applog "pav/internal/log"
	"pav/pkg/build"

	"github.com/spf13/cobra"
)

// options collects the persistent flags. Only flags the user set override
// the loaded configuration.
type options struct {
	configPath string

	logLevel     string
	sampleRate   float64
	frameSize    int
	hopSize      int
	melBands     int
	outputFormat string
	outputPath   string
	sampleFormat string
	byteOrder    string
	channels     int

	cfg *config.Config
}

// NewRootCommand builds the pav command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file. Default is ./config.yaml when present")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel,
		"Logging level (debug, info, warn, error)")

	// Analysis Configuration
	flags.Float64VarP(&opts.sampleRate, "sample-rate", "r", config.DefaultSampleRate,
		"Sample rate of raw streams, measured in Hertz (Hz)")
	flags.IntVarP(&opts.frameSize, "frame-size", "n", config.DefaultFrameSize,
		"Samples per analysis frame")
	flags.IntVar(&opts.hopSize, "hop", config.DefaultHopSize,
		"Samples between the starts of consecutive frames, 0 follows the frame size")
	flags.IntVarP(&opts.melBands, "bands", "b", config.DefaultMelBands,
		"Number of Mel bands")

	// Output Configuration
	flags.StringVarP(&opts.outputFormat, "format", "f", config.DefaultOutputFormat,
		"Frame report format (json, log, packet, none)")
	flags.StringVarP(&opts.outputPath, "output", "o", config.DefaultOutputPath,
		"Frame report destination, - for stdout")

	// Raw Stream Configuration
	flags.StringVar(&opts.sampleFormat, "sample-format", config.DefaultSampleFormat,
		"Sample format of raw streams (float32, int16)")
	flags.StringVar(&opts.byteOrder, "byte-order", config.DefaultByteOrder,
		"Byte order of raw streams (le, be)")
	flags.IntVar(&opts.channels, "channels", config.DefaultChannels,
		"Interleaved channels of raw streams")

	rootCmd.AddCommand(
		newAnalyzeCommand(opts),
		newBrowseCommand(opts),
		newMelCommand(opts),
	)
	return rootCmd
}

// load reads the config file, applies the flags the user set and configures
// logging.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("sample-rate") {
		cfg.Analysis.SampleRate = o.sampleRate
	}
	if flags.Changed("frame-size") {
		cfg.Analysis.FrameSize = o.frameSize
		// Without an explicit hop, frames stay back to back.
		if !flags.Changed("hop") {
			cfg.Analysis.HopSize = 0
		}
	}
	if flags.Changed("hop") {
		cfg.Analysis.HopSize = o.hopSize
	}
	if flags.Changed("bands") {
		cfg.Analysis.MelBands = o.melBands
	}
	if flags.Changed("format") {
		cfg.Output.Format = o.outputFormat
	}
	if flags.Changed("output") {
		cfg.Output.Path = o.outputPath
	}
	if flags.Changed("sample-format") {
		cfg.Source.SampleFormat = o.sampleFormat
	}
	if flags.Changed("byte-order") {
		cfg.Source.ByteOrder = o.byteOrder
	}
	if flags.Changed("channels") {
		cfg.Source.Channels = o.channels
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	applog.SetLevel(cfg.Level())
	o.cfg = cfg
	return nil
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}
