package config

// Defaults used when neither the config file nor the environment sets a value.
const (
	DefaultLogLevel = "info"

	DefaultSampleRate   = 44100 // Hz, used for raw streams which carry no header
	DefaultFrameSize    = 1024  // samples per analysis frame
	DefaultHopSize      = 0     // follow the frame size, frames back to back
	DefaultMelBands     = 40
	DefaultFeedCapacity = 8 // frames queued before the oldest is dropped

	DefaultSampleFormat = "float32"
	DefaultByteOrder    = "le"
	DefaultChannels     = 1

	DefaultOutputFormat = OutputJSON
	DefaultOutputPath   = "-" // stdout
)

// Output formats for frame reports.
const (
	OutputJSON   = "json"
	OutputLog    = "log"
	OutputPacket = "packet"
	OutputNone   = "none"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Analysis: AnalysisConfig{
			SampleRate:   DefaultSampleRate,
			FrameSize:    DefaultFrameSize,
			HopSize:      DefaultHopSize,
			MelBands:     DefaultMelBands,
			FeedCapacity: DefaultFeedCapacity,
		},
		Source: SourceConfig{
			SampleFormat: DefaultSampleFormat,
			ByteOrder:    DefaultByteOrder,
			Channels:     DefaultChannels,
		},
		Output: OutputConfig{
			Format: DefaultOutputFormat,
			Path:   DefaultOutputPath,
		},
	}
}
