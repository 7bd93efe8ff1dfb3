// SPDX-License-Identifier: MIT
package analysis

import "pav/internal/fft"

// Processor defines the interface for components that consume audio frames.
// Implementations must not retain frame after Process returns.
type Processor interface {
	Process(frame []float64) error
}

// Forward defines the forward transform the engine runs on windowed frames.
// It decouples the engine from the concrete FFT implementation and lets tests
// count how often the transform is built and run.
type Forward interface {
	// Forward transforms a windowed frame and returns one magnitude per bin.
	// The result may be reused by the next call.
	Forward(windowed []float64) []float64
	Size() int                    // Size returns the frame length the transform was built for.
	SampleRate() float64          // SampleRate returns the sample rate the transform was built for.
	SpecSize() int                // SpecSize returns the number of magnitude bins.
	IndexToFreq(i int) float64    // IndexToFreq returns the center frequency (Hz) of bin i.
	FreqToIndex(freq float64) int // FreqToIndex returns the bin a frequency (Hz) falls into.
}

// ForwardBuilder creates a Forward for one (frame length, sample rate) pair.
type ForwardBuilder func(size int, sampleRate float64) (Forward, error)

// Compile-time checks for interface implementations.
var _ Forward = (*fft.Transform)(nil)
var _ Processor = (*Engine)(nil)

func defaultForwardBuilder(size int, sampleRate float64) (Forward, error) {
	t, err := fft.NewTransform(size, sampleRate)
	if err != nil {
		return nil, err
	}
	return t, nil
}
