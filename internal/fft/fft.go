// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math"
	"math/cmplx"

	applog "pav/internal/log"
	"pav/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

var logger = applog.For("fft")

// Workspace holds pre-allocated buffers for FFT calculations.
type Workspace struct {
	input     []float64    // ...for the windowed frame handed to Coefficients
	fftOutput []complex128 // ...for FFT complex output
	magnitude []float64    // ...for raw magnitude output
}

// Transform is a forward real FFT bound to one frame length and sample rate.
// It is rebuilt by its owner whenever either of them changes.
type Transform struct {
	size       int
	sampleRate float64
	bandWidth  float64
	workspace  Workspace
	fftObj     *fourier.FFT
}

// NewTransform creates a forward transform for frames of size samples recorded
// at sampleRate Hz. All buffers are allocated here, Forward does not allocate.
func NewTransform(size int, sampleRate float64) (*Transform, error) {
	if size < 2 {
		return nil, fmt.Errorf("transform size must be at least 2, got %d", size)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if !bitint.IsPowerOfTwo(size) {
		logger.Warnf("transform size %d is not a power of 2, falling back to a slower FFT path (consider %d)",
			size, bitint.NextPowerOfTwo(size))
	}

	// Output size for real input is N/2 + 1 complex values.
	outputSize := size/2 + 1

	logger.Debugf("building transform (size: %d, sample rate: %.1f Hz)", size, sampleRate)

	return &Transform{
		size:       size,
		sampleRate: sampleRate,
		bandWidth:  sampleRate / float64(size),
		fftObj:     fourier.NewFFT(size),
		workspace: Workspace{
			input:     make([]float64, size),
			fftOutput: make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
		},
	}, nil
}

// Forward transforms the windowed frame and returns the magnitude of every
// bin. The returned slice is owned by the transform and is overwritten by the
// next call. Frames shorter than the transform size are zero padded, longer
// frames are truncated.
func (t *Transform) Forward(windowed []float64) []float64 {
	n := copy(t.workspace.input, windowed)
	for i := n; i < t.size; i++ {
		t.workspace.input[i] = 0
	}

	t.fftObj.Coefficients(t.workspace.fftOutput, t.workspace.input)
	for i, c := range t.workspace.fftOutput {
		t.workspace.magnitude[i] = cmplx.Abs(c)
	}
	return t.workspace.magnitude
}

// Size returns the frame length the transform was built for.
func (t *Transform) Size() int { return t.size }

// SampleRate returns the sample rate the transform was built for.
func (t *Transform) SampleRate() float64 { return t.sampleRate }

// SpecSize returns the number of magnitude bins produced by Forward.
func (t *Transform) SpecSize() int { return len(t.workspace.magnitude) }

// IndexToFreq returns the center frequency in Hz of bin i. The first and last
// bins are half width, so their centers sit a quarter bandwidth inside the
// spectrum edges.
func (t *Transform) IndexToFreq(i int) float64 {
	last := t.SpecSize() - 1
	switch {
	case i <= 0:
		return t.bandWidth * 0.25
	case i >= last:
		return t.sampleRate/2 - t.bandWidth*0.25
	default:
		return float64(i) * t.bandWidth
	}
}

// FreqToIndex returns the bin a frequency in Hz falls into.
func (t *Transform) FreqToIndex(freq float64) int {
	if freq < t.bandWidth/2 {
		return 0
	}
	if freq > t.sampleRate/2-t.bandWidth/2 {
		return t.SpecSize() - 1
	}
	return int(math.Round(float64(t.size) * freq / t.sampleRate))
}
