// SPDX-License-Identifier: MIT
/*
Package analysis implements the frame analysis engine: the current audio frame,
its Hamming windowed copy, scalar descriptors (amplitude maximum, RMS,
zero-crossings, zero-crossing rate, spectral centroid) and spectral transforms
(log-magnitude spectrum, Mel spectrum).

Caching:
  - Every value derived from a frame is computed on first access and memoized
    until the next Update.
  - The forward transform is reused across frames while frame length and
    sample rate stay the same.
  - Mel filter banks depend only on their parameters and are kept for the
    lifetime of the engine.

Thread Safety:
  - One mutex serializes Update and every accessor, so a reader never sees a
    mix of old and new cached values.
*/
package analysis

import (
	"fmt"
	"math"
	"sync"

	applog "pav/internal/log"

	"gonum.org/v1/gonum/dsp/window"
)

var logger = applog.For("analysis")

// memo is a single memoized value, valid for one frame generation.
type memo[T any] struct {
	value T
	ok    bool
}

func (m *memo[T]) set(v T) T {
	m.value, m.ok = v, true
	return v
}

// Engine holds the frame currently being analyzed and everything derived
// from it. Create one per audio stream with NewEngine.
type Engine struct {
	mu sync.Mutex

	sampleRate float64
	samples    []float64
	generation uint64

	windowed      []float64
	windowedValid bool

	desc descriptorCache
	xf   transformCache

	newForward ForwardBuilder
}

// Option configures an Engine.
type Option func(*Engine)

// WithForwardBuilder replaces the builder used to create the forward
// transform. The default wraps internal/fft.
func WithForwardBuilder(b ForwardBuilder) Option {
	return func(e *Engine) {
		if b != nil {
			e.newForward = b
		}
	}
}

// NewEngine creates an engine for audio sampled at sampleRate Hz. No frame is
// available until the first Update.
func NewEngine(sampleRate float64, opts ...Option) (*Engine, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	e := &Engine{
		sampleRate: sampleRate,
		newForward: defaultForwardBuilder,
		xf: transformCache{
			mel:   make(map[int]TransformResult),
			banks: make(map[bankKey]*MelFilterBank),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func validateSampleRate(rate float64) error {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: sample rate must be positive, got %f", ErrInvalidArgument, rate)
	}
	return nil
}

// Update replaces the current frame with a copy of samples and invalidates
// every value derived from the previous frame. Mel filter banks are kept.
// Frames need at least two samples for the window to be defined.
func (e *Engine) Update(samples []float64) error {
	if len(samples) < 2 {
		return fmt.Errorf("%w: frame needs at least 2 samples, got %d", ErrInvalidArgument, len(samples))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.updateLocked(samples)
	return nil
}

// UpdateWithRate sets the sample rate and replaces the frame in one step.
func (e *Engine) UpdateWithRate(samples []float64, rate float64) error {
	if len(samples) < 2 {
		return fmt.Errorf("%w: frame needs at least 2 samples, got %d", ErrInvalidArgument, len(samples))
	}
	if err := validateSampleRate(rate); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampleRate = rate
	e.updateLocked(samples)
	return nil
}

// Process implements Processor by updating the current frame.
func (e *Engine) Process(frame []float64) error {
	return e.Update(frame)
}

func (e *Engine) updateLocked(samples []float64) {
	// The buffer is reused between frames; callers only ever see copies.
	e.samples = append(e.samples[:0], samples...)
	e.generation++

	e.windowedValid = false
	e.desc = descriptorCache{}
	e.xf.reset()
}

// SetSampleRate sets the rate of subsequent frames. It does not invalidate
// values already computed for the current frame; the forward transform and
// Mel filter bank pick up the new rate the next time they are needed.
func (e *Engine) SetSampleRate(rate float64) error {
	if err := validateSampleRate(rate); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampleRate = rate
	return nil
}

// SampleRate returns the current sample rate in Hz.
func (e *Engine) SampleRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRate
}

// Generation returns the number of frames applied so far. It changes exactly
// when cached values are invalidated.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// FrameSize returns the length of the current frame, 0 before the first Update.
func (e *Engine) FrameSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.samples)
}

// Samples returns a copy of the current raw frame.
func (e *Engine) Samples() ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return nil, err
	}
	out := make([]float64, len(e.samples))
	copy(out, e.samples)
	return out, nil
}

// WindowedSamples returns a copy of the current frame with a Hamming window
// applied: w[i] = x[i] * (0.54 - 0.46*cos(2*pi*i/(N-1))).
func (e *Engine) WindowedSamples() ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return nil, err
	}
	w := e.windowedLocked()
	out := make([]float64, len(w))
	copy(out, w)
	return out, nil
}

func (e *Engine) requireFrameLocked() error {
	if e.generation == 0 {
		return ErrNoFrame
	}
	return nil
}

// windowedLocked returns the memoized windowed frame. Callers must hold e.mu
// and have checked requireFrameLocked.
func (e *Engine) windowedLocked() []float64 {
	if e.windowedValid {
		return e.windowed
	}
	e.windowed = append(e.windowed[:0], e.samples...)
	window.Hamming(e.windowed)
	e.windowedValid = true
	return e.windowed
}
