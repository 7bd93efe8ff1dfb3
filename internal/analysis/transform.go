// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
)

// bankKey identifies a Mel filter bank by its construction parameters.
type bankKey struct {
	bands   int
	minFreq float64
	maxFreq float64
}

// transformCache holds the forward transform and the spectra of the current
// frame. forward and banks outlive a frame; everything else is reset by
// Update.
type transformCache struct {
	forward    Forward
	forwarded  bool      // forward has been run on the current frame
	magnitudes []float64 // owned by forward, valid while forwarded

	spectrum memo[TransformResult]
	mel      map[int]TransformResult
	banks    map[bankKey]*MelFilterBank
}

func (c *transformCache) reset() {
	c.forwarded = false
	c.magnitudes = nil
	c.spectrum = memo[TransformResult]{}
	clear(c.mel)
}

// forwardLocked returns a transform matching the current frame length and
// sample rate, run on the current windowed frame, along with its magnitudes.
// The transform is rebuilt only when length or rate changed.
func (e *Engine) forwardLocked() (Forward, []float64, error) {
	f, err := e.transformLocked()
	if err != nil {
		return nil, nil, err
	}
	if !e.xf.forwarded {
		e.xf.magnitudes = f.Forward(e.windowedLocked())
		e.xf.forwarded = true
	}
	return f, e.xf.magnitudes, nil
}

// transformLocked returns a transform matching the current frame without
// running it.
func (e *Engine) transformLocked() (Forward, error) {
	n := len(e.samples)
	if f := e.xf.forward; f != nil && f.Size() == n && f.SampleRate() == e.sampleRate {
		return f, nil
	}

	f, err := e.newForward(n, e.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("building forward transform: %w", err)
	}
	logger.Debugf("rebuilt forward transform (size: %d, sample rate: %.1f Hz)", n, e.sampleRate)
	e.xf.forward = f
	e.xf.forwarded = false
	e.xf.magnitudes = nil
	return f, nil
}

// LogSpectrum returns log10(magnitude + 1) for every bin of the windowed
// frame's spectrum. The +1 keeps silent bins at 0 instead of -Inf.
func (e *Engine) LogSpectrum() (TransformResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return TransformResult{}, err
	}
	return e.logSpectrumLocked()
}

func (e *Engine) logSpectrumLocked() (TransformResult, error) {
	if e.xf.spectrum.ok {
		return e.xf.spectrum.value, nil
	}
	_, mags, err := e.forwardLocked()
	if err != nil {
		return TransformResult{}, err
	}
	values := make([]float64, len(mags))
	for i, m := range mags {
		values[i] = math.Log10(m + 1)
	}
	return e.xf.spectrum.set(newTransformResult(values)), nil
}

// MelSpectrum returns numBands Mel band energies of the log spectrum, using
// a filter bank from 0 Hz to floor(sampleRate/2). Results are memoized per
// band count for the current frame; filter banks are kept across frames.
func (e *Engine) MelSpectrum(numBands int) (TransformResult, error) {
	if numBands <= 0 {
		return TransformResult{}, fmt.Errorf("%w: band count must be positive, got %d", ErrInvalidArgument, numBands)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return TransformResult{}, err
	}
	return e.melSpectrumLocked(numBands)
}

func (e *Engine) melSpectrumLocked(numBands int) (TransformResult, error) {
	if r, ok := e.xf.mel[numBands]; ok {
		return r, nil
	}

	bank, err := e.filterBankLocked(numBands)
	if err != nil {
		return TransformResult{}, err
	}
	spectrum, err := e.logSpectrumLocked()
	if err != nil {
		return TransformResult{}, err
	}

	r := newTransformResult(bank.Filter(spectrum.values, e.sampleRate))
	e.xf.mel[numBands] = r
	return r, nil
}

func (e *Engine) filterBankLocked(numBands int) (*MelFilterBank, error) {
	key := bankKey{bands: numBands, minFreq: 0, maxFreq: math.Floor(e.sampleRate / 2)}
	if bank, ok := e.xf.banks[key]; ok {
		return bank, nil
	}

	if key.maxFreq <= key.minFreq {
		return nil, fmt.Errorf("%w: sample rate %v Hz is too low for a Mel filter bank, need at least 2 Hz",
			ErrInvalidArgument, e.sampleRate)
	}
	bank, err := NewMelFilterBank(key.minFreq, key.maxFreq, key.bands)
	if err != nil {
		return nil, err
	}
	logger.Debugf("built mel filter bank (bands: %d, %.0f-%.0f Hz)", key.bands, key.minFreq, key.maxFreq)
	e.xf.banks[key] = bank
	return bank, nil
}

// FilterBanks returns the number of Mel filter banks built so far.
func (e *Engine) FilterBanks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.xf.banks)
}

// BandToFrequency returns the center frequency in Hz of spectrum bin band.
func (e *Engine) BandToFrequency(band int) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return 0, err
	}
	f, err := e.transformLocked()
	if err != nil {
		return 0, err
	}
	if band < 0 || band >= f.SpecSize() {
		return 0, fmt.Errorf("%w: band %d outside [0, %d)", ErrInvalidArgument, band, f.SpecSize())
	}
	return f.IndexToFreq(band), nil
}

// FrequencyToBand returns the spectrum bin a frequency in Hz falls into.
// Frequencies beyond either end of the spectrum map to the first or last bin.
func (e *Engine) FrequencyToBand(frequency float64) (int, error) {
	if math.IsNaN(frequency) {
		return 0, fmt.Errorf("%w: frequency is NaN", ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return 0, err
	}
	f, err := e.transformLocked()
	if err != nil {
		return 0, err
	}
	return f.FreqToIndex(frequency), nil
}
