// SPDX-License-Identifier: MIT
package analysis

import "math"

// descriptorCache holds one memo cell per scalar descriptor. It is replaced
// with its zero value on every Update.
type descriptorCache struct {
	amplitudeMax     memo[float64]
	rms              memo[float64]
	zeroCrossings    memo[int]
	zeroCrossingRate memo[float64]
	spectralCentroid memo[float64]
}

// AmplitudeMax returns the largest absolute value of the windowed frame.
func (e *Engine) AmplitudeMax() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return 0, err
	}
	return e.amplitudeMaxLocked(), nil
}

func (e *Engine) amplitudeMaxLocked() float64 {
	if e.desc.amplitudeMax.ok {
		return e.desc.amplitudeMax.value
	}
	var peak float64
	for _, v := range e.windowedLocked() {
		if a := math.Abs(v); a > peak {
			peak = a
			// Samples are bounded to [-1, 1], nothing can exceed full scale.
			if peak >= 1 {
				break
			}
		}
	}
	return e.desc.amplitudeMax.set(peak)
}

// RMS returns the root mean square of the windowed frame.
func (e *Engine) RMS() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return 0, err
	}
	return e.rmsLocked(), nil
}

func (e *Engine) rmsLocked() float64 {
	if e.desc.rms.ok {
		return e.desc.rms.value
	}
	w := e.windowedLocked()
	var sumSquare float64
	for _, v := range w {
		sumSquare += v * v
	}
	return e.desc.rms.set(math.Sqrt(sumSquare / float64(len(w))))
}

// ZeroCrossings counts sign changes between consecutive raw samples. Samples
// that are exactly zero carry no sign and are skipped.
func (e *Engine) ZeroCrossings() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return 0, err
	}
	return e.zeroCrossingsLocked(), nil
}

func (e *Engine) zeroCrossingsLocked() int {
	if e.desc.zeroCrossings.ok {
		return e.desc.zeroCrossings.value
	}
	n := 0
	positive := e.samples[0] > 0
	for _, v := range e.samples[1:] {
		if v == 0 {
			continue
		}
		if c := v > 0; c != positive {
			n++
			positive = c
		}
	}
	return e.desc.zeroCrossings.set(n)
}

// ZeroCrossingRate returns ZeroCrossings * sampleRate / (2 * frameLength).
func (e *Engine) ZeroCrossingRate() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return 0, err
	}
	return e.zeroCrossingRateLocked(), nil
}

func (e *Engine) zeroCrossingRateLocked() float64 {
	if e.desc.zeroCrossingRate.ok {
		return e.desc.zeroCrossingRate.value
	}
	zcr := float64(e.zeroCrossingsLocked()) * e.sampleRate / float64(2*len(e.samples))
	return e.desc.zeroCrossingRate.set(zcr)
}

// SpectralCentroid returns the magnitude weighted mean of the bin center
// frequencies of the current frame's spectrum, in Hz. A frame without
// spectral energy has a centroid of 0.
func (e *Engine) SpectralCentroid() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return 0, err
	}
	return e.spectralCentroidLocked()
}

func (e *Engine) spectralCentroidLocked() (float64, error) {
	if e.desc.spectralCentroid.ok {
		return e.desc.spectralCentroid.value, nil
	}
	f, mags, err := e.forwardLocked()
	if err != nil {
		return 0, err
	}
	var weighted, sum float64
	for i, m := range mags {
		weighted += f.IndexToFreq(i) * m
		sum += m
	}
	centroid := 0.0
	if sum > 0 {
		centroid = weighted / sum
	}
	return e.desc.spectralCentroid.set(centroid), nil
}
