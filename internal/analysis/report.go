// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// FrameReport is a snapshot of every descriptor of one frame plus its Mel
// spectrum, ready to be serialized.
type FrameReport struct {
	Generation       uint64    `json:"generation"`
	SampleRate       float64   `json:"sample_rate"`
	FrameSize        int       `json:"frame_size"`
	AmplitudeMax     float64   `json:"amplitude_max"`
	RMS              float64   `json:"rms"`
	ZeroCrossings    int       `json:"zero_crossings"`
	ZeroCrossingRate float64   `json:"zero_crossing_rate"`
	SpectralCentroid float64   `json:"spectral_centroid"`
	SpectrumMin      float64   `json:"spectrum_min"`
	SpectrumMax      float64   `json:"spectrum_max"`
	Mel              []float64 `json:"mel"`
	MelMin           float64   `json:"mel_min"`
	MelMax           float64   `json:"mel_max"`
}

// Report computes all descriptors and the numBands Mel spectrum of the
// current frame under a single lock, so the snapshot always describes one
// frame. Memoized values are reused and newly computed ones are memoized.
func (e *Engine) Report(numBands int) (FrameReport, error) {
	if numBands <= 0 {
		return FrameReport{}, fmt.Errorf("%w: band count must be positive, got %d", ErrInvalidArgument, numBands)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireFrameLocked(); err != nil {
		return FrameReport{}, err
	}

	centroid, err := e.spectralCentroidLocked()
	if err != nil {
		return FrameReport{}, err
	}
	spectrum, err := e.logSpectrumLocked()
	if err != nil {
		return FrameReport{}, err
	}
	mel, err := e.melSpectrumLocked(numBands)
	if err != nil {
		return FrameReport{}, err
	}

	return FrameReport{
		Generation:       e.generation,
		SampleRate:       e.sampleRate,
		FrameSize:        len(e.samples),
		AmplitudeMax:     e.amplitudeMaxLocked(),
		RMS:              e.rmsLocked(),
		ZeroCrossings:    e.zeroCrossingsLocked(),
		ZeroCrossingRate: e.zeroCrossingRateLocked(),
		SpectralCentroid: centroid,
		SpectrumMin:      spectrum.Min(),
		SpectrumMax:      spectrum.Max(),
		Mel:              mel.Values(),
		MelMin:           mel.Min(),
		MelMax:           mel.Max(),
	}, nil
}
