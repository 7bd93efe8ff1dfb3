// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
)

// FreqToMel converts a frequency in Hz to Mel.
func FreqToMel(freq float64) float64 {
	return 1127 * math.Log(1+freq/700)
}

// MelToFreq converts Mel to a frequency in Hz. It is the inverse of FreqToMel.
func MelToFreq(mel float64) float64 {
	return 700 * (math.Exp(mel/1127) - 1)
}

// MelFilter is one triangular filter of a MelFilterBank. Its weight rises
// from 0 at MelMin to 1 at MelCenter and falls back to 0 at MelMax. VMax
// normalizes the triangle so that filters of different widths have equal area.
type MelFilter struct {
	MelMin    float64
	MelCenter float64
	MelMax    float64
	VMax      float64
}

func newMelFilter(melMin, melCenter, melMax float64) MelFilter {
	return MelFilter{
		MelMin:    melMin,
		MelCenter: melCenter,
		MelMax:    melMax,
		VMax:      2 / (MelToFreq(melMax) - MelToFreq(melMin)),
	}
}

// Weight returns the triangular weight of a Mel value, without VMax.
func (f MelFilter) Weight(mel float64) float64 {
	switch {
	case mel < f.MelMin || mel > f.MelMax:
		return 0
	case mel <= f.MelCenter:
		return (mel - f.MelMin) / (f.MelCenter - f.MelMin)
	default:
		return (f.MelMax - mel) / (f.MelMax - f.MelCenter)
	}
}

// apply accumulates the weighted intensities of the bins this filter covers.
// mels must be increasing.
func (f MelFilter) apply(mels, intensities []float64) float64 {
	var sum float64
	for i, m := range mels {
		if m < f.MelMin {
			continue
		}
		if m > f.MelMax {
			break
		}
		sum += intensities[i] * f.Weight(m) * f.VMax
	}
	return sum
}

// MelFilterBank decomposes a linear magnitude spectrum into bands spaced
// evenly on the Mel scale. It is immutable once built and safe for
// concurrent use.
type MelFilterBank struct {
	minFrequency float64
	maxFrequency float64
	melDelta     float64
	filters      []MelFilter
}

// NewMelFilterBank builds numFilters triangular filters between minFrequency
// and maxFrequency. The Mel range is split into numFilters+1 equal steps and
// each filter spans two steps, so neighbours overlap by half a triangle.
func NewMelFilterBank(minFrequency, maxFrequency float64, numFilters int) (*MelFilterBank, error) {
	if numFilters <= 0 {
		return nil, fmt.Errorf("%w: filter count must be positive, got %d", ErrInvalidArgument, numFilters)
	}
	if !(minFrequency >= 0) || math.IsInf(minFrequency, 0) {
		return nil, fmt.Errorf("%w: min frequency must be >= 0, got %f", ErrInvalidArgument, minFrequency)
	}
	if !(maxFrequency > minFrequency) || math.IsInf(maxFrequency, 0) {
		return nil, fmt.Errorf("%w: max frequency %f must exceed min frequency %f",
			ErrInvalidArgument, maxFrequency, minFrequency)
	}

	melMin := FreqToMel(minFrequency)
	melMax := FreqToMel(maxFrequency)
	delta := (melMax - melMin) / float64(numFilters+1)

	filters := make([]MelFilter, numFilters)
	for i := range filters {
		lo := melMin + float64(i)*delta
		filters[i] = newMelFilter(lo, lo+delta, lo+2*delta)
	}

	return &MelFilterBank{
		minFrequency: minFrequency,
		maxFrequency: maxFrequency,
		melDelta:     delta,
		filters:      filters,
	}, nil
}

// Filter computes one energy per filter from a magnitude spectrum covering
// 0 to sampleRate/2. Bin i is taken to be centred at (i + 0.5) * binWidth.
func (b *MelFilterBank) Filter(spectrum []float64, sampleRate float64) []float64 {
	out := make([]float64, len(b.filters))
	if len(spectrum) == 0 {
		return out
	}

	binWidth := (sampleRate / 2) / float64(len(spectrum))
	mels := make([]float64, len(spectrum))
	for i := range mels {
		mels[i] = FreqToMel(float64(i)*binWidth + binWidth/2)
	}

	for i, f := range b.filters {
		out[i] = f.apply(mels, spectrum)
	}
	return out
}

// NumFilters returns the number of filters in the bank.
func (b *MelFilterBank) NumFilters() int { return len(b.filters) }

// MinFrequency returns the lower edge of the bank in Hz.
func (b *MelFilterBank) MinFrequency() float64 { return b.minFrequency }

// MaxFrequency returns the upper edge of the bank in Hz.
func (b *MelFilterBank) MaxFrequency() float64 { return b.maxFrequency }

// MelDelta returns the spacing between adjacent filter centers in Mel.
func (b *MelFilterBank) MelDelta() float64 { return b.melDelta }

// Filters returns a copy of the filter definitions.
func (b *MelFilterBank) Filters() []MelFilter {
	out := make([]MelFilter, len(b.filters))
	copy(out, b.filters)
	return out
}
