// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"pav/internal/fft"
	"pav/pkg/utils"

	"gonum.org/v1/gonum/dsp/window"
)

func TestLogSpectrumMatchesForwardTransform(t *testing.T) {
	frame := utils.GenerateComplexWave(testFrameSize, testSampleRate)
	e := newTestEngine(t, testSampleRate)
	mustUpdate(t, e, frame)

	got, err := e.LogSpectrum()
	if err != nil {
		t.Fatalf("LogSpectrum error: %v", err)
	}
	if got.Len() != testFrameSize/2+1 {
		t.Fatalf("LogSpectrum().Len() = %d, want %d", got.Len(), testFrameSize/2+1)
	}

	windowed := append([]float64(nil), frame...)
	window.Hamming(windowed)
	tr, err := fft.NewTransform(testFrameSize, testSampleRate)
	if err != nil {
		t.Fatalf("NewTransform error: %v", err)
	}
	mags := tr.Forward(windowed)

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, m := range mags {
		want := math.Log10(m + 1)
		if math.Abs(got.At(i)-want) > 1e-9 {
			t.Fatalf("spectrum[%d] = %f, want %f", i, got.At(i), want)
		}
		lo, hi = math.Min(lo, want), math.Max(hi, want)
	}
	if got.Min() != lo || got.Max() != hi {
		t.Errorf("min/max = %f/%f, want %f/%f", got.Min(), got.Max(), lo, hi)
	}
}

func TestLogSpectrumPeak(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	// Bin 40 of a 1024 point transform.
	freq := 40 * float64(testSampleRate) / testFrameSize
	mustUpdate(t, e, utils.GenerateSineWave(testFrameSize, testSampleRate, freq))

	spectrum, err := e.LogSpectrum()
	if err != nil {
		t.Fatalf("LogSpectrum error: %v", err)
	}
	if peak := utils.FindPeakBin(spectrum.Values(), 0, spectrum.Len()-1); peak != 40 {
		t.Errorf("peak bin = %d, want 40", peak)
	}
	if spectrum.Min() < 0 {
		t.Errorf("log spectrum min = %f, want >= 0", spectrum.Min())
	}
}

func TestTransformResultValuesIsCopy(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	mustUpdate(t, e, utils.GenerateComplexWave(256, testSampleRate))

	first, _ := e.LogSpectrum()
	values := first.Values()
	values[0] = -42

	again, _ := e.LogSpectrum()
	if again.At(0) == -42 {
		t.Error("mutating Values() changed the memoized spectrum")
	}
}

func TestTransformResultEmpty(t *testing.T) {
	r := newTransformResult(nil)
	if r.Len() != 0 || r.Min() != 0 || r.Max() != 0 || len(r.Values()) != 0 {
		t.Errorf("empty result = %+v, want zero", r)
	}
}

func TestMelSpectrum(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	mustUpdate(t, e, utils.GenerateComplexWave(testFrameSize, testSampleRate))

	for _, bands := range []int{1, 10, 40} {
		mel, err := e.MelSpectrum(bands)
		if err != nil {
			t.Fatalf("MelSpectrum(%d) error: %v", bands, err)
		}
		if mel.Len() != bands {
			t.Errorf("MelSpectrum(%d).Len() = %d", bands, mel.Len())
		}
		if mel.Max() <= 0 {
			t.Errorf("MelSpectrum(%d).Max() = %f, want > 0", bands, mel.Max())
		}
	}

	// Each band count gets its own bank.
	if got := e.FilterBanks(); got != 3 {
		t.Errorf("FilterBanks() = %d, want 3", got)
	}
}

func TestMelSpectrumRejectsBadBandCount(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	mustUpdate(t, e, []float64{1, -1, 1, -1})

	for _, bands := range []int{0, -3} {
		if _, err := e.MelSpectrum(bands); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("MelSpectrum(%d) error = %v, want ErrInvalidArgument", bands, err)
		}
	}
}

func TestMelSpectrumRejectsLowSampleRate(t *testing.T) {
	for _, rate := range []float64{0.5, 1, 1.9} {
		e := newTestEngine(t, rate)
		mustUpdate(t, e, []float64{1, -1, 1, -1})
		_, err := e.MelSpectrum(4)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("rate %v: MelSpectrum error = %v, want ErrInvalidArgument", rate, err)
		}
		if !strings.Contains(err.Error(), "sample rate") {
			t.Errorf("rate %v: error %q does not name the sample rate", rate, err)
		}
		if e.FilterBanks() != 0 {
			t.Errorf("rate %v: a bank was cached for an empty range", rate)
		}
	}

	e := newTestEngine(t, 2)
	mustUpdate(t, e, []float64{1, -1, 1, -1})
	if _, err := e.MelSpectrum(4); err != nil {
		t.Errorf("MelSpectrum at 2 Hz error: %v", err)
	}
}

func TestMelFilterBankReuse(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	mustUpdate(t, e, utils.GenerateComplexWave(testFrameSize, testSampleRate))

	first, _ := e.MelSpectrum(40)
	second, _ := e.MelSpectrum(40)
	if &first.values[0] != &second.values[0] {
		t.Error("MelSpectrum(40) recomputed within one frame")
	}
	if got := e.FilterBanks(); got != 1 {
		t.Fatalf("FilterBanks() = %d, want 1", got)
	}

	key := bankKey{bands: 40, minFreq: 0, maxFreq: math.Floor(testSampleRate / 2)}
	bank := e.xf.banks[key]
	if bank == nil {
		t.Fatalf("no bank cached under %+v", key)
	}

	// A new frame at the same rate reuses the bank.
	mustUpdate(t, e, utils.GenerateSineWave(testFrameSize, testSampleRate, 1000))
	if _, err := e.MelSpectrum(40); err != nil {
		t.Fatalf("MelSpectrum error: %v", err)
	}
	if e.xf.banks[key] != bank || e.FilterBanks() != 1 {
		t.Error("filter bank rebuilt for a new frame with identical parameters")
	}

	// A new rate needs a new bank.
	if err := e.UpdateWithRate(utils.GenerateSineWave(testFrameSize, 22050, 1000), 22050); err != nil {
		t.Fatalf("UpdateWithRate error: %v", err)
	}
	mel, err := e.MelSpectrum(40)
	if err != nil {
		t.Fatalf("MelSpectrum error: %v", err)
	}
	if mel.Len() != 40 || e.FilterBanks() != 2 {
		t.Errorf("after rate change: len %d, banks %d, want 40 and 2", mel.Len(), e.FilterBanks())
	}
}

func TestMelSpectrumFollowsLogSpectrum(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	mustUpdate(t, e, utils.GenerateComplexWave(testFrameSize, testSampleRate))

	spectrum, _ := e.LogSpectrum()
	got, err := e.MelSpectrum(16)
	if err != nil {
		t.Fatalf("MelSpectrum error: %v", err)
	}

	bank, err := NewMelFilterBank(0, math.Floor(testSampleRate/2), 16)
	if err != nil {
		t.Fatalf("NewMelFilterBank error: %v", err)
	}
	want := bank.Filter(spectrum.Values(), testSampleRate)
	for i := range want {
		if got.At(i) != want[i] {
			t.Errorf("mel[%d] = %f, want %f", i, got.At(i), want[i])
		}
	}
}

func TestBandFrequencyMapping(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	mustUpdate(t, e, make([]float64, testFrameSize))
	bw := float64(testSampleRate) / testFrameSize

	tests := []struct {
		band int
		want float64
	}{
		{0, bw / 4},
		{1, bw},
		{100, 100 * bw},
		{testFrameSize / 2, testSampleRate/2 - bw/4},
	}
	for _, tt := range tests {
		got, err := e.BandToFrequency(tt.band)
		if err != nil {
			t.Fatalf("BandToFrequency(%d) error: %v", tt.band, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("BandToFrequency(%d) = %f, want %f", tt.band, got, tt.want)
		}
	}

	for _, band := range []int{-1, testFrameSize/2 + 1} {
		if _, err := e.BandToFrequency(band); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("BandToFrequency(%d) error = %v, want ErrInvalidArgument", band, err)
		}
	}

	for band := 1; band < testFrameSize/2; band++ {
		f, _ := e.BandToFrequency(band)
		got, err := e.FrequencyToBand(f)
		if err != nil {
			t.Fatalf("FrequencyToBand(%f) error: %v", f, err)
		}
		if got != band {
			t.Fatalf("FrequencyToBand(BandToFrequency(%d)) = %d", band, got)
		}
	}

	clamped := []struct {
		freq float64
		want int
	}{
		{-100, 0},
		{0, 0},
		{testSampleRate, testFrameSize / 2},
	}
	for _, tt := range clamped {
		if got, _ := e.FrequencyToBand(tt.freq); got != tt.want {
			t.Errorf("FrequencyToBand(%f) = %d, want %d", tt.freq, got, tt.want)
		}
	}

	if _, err := e.FrequencyToBand(math.NaN()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("FrequencyToBand(NaN) error = %v, want ErrInvalidArgument", err)
	}
}

func TestForwardBuilderErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	e := newTestEngine(t, testSampleRate, WithForwardBuilder(func(int, float64) (Forward, error) {
		return nil, boom
	}))
	mustUpdate(t, e, []float64{1, -1})

	if _, err := e.LogSpectrum(); !errors.Is(err, boom) {
		t.Errorf("LogSpectrum error = %v, want wrapped builder error", err)
	}
	if _, err := e.SpectralCentroid(); !errors.Is(err, boom) {
		t.Errorf("SpectralCentroid error = %v, want wrapped builder error", err)
	}

	// Time domain descriptors do not need the transform.
	if _, err := e.RMS(); err != nil {
		t.Errorf("RMS error = %v, want nil", err)
	}
}

func BenchmarkMelSpectrum(b *testing.B) {
	e := newTestEngine(b, testSampleRate)
	frame := utils.GenerateComplexWave(testFrameSize, testSampleRate)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Update(frame)
		_, _ = e.MelSpectrum(40)
	}
}
