// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"sync"
	"testing"

	"pav/pkg/utils"
)

const (
	testFrameSize  = 1024
	testSampleRate = 44100
)

// forwardCounter records how often forward transforms are built and run.
type forwardCounter struct {
	mu       sync.Mutex
	builds   int
	forwards int
}

func (c *forwardCounter) snapshot() (builds, forwards int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds, c.forwards
}

// countingForward wraps the real transform and counts Forward calls.
type countingForward struct {
	inner   Forward
	counter *forwardCounter
}

func (c *countingForward) Forward(w []float64) []float64 {
	c.counter.mu.Lock()
	c.counter.forwards++
	c.counter.mu.Unlock()
	return c.inner.Forward(w)
}

func (c *countingForward) Size() int                 { return c.inner.Size() }
func (c *countingForward) SampleRate() float64       { return c.inner.SampleRate() }
func (c *countingForward) SpecSize() int             { return c.inner.SpecSize() }
func (c *countingForward) IndexToFreq(i int) float64 { return c.inner.IndexToFreq(i) }
func (c *countingForward) FreqToIndex(f float64) int { return c.inner.FreqToIndex(f) }

func countingBuilder(c *forwardCounter) ForwardBuilder {
	return func(size int, sampleRate float64) (Forward, error) {
		f, err := defaultForwardBuilder(size, sampleRate)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.builds++
		c.mu.Unlock()
		return &countingForward{inner: f, counter: c}, nil
	}
}

func newTestEngine(t testing.TB, sampleRate float64, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(sampleRate, opts...)
	if err != nil {
		t.Fatalf("NewEngine(%f) error: %v", sampleRate, err)
	}
	return e
}

func mustUpdate(t testing.TB, e *Engine, frame []float64) {
	t.Helper()
	if err := e.Update(frame); err != nil {
		t.Fatalf("Update error: %v", err)
	}
}

func TestNewEngineRejectsBadSampleRate(t *testing.T) {
	for _, rate := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := NewEngine(rate); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("NewEngine(%f) error = %v, want ErrInvalidArgument", rate, err)
		}
	}
}

func TestAccessorsBeforeFirstFrame(t *testing.T) {
	e := newTestEngine(t, testSampleRate)

	accessors := map[string]func() error{
		"Samples":          func() error { _, err := e.Samples(); return err },
		"WindowedSamples":  func() error { _, err := e.WindowedSamples(); return err },
		"AmplitudeMax":     func() error { _, err := e.AmplitudeMax(); return err },
		"RMS":              func() error { _, err := e.RMS(); return err },
		"ZeroCrossings":    func() error { _, err := e.ZeroCrossings(); return err },
		"ZeroCrossingRate": func() error { _, err := e.ZeroCrossingRate(); return err },
		"SpectralCentroid": func() error { _, err := e.SpectralCentroid(); return err },
		"LogSpectrum":      func() error { _, err := e.LogSpectrum(); return err },
		"MelSpectrum":      func() error { _, err := e.MelSpectrum(40); return err },
		"BandToFrequency":  func() error { _, err := e.BandToFrequency(1); return err },
		"FrequencyToBand":  func() error { _, err := e.FrequencyToBand(440); return err },
		"Report":           func() error { _, err := e.Report(40); return err },
	}

	for name, call := range accessors {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrNoFrame) {
				t.Errorf("%s() error = %v, want ErrNoFrame", name, err)
			}
		})
	}
}

func TestUpdateRejectsShortFrames(t *testing.T) {
	e := newTestEngine(t, testSampleRate)

	for _, frame := range [][]float64{nil, {}, {0.5}} {
		if err := e.Update(frame); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Update(%v) error = %v, want ErrInvalidArgument", frame, err)
		}
		if err := e.UpdateWithRate(frame, 8000); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("UpdateWithRate(%v) error = %v, want ErrInvalidArgument", frame, err)
		}
	}
	if e.Generation() != 0 {
		t.Errorf("rejected frames changed generation to %d", e.Generation())
	}
	if e.SampleRate() != testSampleRate {
		t.Errorf("rejected frame changed sample rate to %f", e.SampleRate())
	}
}

func TestUpdateCopiesFrame(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	frame := []float64{0.1, 0.2, 0.3}
	mustUpdate(t, e, frame)

	frame[0] = 0.9
	got, err := e.Samples()
	if err != nil {
		t.Fatalf("Samples error: %v", err)
	}
	if got[0] != 0.1 {
		t.Errorf("engine frame changed with producer buffer: got %f, want 0.1", got[0])
	}

	// The returned slice is a copy too.
	got[1] = 0.9
	again, _ := e.Samples()
	if again[1] != 0.2 {
		t.Errorf("Samples() exposed internal buffer: got %f, want 0.2", again[1])
	}
}

func TestWindowedSamplesHamming(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	frame := []float64{1, 1, 1, 1, 1}
	mustUpdate(t, e, frame)

	got, err := e.WindowedSamples()
	if err != nil {
		t.Fatalf("WindowedSamples error: %v", err)
	}
	n := float64(len(frame))
	for i, v := range got {
		want := frame[i] * (0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/(n-1)))
		if math.Abs(v-want) > 1e-12 {
			t.Errorf("windowed[%d] = %f, want %f", i, v, want)
		}
	}
	if math.Abs(got[0]-0.08) > 1e-12 || math.Abs(got[2]-1) > 1e-12 {
		t.Errorf("unexpected window edges/center: %v", got)
	}
}

func TestWindowedSamplesFollowUpdate(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	mustUpdate(t, e, []float64{1, 1, 1})
	first, _ := e.WindowedSamples()

	mustUpdate(t, e, []float64{-1, -1, -1})
	second, _ := e.WindowedSamples()

	for i := range first {
		if second[i] != -first[i] {
			t.Fatalf("windowed frame not recomputed after Update: %v then %v", first, second)
		}
	}
}

func TestSampleRate(t *testing.T) {
	e := newTestEngine(t, testSampleRate)

	if err := e.SetSampleRate(-5); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetSampleRate(-5) error = %v, want ErrInvalidArgument", err)
	}
	if err := e.SetSampleRate(48000); err != nil {
		t.Fatalf("SetSampleRate error: %v", err)
	}
	if e.SampleRate() != 48000 {
		t.Errorf("SampleRate() = %f, want 48000", e.SampleRate())
	}

	// The rate persists across updates until changed.
	mustUpdate(t, e, []float64{1, -1, 1, -1})
	if e.SampleRate() != 48000 {
		t.Errorf("SampleRate() after Update = %f, want 48000", e.SampleRate())
	}

	if err := e.UpdateWithRate([]float64{1, -1}, 8000); err != nil {
		t.Fatalf("UpdateWithRate error: %v", err)
	}
	if e.SampleRate() != 8000 || e.FrameSize() != 2 {
		t.Errorf("UpdateWithRate left rate %f size %d, want 8000 and 2", e.SampleRate(), e.FrameSize())
	}
}

func TestSetSampleRateMidFrame(t *testing.T) {
	frame := []float64{1, -1, 1, -1}

	reference := func(rate float64) float64 {
		t.Helper()
		e := newTestEngine(t, rate)
		mustUpdate(t, e, frame)
		c, err := e.SpectralCentroid()
		if err != nil {
			t.Fatalf("SpectralCentroid error: %v", err)
		}
		return c
	}
	centroidAt4, centroidAt8 := reference(4), reference(8)
	if centroidAt4 == 0 || math.Abs(centroidAt8-2*centroidAt4) > 1e-9 {
		t.Fatalf("reference centroids %f and %f do not scale with the rate", centroidAt4, centroidAt8)
	}

	t.Run("Computed values are kept", func(t *testing.T) {
		counter := &forwardCounter{}
		e := newTestEngine(t, 4, WithForwardBuilder(countingBuilder(counter)))
		mustUpdate(t, e, frame)

		zcr, _ := e.ZeroCrossingRate()
		centroid, _ := e.SpectralCentroid()
		spectrum, _ := e.LogSpectrum()
		if err := e.SetSampleRate(8); err != nil {
			t.Fatalf("SetSampleRate error: %v", err)
		}

		if got, _ := e.ZeroCrossingRate(); got != zcr || got != 1.5 {
			t.Errorf("ZeroCrossingRate() after SetSampleRate = %f, want 1.5", got)
		}
		if got, _ := e.SpectralCentroid(); got != centroid || got != centroidAt4 {
			t.Errorf("SpectralCentroid() after SetSampleRate = %f, want %f", got, centroidAt4)
		}
		if got, _ := e.LogSpectrum(); got.Max() != spectrum.Max() {
			t.Errorf("LogSpectrum() changed after SetSampleRate")
		}
		if builds, forwards := counter.snapshot(); builds != 1 || forwards != 1 {
			t.Errorf("builds/forwards = %d/%d, want 1/1", builds, forwards)
		}

		// The next frame is analyzed at the new rate.
		mustUpdate(t, e, frame)
		if got, _ := e.ZeroCrossingRate(); got != 3 {
			t.Errorf("ZeroCrossingRate() on next frame = %f, want 3", got)
		}
		if got, _ := e.SpectralCentroid(); math.Abs(got-centroidAt8) > 1e-9 {
			t.Errorf("SpectralCentroid() on next frame = %f, want %f", got, centroidAt8)
		}
		if builds, _ := counter.snapshot(); builds != 2 {
			t.Errorf("builds = %d, want the transform rebuilt once for the new rate", builds)
		}
	})

	t.Run("Pending values use the new rate", func(t *testing.T) {
		counter := &forwardCounter{}
		e := newTestEngine(t, 4, WithForwardBuilder(countingBuilder(counter)))
		mustUpdate(t, e, frame)

		if zcr, _ := e.ZeroCrossingRate(); zcr != 1.5 {
			t.Fatalf("ZeroCrossingRate() = %f, want 1.5", zcr)
		}
		if err := e.SetSampleRate(8); err != nil {
			t.Fatalf("SetSampleRate error: %v", err)
		}
		if zcr, _ := e.ZeroCrossingRate(); zcr != 1.5 {
			t.Errorf("memoized ZeroCrossingRate() = %f, want 1.5", zcr)
		}

		got, err := e.SpectralCentroid()
		if err != nil {
			t.Fatalf("SpectralCentroid error: %v", err)
		}
		if math.Abs(got-centroidAt8) > 1e-9 {
			t.Errorf("SpectralCentroid() = %f, want %f at the new rate", got, centroidAt8)
		}
		if _, err := e.LogSpectrum(); err != nil {
			t.Fatalf("LogSpectrum error: %v", err)
		}
		if builds, forwards := counter.snapshot(); builds != 1 || forwards != 1 {
			t.Errorf("builds/forwards = %d/%d, want 1/1", builds, forwards)
		}
		if f := e.xf.forward; f == nil || f.SampleRate() != 8 {
			t.Errorf("forward transform not built for the new rate")
		}
	})
}

func TestGenerationAdvancesPerUpdate(t *testing.T) {
	e := newTestEngine(t, testSampleRate)
	for i := 1; i <= 3; i++ {
		mustUpdate(t, e, []float64{0, 1})
		if e.Generation() != uint64(i) {
			t.Errorf("Generation() = %d, want %d", e.Generation(), i)
		}
	}
}

func TestProcessImplementsUpdate(t *testing.T) {
	var p Processor = newTestEngine(t, testSampleRate)
	if err := p.Process([]float64{1, -1}); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if err := p.Process(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Process(nil) error = %v, want ErrInvalidArgument", err)
	}
}

func TestMemoizationAvoidsRecomputation(t *testing.T) {
	counter := &forwardCounter{}
	e := newTestEngine(t, testSampleRate, WithForwardBuilder(countingBuilder(counter)))
	mustUpdate(t, e, utils.GenerateComplexWave(testFrameSize, testSampleRate))

	readAll := func() [6]float64 {
		var out [6]float64
		out[0], _ = e.AmplitudeMax()
		out[1], _ = e.RMS()
		zc, _ := e.ZeroCrossings()
		out[2] = float64(zc)
		out[3], _ = e.ZeroCrossingRate()
		out[4], _ = e.SpectralCentroid()
		mel, _ := e.MelSpectrum(40)
		out[5] = mel.Max()
		return out
	}

	first := readAll()
	spectrum1, _ := e.LogSpectrum()
	second := readAll()
	spectrum2, _ := e.LogSpectrum()

	if first != second {
		t.Errorf("repeated reads differ: %v vs %v", first, second)
	}
	if &spectrum1.values[0] != &spectrum2.values[0] {
		t.Error("LogSpectrum recomputed within one frame")
	}
	if builds, forwards := counter.snapshot(); builds != 1 || forwards != 1 {
		t.Errorf("builds = %d, forwards = %d, want 1 and 1", builds, forwards)
	}
}

func TestForwardTransformReuse(t *testing.T) {
	counter := &forwardCounter{}
	e := newTestEngine(t, testSampleRate, WithForwardBuilder(countingBuilder(counter)))

	steps := []struct {
		name         string
		apply        func()
		wantBuilds   int
		wantForwards int
	}{
		{"First frame", func() { mustUpdate(t, e, make([]float64, 256)) }, 1, 1},
		{"Same length", func() { mustUpdate(t, e, make([]float64, 256)) }, 1, 2},
		{"New length", func() { mustUpdate(t, e, make([]float64, 512)) }, 2, 3},
		{"New rate", func() {
			if err := e.SetSampleRate(48000); err != nil {
				t.Fatal(err)
			}
			mustUpdate(t, e, make([]float64, 512))
		}, 3, 4},
		{"Unchanged again", func() { mustUpdate(t, e, make([]float64, 512)) }, 3, 5},
	}

	for _, step := range steps {
		step.apply()
		if _, err := e.LogSpectrum(); err != nil {
			t.Fatalf("%s: LogSpectrum error: %v", step.name, err)
		}
		if _, err := e.SpectralCentroid(); err != nil {
			t.Fatalf("%s: SpectralCentroid error: %v", step.name, err)
		}
		builds, forwards := counter.snapshot()
		if builds != step.wantBuilds || forwards != step.wantForwards {
			t.Errorf("%s: builds = %d, forwards = %d, want %d and %d",
				step.name, builds, forwards, step.wantBuilds, step.wantForwards)
		}
	}
}

func TestInvalidationOnUpdate(t *testing.T) {
	loud := utils.GenerateSineWave(testFrameSize, testSampleRate, 4000)
	quiet := utils.GenerateSineWave(testFrameSize, testSampleRate, 200)
	for i := range quiet {
		quiet[i] *= 0.1
	}

	e := newTestEngine(t, testSampleRate)
	mustUpdate(t, e, loud)
	loudReport, err := e.Report(24)
	if err != nil {
		t.Fatalf("Report error: %v", err)
	}

	mustUpdate(t, e, quiet)
	got, err := e.Report(24)
	if err != nil {
		t.Fatalf("Report error: %v", err)
	}

	// A fresh engine fed only the second frame is the reference.
	fresh := newTestEngine(t, testSampleRate)
	mustUpdate(t, fresh, quiet)
	want, err := fresh.Report(24)
	if err != nil {
		t.Fatalf("Report error: %v", err)
	}

	if got.AmplitudeMax != want.AmplitudeMax || got.RMS != want.RMS ||
		got.ZeroCrossings != want.ZeroCrossings || got.SpectralCentroid != want.SpectralCentroid ||
		got.SpectrumMax != want.SpectrumMax || got.MelMax != want.MelMax {
		t.Errorf("stale values after Update:\n got  %+v\n want %+v", got, want)
	}
	if got.RMS == loudReport.RMS || got.SpectralCentroid == loudReport.SpectralCentroid {
		t.Error("descriptor unchanged across different frames")
	}
}

func TestConcurrentReadersNeverSeeTornState(t *testing.T) {
	e := newTestEngine(t, testSampleRate)

	// Even generations alternate sign on every sample, odd ones are constant,
	// so the zero-crossing count identifies the frame a report was built on.
	const size = 64
	alternating := utils.GenerateSquareWave(size, 1)
	constant := make([]float64, size)
	for i := range constant {
		constant[i] = 0.5
	}
	mustUpdate(t, e, constant)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(stop)
		for i := 0; i < 200; i++ {
			frame := constant
			if e.Generation()%2 == 1 {
				frame = alternating
			}
			if err := e.Update(frame); err != nil {
				t.Errorf("Update error: %v", err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				rep, err := e.Report(8)
				if err != nil {
					t.Errorf("Report error: %v", err)
					return
				}
				want := 0
				if rep.Generation%2 == 0 {
					want = size - 1
				}
				if rep.ZeroCrossings != want {
					t.Errorf("generation %d: zero crossings %d, want %d", rep.Generation, rep.ZeroCrossings, want)
					return
				}
			}
		}()
	}

	wg.Wait()
}

func BenchmarkUpdateAndReport(b *testing.B) {
	e := newTestEngine(b, testSampleRate)
	frame := utils.GenerateComplexWave(testFrameSize, testSampleRate)

	b.ReportAllocs()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Update(frame)
		_, _ = e.Report(40)
	}
}
