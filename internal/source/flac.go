// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

type flacReader struct {
	stream *flac.Stream
	scale  float64
	// Interleaved samples of the last decoded frame not yet handed out.
	leftover []float64
}

func newFLACReader(r io.Reader) (*flacReader, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, err
	}
	info := stream.Info
	if info.NChannels == 0 || info.SampleRate == 0 || info.BitsPerSample == 0 {
		return nil, fmt.Errorf("invalid FLAC stream info: %d channels at %d Hz, %d bits",
			info.NChannels, info.SampleRate, info.BitsPerSample)
	}
	return &flacReader{
		stream: stream,
		scale:  float64(int64(1) << (info.BitsPerSample - 1)),
	}, nil
}

func (r *flacReader) sampleRate() float64 { return float64(r.stream.Info.SampleRate) }
func (r *flacReader) channels() int       { return int(r.stream.Info.NChannels) }

func (r *flacReader) read(dst []float64) (int, error) {
	ch := r.channels()
	want := len(dst) - len(dst)%ch
	n := 0
	for n < want {
		if len(r.leftover) == 0 {
			if err := r.decodeFrame(); err != nil {
				if n > 0 && errors.Is(err, io.EOF) {
					return n, nil
				}
				return n, err
			}
			continue
		}
		m := copy(dst[n:want], r.leftover)
		r.leftover = r.leftover[m:]
		n += m
	}
	return n, nil
}

func (r *flacReader) decodeFrame() error {
	frame, err := r.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("decoding FLAC frame: %w", err)
	}

	ch := len(frame.Subframes)
	if ch != r.channels() {
		return fmt.Errorf("FLAC frame has %d channels, stream declares %d", ch, r.channels())
	}
	samples := int(frame.Subframes[0].NSamples)
	out := make([]float64, samples*ch)
	for i := 0; i < samples; i++ {
		for c, sub := range frame.Subframes {
			out[i*ch+c] = float64(sub.Samples[i]) / r.scale
		}
	}
	r.leftover = out
	return nil
}
