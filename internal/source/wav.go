// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var errInvalidWAV = errors.New("invalid WAV file")

// wavReader decodes PCM WAV files of 8, 16, 24 or 32 bits.
type wavReader struct {
	dec   *wav.Decoder
	buf   *audio.IntBuffer
	scale float64
	// 8-bit WAV samples are unsigned.
	offset int
}

func newWAVReader(rs io.ReadSeeker) (*wavReader, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, errInvalidWAV
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth %d", errInvalidWAV, bitDepth)
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", errInvalidWAV, dec.NumChans, dec.SampleRate)
	}

	r := &wavReader{
		dec:   dec,
		scale: float64(int64(1) << (bitDepth - 1)),
		buf: &audio.IntBuffer{
			Format:         dec.Format(),
			SourceBitDepth: bitDepth,
		},
	}
	if bitDepth == 8 {
		r.offset = 128
	}
	return r, nil
}

func (r *wavReader) sampleRate() float64 { return float64(r.dec.SampleRate) }
func (r *wavReader) channels() int       { return int(r.dec.NumChans) }

func (r *wavReader) read(dst []float64) (int, error) {
	want := len(dst) - len(dst)%r.channels()
	if cap(r.buf.Data) < want {
		r.buf.Data = make([]int, want)
	}
	r.buf.Data = r.buf.Data[:want]

	n, err := r.dec.PCMBuffer(r.buf)
	if err != nil {
		return 0, fmt.Errorf("decoding WAV samples: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	n -= n % r.channels()
	for i, v := range r.buf.Data[:n] {
		dst[i] = float64(v-r.offset) / r.scale
	}
	return n, nil
}
