// SPDX-License-Identifier: MIT
package source

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// rawReader decodes a headerless PCM stream of float32 or int16 samples.
type rawReader struct {
	in       *bufio.Reader
	order    binary.ByteOrder
	width    int
	decode   func(b []byte) float64
	rate     float64
	numChans int
	buf      []byte
}

func newRawReader(in io.Reader, opts Options) (*rawReader, error) {
	if !(opts.SampleRate > 0) || math.IsInf(opts.SampleRate, 0) {
		return nil, fmt.Errorf("%w: raw stream needs a positive sample rate, got %f", ErrInvalidOptions, opts.SampleRate)
	}
	numChans := opts.Channels
	if numChans == 0 {
		numChans = 1
	}
	if numChans < 0 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidOptions, numChans)
	}

	r := &rawReader{
		in:       bufio.NewReader(in),
		rate:     opts.SampleRate,
		numChans: numChans,
	}

	switch opts.ByteOrder {
	case LittleEndian, "":
		r.order = binary.LittleEndian
	case BigEndian:
		r.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: unknown byte order %q", ErrInvalidOptions, opts.ByteOrder)
	}

	switch opts.SampleFormat {
	case FormatFloat32, "":
		r.width = 4
		r.decode = func(b []byte) float64 {
			return float64(math.Float32frombits(r.order.Uint32(b)))
		}
	case FormatInt16:
		r.width = 2
		r.decode = func(b []byte) float64 {
			return float64(int16(r.order.Uint16(b))) / math.MaxInt16
		}
	default:
		return nil, fmt.Errorf("%w: unknown sample format %q", ErrInvalidOptions, opts.SampleFormat)
	}
	return r, nil
}

func (r *rawReader) sampleRate() float64 { return r.rate }
func (r *rawReader) channels() int       { return r.numChans }

func (r *rawReader) read(dst []float64) (int, error) {
	frameBytes := r.width * r.numChans
	want := (len(dst) / r.numChans) * frameBytes
	if cap(r.buf) < want {
		r.buf = make([]byte, want)
	}
	buf := r.buf[:want]

	n, err := io.ReadFull(r.in, buf)
	// A truncated trailing frame is discarded.
	n -= n % frameBytes
	for i := 0; i < n; i += r.width {
		dst[i/r.width] = r.decode(buf[i : i+r.width])
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n / r.width, err
}
