// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

type oggReader struct {
	reader *oggvorbis.Reader
	buf    []float32
}

func newOGGReader(r io.Reader) (*oggReader, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &oggReader{reader: reader}, nil
}

func (r *oggReader) sampleRate() float64 { return float64(r.reader.SampleRate()) }
func (r *oggReader) channels() int       { return r.reader.Channels() }

func (r *oggReader) read(dst []float64) (int, error) {
	want := len(dst) - len(dst)%r.channels()
	if cap(r.buf) < want {
		r.buf = make([]float32, want)
	}
	buf := r.buf[:want]

	n, err := r.reader.Read(buf)
	for i, s := range buf[:n] {
		dst[i] = float64(min(max(s, -1), 1))
	}
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("decoding Ogg Vorbis: %w", err)
	}
	if n == 0 && err == nil {
		err = io.EOF
	}
	return n, err
}
