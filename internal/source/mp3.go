// SPDX-License-Identifier: MIT
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hajimehoshi/go-mp3"
)

// The decoder always produces 16-bit little endian stereo.
const mp3Channels = 2

type mp3Reader struct {
	dec *mp3.Decoder
	buf []byte
}

func newMP3Reader(r io.Reader) (*mp3Reader, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &mp3Reader{dec: dec}, nil
}

func (r *mp3Reader) sampleRate() float64 { return float64(r.dec.SampleRate()) }
func (r *mp3Reader) channels() int       { return mp3Channels }

func (r *mp3Reader) read(dst []float64) (int, error) {
	want := (len(dst) / mp3Channels) * mp3Channels * 2
	if cap(r.buf) < want {
		r.buf = make([]byte, want)
	}
	buf := r.buf[:want]

	n, err := io.ReadFull(r.dec, buf)
	n -= n % (mp3Channels * 2)
	for i := 0; i < n; i += 2 {
		dst[i/2] = float64(int16(binary.LittleEndian.Uint16(buf[i:]))) / math.MaxInt16
	}

	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		err = io.EOF
	case err != nil && !errors.Is(err, io.EOF):
		err = fmt.Errorf("decoding MP3: %w", err)
	}
	return n / 2, err
}
