// SPDX-License-Identifier: MIT

// Package source reads audio files and streams and cuts them into mono frames
// for the analysis engine.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	applog "pav/internal/log"
)

var logger = applog.For("source")

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidOptions    = errors.New("invalid source options")
)

// Sample formats and byte orders understood by the raw stream reader.
const (
	FormatFloat32 = "float32"
	FormatInt16   = "int16"

	LittleEndian = "le"
	BigEndian    = "be"
)

// Source yields consecutive mono frames of a fixed size.
type Source interface {
	// Next returns the next frame. The final partial frame is zero-padded.
	// io.EOF is returned once the input is exhausted.
	Next() ([]float64, error)
	SampleRate() float64
	// Channels is the channel count of the input before mixdown.
	Channels() int
	Close() error
}

// Options controls framing, and for raw streams the sample layout.
type Options struct {
	FrameSize int
	Hop       int // samples between frame starts, FrameSize when 0

	// Raw streams carry no header.
	SampleRate   float64
	Channels     int
	SampleFormat string
	ByteOrder    string

	// Stdin is read when path is "-". Defaults to os.Stdin.
	Stdin io.Reader
}

func (o Options) validate() error {
	if o.FrameSize < 2 {
		return fmt.Errorf("%w: frame size must be at least 2, got %d", ErrInvalidOptions, o.FrameSize)
	}
	if o.Hop < 0 {
		return fmt.Errorf("%w: hop must not be negative, got %d", ErrInvalidOptions, o.Hop)
	}
	return nil
}

// sampleReader decodes interleaved samples normalized to [-1, 1].
type sampleReader interface {
	// read fills dst with whole sample frames and returns the number of
	// samples written. It returns io.EOF when no samples are left.
	read(dst []float64) (int, error)
	sampleRate() float64
	channels() int
}

// Open opens path and picks a decoder by extension. "-" reads a raw stream
// from opts.Stdin.
func Open(path string, opts Options) (Source, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if path == "-" {
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		r, err := newRawReader(in, opts)
		if err != nil {
			return nil, err
		}
		return newFramer(r, nil, opts), nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".mp3", ".flac", ".ogg", ".raw", ".pcm":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}

	var r sampleReader
	switch ext {
	case ".wav":
		r, err = newWAVReader(f)
	case ".mp3":
		r, err = newMP3Reader(f)
	case ".flac":
		r, err = newFLACReader(f)
	case ".ogg":
		r, err = newOGGReader(f)
	default:
		r, err = newRawReader(f, opts)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	logger.Debugf("opened %s (%.0f Hz, %d channels)", path, r.sampleRate(), r.channels())
	return newFramer(r, f, opts), nil
}

// framer mixes a sampleReader down to mono and cuts it into frames.
type framer struct {
	r      sampleReader
	closer io.Closer

	frameSize int
	hop       int

	chunk   []float64 // interleaved decode buffer
	pending []float64 // mono samples not yet dropped by a hop
	covered int       // leading pending samples already part of an emitted frame
	skip    int       // samples still to discard when hop exceeds the frame
	eof     bool
	done    bool
}

const chunkFrames = 4096

func newFramer(r sampleReader, closer io.Closer, opts Options) *framer {
	hop := opts.Hop
	if hop == 0 {
		hop = opts.FrameSize
	}
	return &framer{
		r:         r,
		closer:    closer,
		frameSize: opts.FrameSize,
		hop:       hop,
		chunk:     make([]float64, chunkFrames*max(r.channels(), 1)),
		pending:   make([]float64, 0, opts.FrameSize+chunkFrames),
	}
}

func (s *framer) SampleRate() float64 { return s.r.sampleRate() }
func (s *framer) Channels() int       { return s.r.channels() }

func (s *framer) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *framer) Next() ([]float64, error) {
	if s.done {
		return nil, io.EOF
	}
	for len(s.pending) < s.frameSize && !s.eof {
		if err := s.fill(); err != nil {
			return nil, err
		}
	}

	if len(s.pending) >= s.frameSize {
		frame := make([]float64, s.frameSize)
		copy(frame, s.pending)
		s.advance()
		return frame, nil
	}

	s.done = true
	if len(s.pending) <= s.covered {
		return nil, io.EOF
	}
	frame := make([]float64, s.frameSize)
	copy(frame, s.pending)
	s.pending = s.pending[:0]
	return frame, nil
}

func (s *framer) fill() error {
	n, err := s.r.read(s.chunk)
	ch := max(s.r.channels(), 1)
	for i := 0; i+ch <= n; i += ch {
		if s.skip > 0 {
			s.skip--
			continue
		}
		var sum float64
		for _, v := range s.chunk[i : i+ch] {
			sum += v
		}
		s.pending = append(s.pending, sum/float64(ch))
	}

	switch {
	case errors.Is(err, io.EOF):
		s.eof = true
	case err != nil:
		return fmt.Errorf("reading samples: %w", err)
	}
	return nil
}

func (s *framer) advance() {
	if s.hop >= len(s.pending) {
		s.skip = s.hop - len(s.pending)
		s.pending = s.pending[:0]
		s.covered = 0
		return
	}
	n := copy(s.pending, s.pending[s.hop:])
	s.pending = s.pending[:n]
	s.covered = max(s.frameSize-s.hop, 0)
}
