// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"pav/internal/analysis"
)

/*
PacketTransport writes the Mel spectrum of each frame report as a packed
binary record, for consumers that cannot afford to parse JSON.

Visual Layout:

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |   Frame Generation    |  Band Count   |      Mel Energies       |
|      (uint32)     |       (uint64)        |   (uint16)    |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+

All fields are big endian.
*/
type PacketTransport struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	closed bool

	sequenceNum uint32

	// Reused between packets.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// PacketHeaderSize is the number of bytes before the Mel energies.
const PacketHeaderSize = 4 + 8 + 2

// NewPacketTransport writes packets to w. If w is an io.Closer it is closed by
// Close.
func NewPacketTransport(w io.Writer) *PacketTransport {
	t := &PacketTransport{w: w, packetBuffer: new(bytes.Buffer)}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// Send packs and writes one frame report. Other values are rejected.
func (t *PacketTransport) Send(data any) error {
	var report analysis.FrameReport
	switch v := data.(type) {
	case analysis.FrameReport:
		report = v
	case *analysis.FrameReport:
		if v == nil {
			return fmt.Errorf("packet transport: nil frame report")
		}
		report = *v
	default:
		return fmt.Errorf("packet transport: cannot send %T", data)
	}
	if len(report.Mel) > math.MaxUint16 {
		return fmt.Errorf("packet transport: %d bands exceed the packet limit", len(report.Mel))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	t.f32Buffer = t.f32Buffer[:0]
	for _, v := range report.Mel {
		t.f32Buffer = append(t.f32Buffer, float32(v))
	}

	t.sequenceNum++
	t.packetBuffer.Reset()

	err := binary.Write(t.packetBuffer, binary.BigEndian, t.sequenceNum)
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, report.Generation)
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, uint16(len(t.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, t.f32Buffer)
	}
	if err != nil {
		return fmt.Errorf("packet transport: packing frame %d: %w", report.Generation, err)
	}

	if _, err := t.w.Write(t.packetBuffer.Bytes()); err != nil {
		return fmt.Errorf("packet transport: writing packet %d: %w", t.sequenceNum, err)
	}
	return nil
}

// Close closes the underlying writer if it can be closed.
func (t *PacketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Packet is a decoded PacketTransport record.
type Packet struct {
	Sequence   uint32
	Generation uint64
	Mel        []float32
}

// ReadPacket decodes the next packet from r. It returns io.EOF when r is
// exhausted exactly at a packet boundary.
func ReadPacket(r io.Reader) (Packet, error) {
	var header [PacketHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Packet{}, err
	}

	p := Packet{
		Sequence:   binary.BigEndian.Uint32(header[0:4]),
		Generation: binary.BigEndian.Uint64(header[4:12]),
		Mel:        make([]float32, binary.BigEndian.Uint16(header[12:14])),
	}
	if err := binary.Read(r, binary.BigEndian, p.Mel); err != nil {
		return Packet{}, fmt.Errorf("reading packet %d payload: %w", p.Sequence, err)
	}
	return p, nil
}

var _ Transport = (*PacketTransport)(nil)
