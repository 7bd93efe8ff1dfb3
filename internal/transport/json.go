// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// JSONTransport writes every value as one line of JSON.
type JSONTransport struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	closed bool
}

// NewJSONTransport writes newline-delimited JSON to w. If w is an io.Closer it
// is closed by Close.
func NewJSONTransport(w io.Writer) *JSONTransport {
	t := &JSONTransport{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// Send encodes data followed by a newline.
func (t *JSONTransport) Send(data any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if err := t.enc.Encode(data); err != nil {
		return fmt.Errorf("encoding %T: %w", data, err)
	}
	return nil
}

// Close closes the underlying writer if it can be closed.
func (t *JSONTransport) Close() error {
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

var _ Transport = (*JSONTransport)(nil)
