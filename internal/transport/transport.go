// SPDX-License-Identifier: MIT

// Package transport delivers frame reports to their consumers.
package transport

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// MultiTransport fans each value out to several transports in order.
type MultiTransport struct {
	transports []Transport
}

// NewMultiTransport combines transports. Nil entries are skipped.
func NewMultiTransport(transports ...Transport) *MultiTransport {
	m := &MultiTransport{}
	for _, t := range transports {
		if t != nil {
			m.transports = append(m.transports, t)
		}
	}
	return m
}

// Send delivers data to every transport, even if an earlier one fails, and
// returns the first error.
func (m *MultiTransport) Send(data any) error {
	var first error
	for i, t := range m.transports {
		if err := t.Send(data); err != nil && first == nil {
			first = fmt.Errorf("transport %d: %w", i, err)
		}
	}
	return first
}

// Close closes every transport and returns the first error.
func (m *MultiTransport) Close() error {
	var first error
	for i, t := range m.transports {
		if err := t.Close(); err != nil && first == nil {
			first = fmt.Errorf("transport %d: %w", i, err)
		}
	}
	return first
}

// Len returns the number of combined transports.
func (m *MultiTransport) Len() int { return len(m.transports) }

var _ Transport = (*MultiTransport)(nil)
