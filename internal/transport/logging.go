// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"pav/internal/analysis"
	applog "pav/internal/log"
)

var logger = applog.For("transport")

// LoggingTransport implements the Transport interface by logging a one line
// summary of every frame report at DEBUG.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	logger.Debugf("using logging transport")
	return &LoggingTransport{}
}

// Send logs the received data. Logging never fails.
func (lt *LoggingTransport) Send(data any) error {
	lt.sent.Add(1)
	if p, ok := data.(*analysis.FrameReport); ok && p != nil {
		data = *p
	}
	if v, ok := data.(analysis.FrameReport); ok {
		logger.Debugf("frame %d: amp %.4f rms %.4f zcr %.1f Hz centroid %.1f Hz mel %.3f..%.3f",
			v.Generation, v.AmplitudeMax, v.RMS, v.ZeroCrossingRate, v.SpectralCentroid, v.MelMin, v.MelMax)
		return nil
	}
	logger.Debugf("received (%T): %+v", data, data)
	return nil
}

// Sent returns the number of values logged.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	logger.Debugf("logging transport closed after %d values", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
