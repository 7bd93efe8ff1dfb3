// SPDX-License-Identifier: MIT
package analysis

import "errors"

var (
	// ErrInvalidArgument reports a parameter outside its contract: empty or
	// single-sample frames, non-positive band counts or sample rates, and
	// inverted frequency ranges.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoFrame reports a descriptor or transform requested before the first
	// frame was set.
	ErrNoFrame = errors.New("no frame available")

	// ErrFeedClosed is returned by a Feed once it has been closed and drained.
	ErrFeedClosed = errors.New("feed closed")
)
