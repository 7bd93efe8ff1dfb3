// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"fmt"
	"sync"
)

// FeedStats counts frames moving through a Feed. Received always equals
// Analyzed + Dropped + the frames still queued.
type FeedStats struct {
	Received uint64 // Frames pushed by the producer.
	Analyzed uint64 // Frames handed to the consumer by Next.
	Dropped  uint64 // Frames discarded because a newer frame arrived first.
}

// DropRatio returns the fraction of received frames that were dropped.
func (s FeedStats) DropRatio() float64 {
	if s.Received == 0 {
		return 0
	}
	return float64(s.Dropped) / float64(s.Received)
}

// Feed is a latest-frame-wins mailbox between an audio producer and the
// analysis loop. The producer never blocks; a consumer that falls behind
// skips stale frames and always analyzes the newest one.
type Feed struct {
	mu       sync.Mutex
	frames   [][]float64
	capacity int
	notify   chan struct{} // buffered(1), signalled on push and closed on Close
	closed   bool
	stats    FeedStats
}

// NewFeed creates a Feed that holds up to capacity frames before the oldest
// is dropped.
func NewFeed(capacity int) (*Feed, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: feed capacity must be positive, got %d", ErrInvalidArgument, capacity)
	}
	return &Feed{
		frames:   make([][]float64, 0, capacity),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}, nil
}

// Push queues a copy of frame. It never blocks. Pushing to a closed feed
// returns ErrFeedClosed.
func (f *Feed) Push(frame []float64) error {
	buf := make([]float64, len(frame))
	copy(buf, frame)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedClosed
	}

	if len(f.frames) == f.capacity {
		copy(f.frames, f.frames[1:])
		f.frames = f.frames[:len(f.frames)-1]
		f.stats.Dropped++
	}
	f.frames = append(f.frames, buf)
	f.stats.Received++

	select {
	case f.notify <- struct{}{}:
	default:
	}
	return nil
}

// Next blocks until a frame is available and returns the newest one,
// discarding any older frames still queued. It returns ctx.Err() if ctx ends
// first and ErrFeedClosed once the feed is closed and empty.
func (f *Feed) Next(ctx context.Context) ([]float64, error) {
	for {
		f.mu.Lock()
		if n := len(f.frames); n > 0 {
			frame := f.frames[n-1]
			clear(f.frames)
			f.frames = f.frames[:0]
			f.stats.Dropped += uint64(n - 1)
			f.stats.Analyzed++
			f.mu.Unlock()
			return frame, nil
		}
		if f.closed {
			f.mu.Unlock()
			return nil, ErrFeedClosed
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.notify:
		}
	}
}

// Close stops the feed. Frames already queued can still be taken with Next.
// Close is idempotent.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.notify)
	}
	return nil
}

// Stats returns a snapshot of the feed counters.
func (f *Feed) Stats() FeedStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}
