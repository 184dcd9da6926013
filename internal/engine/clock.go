package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock is a monotonic logical clock for trace ordering.
//
// Every trace event of a run is stamped with a strictly increasing seq from
// the run's Clock. Wall-clock time never orders trace events, so a run driven
// by the same capability behavior produces the same trace.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// TimeSource supplies wall-clock time for deadlines and polling.
//
// Sleep suspends only the calling run and returns early with ctx.Err() when
// the context is cancelled.
type TimeSource interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemTime is the real wall clock.
type SystemTime struct{}

func (SystemTime) Now() time.Time { return time.Now() }

func (SystemTime) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
