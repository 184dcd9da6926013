package automation

import (
	"context"
	"sync"
	"time"
)

// VirtualTime is a wall clock that jumps forward instead of sleeping.
// Scripted screens measure visibility against it, so a run with long
// timeouts and waits finishes immediately with the same outcome.
//
// It satisfies engine.TimeSource and is safe for concurrent use.
type VirtualTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtualTime creates a clock reading start.
func NewVirtualTime(start time.Time) *VirtualTime {
	return &VirtualTime{now: start}
}

func (v *VirtualTime) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Sleep advances the clock by d. A done ctx fails without advancing.
func (v *VirtualTime) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		v.mu.Lock()
		v.now = v.now.Add(d)
		v.mu.Unlock()
	}
	return nil
}
