package testutil

import (
	"context"
	"sync"
	"time"
)

// Epoch is the instant a FakeTime starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FakeTime is a manual wall clock for tests.
//
// Sleep returns immediately after advancing the clock by the requested
// duration, so timeout and polling tests run instantly and deterministically.
// It satisfies engine.TimeSource.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeTime struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	hook   func(elapsed time.Duration)
}

// NewFakeTime creates a clock reading Epoch.
func NewFakeTime() *FakeTime {
	return &FakeTime{now: Epoch}
}

// Now returns the current fake time.
func (f *FakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances the clock by d. It fails with ctx.Err() without advancing
// when ctx is already done.
func (f *FakeTime) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	if d > 0 {
		f.now = f.now.Add(d)
	}
	f.sleeps = append(f.sleeps, d)
	hook, elapsed := f.hook, f.now.Sub(Epoch)
	f.mu.Unlock()

	if hook != nil {
		hook(elapsed)
	}
	return ctx.Err()
}

// Advance moves the clock forward without recording a sleep.
func (f *FakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Elapsed returns the time passed since Epoch.
func (f *FakeTime) Elapsed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.Sub(Epoch)
}

// Sleeps returns every requested sleep in call order.
func (f *FakeTime) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// OnSleep installs a hook called after each Sleep with the total elapsed
// time. Tests use it to cancel a run or change scripted state mid-run.
func (f *FakeTime) OnSleep(hook func(elapsed time.Duration)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}
