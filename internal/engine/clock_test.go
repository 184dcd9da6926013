package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_SeqStartsAtOneAndIncreases(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())

	for want := int64(1); want <= 3; want++ {
		assert.Equal(t, want, c.Next())
		assert.Equal(t, want, c.Current(), "Current must not advance the clock")
	}
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const goroutines, calls = 50, 100

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool, goroutines*calls)
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*calls)
	assert.Equal(t, int64(goroutines*calls), c.Current())
}

func TestSystemTime_SleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SystemTime{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSystemTime_SleepNonPositive(t *testing.T) {
	assert.NoError(t, SystemTime{}.Sleep(context.Background(), 0))
	assert.NoError(t, SystemTime{}.Sleep(context.Background(), -time.Second))
}

func TestSystemTime_Sleeps(t *testing.T) {
	start := time.Now()
	assert.NoError(t, SystemTime{}.Sleep(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}
