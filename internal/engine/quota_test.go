package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer_Limits(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		allowed int
	}{
		{"single entry", 1, 1},
		{"ten entries", 10, 10},
		{"zero allows none", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuotaEnforcer(tt.max)
			for i := 0; i < tt.allowed; i++ {
				require.NoError(t, q.Check("run-1"), "entry %d", i+1)
			}

			err := q.Check("run-1")
			var stepsErr *StepsExceededError
			require.ErrorAs(t, err, &stepsErr)
			assert.Equal(t, "run-1", stepsErr.RunID)
			assert.Equal(t, tt.allowed+1, stepsErr.Steps)
			assert.Equal(t, tt.max, stepsErr.Limit)
			assert.Equal(t, tt.allowed+1, q.Current())
			assert.Equal(t, tt.max, q.MaxSteps())
		})
	}
}

func TestStepsExceededError_CodeAndMessage(t *testing.T) {
	err := &StepsExceededError{RunID: "run-abc", Steps: 1001, Limit: 1000}
	assert.Equal(t, "run run-abc exceeded max steps quota: 1001 steps > 1000 limit", err.Error())

	wrapped := fmt.Errorf("step start: %w", err)
	assert.True(t, IsStepsExceededError(wrapped))
	assert.Equal(t, string(ErrCodeQuotaExceeded), ErrorCode(wrapped))

	assert.False(t, IsStepsExceededError(fmt.Errorf("other")))
	assert.False(t, IsStepsExceededError(nil))
	assert.Equal(t, "", ErrorCode(fmt.Errorf("other")))
}

func TestQuota_DefaultMaxSteps(t *testing.T) {
	assert.Equal(t, 1000, DefaultMaxSteps)
}
