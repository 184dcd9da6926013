package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxSteps is the default maximum number of event entries per run.
// This prevents runaway loops from consuming unbounded resources.
const DefaultMaxSteps = 1000

// QuotaEnforcer tracks the number of graph event entries in a run and
// enforces a maximum.
//
// Each run has its own QuotaEnforcer instance. Check is called every time
// the runner enters a top-level event, including entries reached through
// on_timeout and goto. Inline events are actions and do not count.
//
// Event graphs may legitimately loop (polling hubs, retry routes), so the
// compiler only warns about cycles. The step quota is what guarantees a run
// terminates.
type QuotaEnforcer struct {
	maxSteps int // Maximum allowed entries for this run
	current  int // Current entry count
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxSteps: maxSteps,
		current:  0,
	}
}

// Check increments the step counter and validates against the limit.
// Returns StepsExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(runID string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			RunID: runID,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a run exceeds the max steps quota.
// The run ends with status failed.
type StepsExceededError struct {
	RunID string // The run that exceeded the quota
	Steps int    // Number of steps taken
	Limit int    // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max steps quota: %d steps > %d limit",
		e.RunID, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
