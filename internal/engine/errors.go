package engine

import (
	"errors"
	"fmt"
	"time"
)

// RuntimeError represents an error detected while a run executes.
//
// Runtime errors include:
//   - Unknown event: a transition target does not resolve
//   - Unknown method: call_method or a custom condition names nothing registered
//   - Timeout: an event's deadline passed with no on_timeout route
//   - Capability failure: an automation or method call returned an error
//
// Every RuntimeError ends its run with status failed. None are retried.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run.
	RunID string

	// EventID is the innermost current event when the error occurred.
	EventID string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownEvent indicates a transition target is not in the graph.
	ErrCodeUnknownEvent RuntimeErrorCode = "UNKNOWN_EVENT"

	// ErrCodeUnknownMethod indicates a method or predicate is not registered.
	ErrCodeUnknownMethod RuntimeErrorCode = "UNKNOWN_METHOD"

	// ErrCodeUnknownAction indicates an action variant the executor cannot dispatch.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeUnknownCondition indicates a condition variant the evaluator cannot dispatch.
	ErrCodeUnknownCondition RuntimeErrorCode = "UNKNOWN_CONDITION"

	// ErrCodeTimeout indicates an event deadline elapsed with no on_timeout.
	ErrCodeTimeout RuntimeErrorCode = "TIMEOUT"

	// ErrCodeQuotaExceeded indicates the run exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeCapabilityFailed indicates a capability or method call failed.
	ErrCodeCapabilityFailed RuntimeErrorCode = "CAPABILITY_FAILED"

	// ErrCodeInvalidParams indicates params or shared data had the wrong shape
	// at the point of use.
	ErrCodeInvalidParams RuntimeErrorCode = "INVALID_PARAMS"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EventID != "" {
		msg += fmt.Sprintf(" (event=%s)", e.EventID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownEventError returns true if a transition target did not resolve.
// Uses errors.As to handle wrapped errors.
func IsUnknownEventError(err error) bool {
	return hasCode(err, ErrCodeUnknownEvent)
}

// IsUnknownMethodError returns true if a method or predicate was not registered.
func IsUnknownMethodError(err error) bool {
	return hasCode(err, ErrCodeUnknownMethod)
}

// IsUnknownActionError returns true if an action could not be dispatched.
func IsUnknownActionError(err error) bool {
	return hasCode(err, ErrCodeUnknownAction)
}

// IsTimeoutError returns true if an event deadline elapsed without a route.
func IsTimeoutError(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsCapabilityError returns true if a collaborator call failed.
func IsCapabilityError(err error) bool {
	return hasCode(err, ErrCodeCapabilityFailed)
}

// IsInvalidParamsError returns true if params had the wrong shape at run time.
func IsInvalidParamsError(err error) bool {
	return hasCode(err, ErrCodeInvalidParams)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	if hasCode(err, ErrCodeQuotaExceeded) {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// ErrorCode returns the code of a RuntimeError (or QUOTA_EXCEEDED for a
// StepsExceededError), or "" for anything else.
func ErrorCode(err error) string {
	var re *RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	if IsStepsExceededError(err) {
		return string(ErrCodeQuotaExceeded)
	}
	return ""
}

// NewUnknownEventError creates a RuntimeError for an unresolvable event id.
func NewUnknownEventError(eventID string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownEvent,
		Message: fmt.Sprintf("event %q does not exist", eventID),
		Details: map[string]string{"target": eventID},
		Err:     cause,
	}
}

// NewUnknownMethodError creates a RuntimeError for an unregistered name.
// kind is "method" or "predicate".
func NewUnknownMethodError(kind, name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownMethod,
		Message: fmt.Sprintf("%s %q is not registered", kind, name),
		Details: map[string]string{"name": name, "kind": kind},
	}
}

// NewTimeoutError creates a RuntimeError for an unrouted deadline.
func NewTimeoutError(eventID string, timeout time.Duration) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTimeout,
		Message: fmt.Sprintf("conditions did not pass within %s and no on_timeout is set", timeout),
		EventID: eventID,
		Details: map[string]string{"timeout": timeout.String()},
	}
}

// NewCapabilityError wraps a failed collaborator call.
func NewCapabilityError(op string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCapabilityFailed,
		Message: fmt.Sprintf("%s failed", op),
		Details: map[string]string{"op": op},
		Err:     cause,
	}
}

// NewInvalidParamsError reports params or shared data of the wrong shape.
func NewInvalidParamsError(format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidParams,
		Message: fmt.Sprintf(format, args...),
	}
}
