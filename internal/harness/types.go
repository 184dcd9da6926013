package harness

import "github.com/roach88/eventloop/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success: the terminal result matched
	// expect and every assertion held.
	Pass bool `json:"pass"`

	RunID     string          `json:"run_id"`
	Status    ir.RunStatus    `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Error     string          `json:"error,omitempty"`
	LastEvent string          `json:"last_event,omitempty"`
	Steps     int             `json:"steps"`
	Flags     map[string]bool `json:"flags"`
	// SharedData is the final shared data of the run.
	SharedData map[string]any `json:"shared_data"`

	// Trace is the full trace of the run in seq order.
	Trace []ir.TraceEvent `json:"trace"`

	// Calls are the input calls the scripted automation received.
	Calls []string `json:"calls"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Flags:      map[string]bool{},
		SharedData: map[string]any{},
		Trace:      []ir.TraceEvent{},
		Calls:      []string{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
