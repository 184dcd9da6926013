package ir

// NOTE: These are run-record types shared by the engine and the store.
// They are not part of the graph model.

// RunStatus is the terminal status of a run.
type RunStatus string

const (
	StatusExited RunStatus = "exited"
	StatusFailed RunStatus = "failed"
)

// TraceKind categorizes a trace event.
type TraceKind string

const (
	TraceRunStart         TraceKind = "run_start"
	TraceEventEnter       TraceKind = "event_enter"
	TraceConditionsPassed TraceKind = "conditions_passed"
	TraceAction           TraceKind = "action"
	TraceInlineEnter      TraceKind = "inline_enter"
	TraceInlineSkip       TraceKind = "inline_skip"
	TraceInlineExit       TraceKind = "inline_exit"
	TraceBlockMatch       TraceKind = "block_match"
	TraceGoto             TraceKind = "goto"
	TraceTimeout          TraceKind = "timeout"
	TraceExit             TraceKind = "exit"
	TraceRunEnd           TraceKind = "run_end"
)

// TraceEvent is one ordered step of a run.
type TraceEvent struct {
	RunID   string         `json:"run_id"`
	Seq     int64          `json:"seq"` // Logical clock, strictly increasing per run
	Kind    TraceKind      `json:"kind"`
	EventID string         `json:"event_id,omitempty"` // innermost current-event frame
	Depth   int            `json:"depth"`              // current-event stack depth
	Action  ActionType     `json:"action,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// RunRecord summarizes a finished run.
type RunRecord struct {
	RunID         string          `json:"run_id"`
	ModuleName    string          `json:"module_name"`
	GraphHash     string          `json:"graph_hash"`
	Status        RunStatus       `json:"status"`
	Reason        string          `json:"reason,omitempty"`
	ErrorCode     string          `json:"error_code,omitempty"`
	Error         string          `json:"error,omitempty"`
	Steps         int             `json:"steps"`
	LastEvent     string          `json:"last_event,omitempty"`
	Flags         map[string]bool `json:"flags"`
	SharedData    map[string]any  `json:"shared_data"`
	EngineVersion string          `json:"engine_version"`
}
