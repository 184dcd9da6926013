package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/eventloop/internal/automation"
	"github.com/roach88/eventloop/internal/ir"
)

// Scenario defines a run of one config against a scripted screen, with the
// expected terminal result and assertions on the trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the path of the JSON config to load, relative to the
	// scenario file.
	Config string `yaml:"config"`

	// RunID is a fixed run id for deterministic traces.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// MaxSteps overrides the runner's step limit; 0 disables it.
	MaxSteps *int `yaml:"max_steps,omitempty"`

	// Flags and SharedData are laid over the config's initial values.
	Flags      map[string]bool `yaml:"flags,omitempty"`
	SharedData map[string]any  `yaml:"shared_data,omitempty"`

	// Screen, OCR and Failures script the automation (see automation.Script).
	Screen   []automation.ScreenItem `yaml:"screen,omitempty"`
	OCR      map[string]string       `yaml:"ocr,omitempty"`
	Failures map[string]string       `yaml:"failures,omitempty"`

	// Timeout bounds the whole run in fake time. Zero means no bound.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Expect is the expected terminal result.
	Expect ExpectClause `yaml:"expect"`

	// Assertions validate the trace and the automation calls.
	// Supported types: trace_contains, trace_order, trace_count, automation_calls
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Script returns the automation script the scenario describes.
func (s *Scenario) Script() automation.Script {
	return automation.Script{Screen: s.Screen, OCR: s.OCR, Failures: s.Failures}
}

// ExpectClause specifies the expected terminal result.
// Unset fields are not checked; Flags and SharedData are subset matches.
type ExpectClause struct {
	Status     ir.RunStatus    `yaml:"status"`
	Reason     *string         `yaml:"reason,omitempty"`
	ErrorCode  *string         `yaml:"error_code,omitempty"`
	LastEvent  *string         `yaml:"last_event,omitempty"`
	Steps      *int            `yaml:"steps,omitempty"`
	Flags      map[string]bool `yaml:"flags,omitempty"`
	SharedData map[string]any  `yaml:"shared_data,omitempty"`
}

// Assertion validates the trace or the automation calls.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": some trace event matches kind/event/action/detail
	// - "trace_order": events are entered in this order
	// - "trace_count": exactly Count trace events match kind/event/action
	// - "automation_calls": the automation received these calls in order
	Type string `yaml:"type"`

	// Kind is the trace kind to match (trace_contains defaults to "action").
	Kind ir.TraceKind `yaml:"kind,omitempty"`

	// Event is the innermost event id to match.
	Event string `yaml:"event,omitempty"`

	// Action is the action type to match.
	Action ir.ActionType `yaml:"action,omitempty"`

	// Detail is a subset of the trace detail to match (trace_contains).
	Detail map[string]any `yaml:"detail,omitempty"`

	// Events is the expected order of event entries (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty"`

	// Calls is the expected call sequence (automation_calls). Other calls
	// may appear in between unless Exact is set.
	Calls []string `yaml:"calls,omitempty"`
	Exact bool     `yaml:"exact,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains   = "trace_contains"
	AssertTraceOrder      = "trace_order"
	AssertTraceCount      = "trace_count"
	AssertAutomationCalls = "automation_calls"
)

// LoadScenario reads and parses a scenario YAML file, resolving the config
// path relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Config == "" {
		return fmt.Errorf("config is required")
	}
	if _, err := os.Stat(s.Config); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", s.Config)
	}

	switch s.Expect.Status {
	case ir.StatusExited, ir.StatusFailed:
	case "":
		return fmt.Errorf("expect.status is required")
	default:
		return fmt.Errorf("expect.status %q: want exited or failed", s.Expect.Status)
	}

	if s.MaxSteps != nil && *s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	if err := s.Script().Validate(); err != nil {
		return err
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" && a.Action == "" {
			return fmt.Errorf("assertions[%d]: kind or action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" && a.Action == "" {
			return fmt.Errorf("assertions[%d]: kind or action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertAutomationCalls:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for automation_calls", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
