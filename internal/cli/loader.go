package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/eventloop/internal/compiler"
	"github.com/roach88/eventloop/internal/ir"
)

// ConfigProblem is one load failure as printed by the CLI.
type ConfigProblem struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (p ConfigProblem) String() string {
	var b strings.Builder
	if p.Line > 0 {
		fmt.Fprintf(&b, "%d:%d: ", p.Line, p.Column)
	}
	b.WriteString(p.Code)
	if p.Field != "" {
		b.WriteString(" ")
		b.WriteString(p.Field)
	}
	b.WriteString(": ")
	b.WriteString(p.Message)
	return b.String()
}

// problemsFrom flattens a load error into problems. Errors that are not
// compiler.ConfigErrors become a single generic problem.
func problemsFrom(err error) []ConfigProblem {
	var ces compiler.ConfigErrors
	if !errors.As(err, &ces) {
		return []ConfigProblem{{Code: ErrCodeGeneric, Message: err.Error()}}
	}
	out := make([]ConfigProblem, 0, len(ces))
	for _, ce := range ces {
		p := ConfigProblem{Code: ce.Code, Field: ce.Field, Message: ce.Message}
		if ce.Pos.IsValid() {
			p.Line, p.Column = ce.Pos.Line(), ce.Pos.Column()
		}
		out = append(out, p)
	}
	return out
}

// onlyReadFailure reports whether the file could not be read at all, as
// opposed to being read and found invalid.
func onlyReadFailure(problems []ConfigProblem) bool {
	return len(problems) == 1 && problems[0].Code == compiler.ErrCodeRead
}

// loadGraph loads a config file. A missing file is reported with
// ErrCodeNotFound before the compiler is involved.
func loadGraph(path string) (*compiler.Result, []ConfigProblem) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, []ConfigProblem{{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}}
		}
		return nil, []ConfigProblem{{Code: compiler.ErrCodeRead, Message: err.Error()}}
	}
	res, err := compiler.LoadFile(path)
	if err != nil {
		return nil, problemsFrom(err)
	}
	return res, nil
}

// parseFlagOverrides parses repeated --flag name=bool values.
func parseFlagOverrides(values []string) (map[string]bool, error) {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		name, raw, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--flag %q: want name=true|false", v)
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("--flag %q: %w", v, err)
		}
		out[name] = b
	}
	return out, nil
}

// parseSharedOverrides parses repeated --set key=value values. The value is
// decoded as JSON when it parses, otherwise it is kept as a plain string,
// so --set mode=fast and --set count=3 both work.
func parseSharedOverrides(values []string) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for _, v := range values {
		key, raw, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: want key=value", v)
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			decoded = raw
		}
		out[key] = decoded
	}
	return out, nil
}

// eventTransitions collects every literal goto target in an event's
// actions, including nested inline events and conditional blocks, and
// whether any goto reads its target from shared data.
func eventTransitions(ev *ir.Event) (gotos []string, dynamic bool) {
	ir.WalkActions(ev.Actions, func(a ir.Action) bool {
		if g, ok := a.(ir.GotoAction); ok {
			if g.FromShared != "" {
				dynamic = true
			} else if g.EventID != "" {
				gotos = append(gotos, g.EventID)
			}
		}
		return true
	})
	return gotos, dynamic
}
