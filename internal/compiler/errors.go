package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Config error codes.
//
// E00x are document-level failures (unreadable, not JSON, schema).
// E1xx are semantic failures found while building the graph.
const (
	ErrCodeRead           = "E001" // file could not be read
	ErrCodeParse          = "E002" // not valid JSON
	ErrCodeSchema         = "E003" // document violates the config schema
	ErrCodeSchemaInternal = "E009" // embedded schema failed to compile

	ErrCodeDuplicateEvent = "E101" // duplicate event id
	ErrCodeInitialEvent   = "E102" // initial_event does not resolve
	ErrCodeNextEvent      = "E103" // next_event does not resolve
	ErrCodeOnTimeout      = "E104" // on_timeout does not resolve
	ErrCodeGotoTarget     = "E105" // literal goto target does not resolve
	ErrCodeInvalidParam   = "E106" // action or condition param missing or mistyped
	ErrCodeInvalidCrop    = "E107" // crop rectangle empty or inverted
	ErrCodeInvalidTarget  = "E108" // element target does not fit its kind
)

// ConfigError is a single load failure with source position.
type ConfigError struct {
	Code    string
	Field   string // dotted path into the document, e.g. events[2].actions[0].params.key
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	b.WriteString(e.Code)
	if e.Field != "" {
		b.WriteString(" ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// ConfigErrors collects every failure found in one document.
// Load returns it (as error) whenever at least one failure occurred.
type ConfigErrors []*ConfigError

func (es ConfigErrors) Error() string {
	switch len(es) {
	case 0:
		return "no errors"
	case 1:
		return es[0].Error()
	}
	lines := make([]string, len(es))
	for i, e := range es {
		lines[i] = e.Error()
	}
	return fmt.Sprintf("%d config errors:\n%s", len(es), strings.Join(lines, "\n"))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (es ConfigErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Codes returns the error codes in order; handy for tests and JSON output.
func (es ConfigErrors) Codes() []string {
	codes := make([]string, len(es))
	for i, e := range es {
		codes[i] = e.Code
	}
	return codes
}

// formatCUEErrors converts a CUE error list into ConfigErrors, keeping the
// first position reported for each.
func formatCUEErrors(code string, err error) ConfigErrors {
	if err == nil {
		return nil
	}

	var out ConfigErrors
	for _, e := range errors.Errors(err) {
		ce := &ConfigError{
			Code:    code,
			Field:   strings.Join(e.Path(), "."),
			Message: cueMessage(e),
		}
		if positions := errors.Positions(e); len(positions) > 0 {
			ce.Pos = positions[0]
		}
		out = append(out, ce)
	}
	if len(out) == 0 {
		out = append(out, &ConfigError{Code: code, Message: err.Error()})
	}
	return out
}

// cueMessage renders the message of a CUE error without its path prefix,
// which ConfigError carries separately in Field.
func cueMessage(e errors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}
