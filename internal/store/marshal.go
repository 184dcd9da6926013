package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/eventloop/internal/ir"
)

// marshalValue converts a map or value to JSON TEXT for storage.
//
// Canonical JSON is used whenever the value fits its supported shapes, so
// equal content stores as equal text. Values set by custom methods may hold
// arbitrary Go types; those fall back to encoding/json with HTML escaping
// disabled.
func marshalValue(v any) (string, error) {
	if data, err := ir.MarshalCanonical(v); err == nil {
		return string(data), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal %T: %w", v, err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalObject parses JSON TEXT to a map. Numbers decode as float64,
// the same shape the config loader produces.
func unmarshalObject(data string) (map[string]any, error) {
	if data == "" || data == "null" {
		return map[string]any{}, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

func unmarshalFlags(data string) (map[string]bool, error) {
	flags := map[string]bool{}
	if data == "" || data == "null" {
		return flags, nil
	}
	if err := json.Unmarshal([]byte(data), &flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	return flags, nil
}
