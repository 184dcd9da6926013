package automation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/eventloop/internal/ir"
)

// Script is the scripted screen a run sees.
type Script struct {
	// Screen lists the elements that become visible during a run.
	Screen []ScreenItem `yaml:"screen,omitempty"`

	// OCR maps a crop ("x1,y1,x2,y2", as ir.Crop.String renders it) to the
	// text recognized there. The "*" key answers every other crop.
	OCR map[string]string `yaml:"ocr,omitempty"`

	// Failures maps a recorded call (e.g. "click:text:Start") to an error
	// message the call fails with.
	Failures map[string]string `yaml:"failures,omitempty"`
}

// ScreenItem is one element on the scripted screen.
type ScreenItem struct {
	// Element is the element key, "kind:target". For text and image items
	// the target is a single name; a lookup matches when any of its
	// alternatives equals it.
	Element string `yaml:"element"`

	// VisibleAfter is the run time at which the element appears.
	VisibleAfter time.Duration `yaml:"visible_after,omitempty"`

	// VisibleUntil is the run time at which the element disappears.
	// Zero means it stays.
	VisibleUntil time.Duration `yaml:"visible_until,omitempty"`

	// Location is the [x, y] pixel position reported for the element.
	Location []int `yaml:"location,omitempty"`
}

// LoadScript reads a script YAML file.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("failed to read script file: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses a script document. Unknown fields are rejected. An
// empty document is an empty script.
func ParseScript(data []byte) (Script, error) {
	var s Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Script{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, fmt.Errorf("invalid script: %w", err)
	}
	return s, nil
}

// Validate checks every screen item.
func (s Script) Validate() error {
	for i, item := range s.Screen {
		if _, _, err := splitKey(item.Element); err != nil {
			return fmt.Errorf("screen[%d]: %w", i, err)
		}
		if len(item.Location) != 0 && len(item.Location) != 2 {
			return fmt.Errorf("screen[%d]: location must be [x, y]", i)
		}
		if item.VisibleAfter < 0 || item.VisibleUntil < 0 {
			return fmt.Errorf("screen[%d]: visibility times must not be negative", i)
		}
		if item.VisibleUntil != 0 && item.VisibleUntil <= item.VisibleAfter {
			return fmt.Errorf("screen[%d]: visible_until must be after visible_after", i)
		}
	}
	return nil
}

func splitKey(key string) (ir.ElementKind, string, error) {
	kind, target, ok := strings.Cut(key, ":")
	if !ok || target == "" {
		return "", "", fmt.Errorf("element %q: want kind:target", key)
	}
	k := ir.ElementKind(kind)
	if !ir.ValidElementKinds[k] {
		return "", "", fmt.Errorf("element %q: unknown kind %q", key, kind)
	}
	return k, target, nil
}
