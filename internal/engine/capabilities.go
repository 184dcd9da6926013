package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/eventloop/internal/ir"
)

// Location is a resolved on-screen point in pixels.
type Location struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Locator resolves element descriptors for found/not_found conditions.
// A nil Location with a nil error means the element is not on screen.
type Locator interface {
	Locate(ctx context.Context, el ir.Element) (*Location, error)
}

// ClickOptions carries the click params of a click action.
type ClickOptions struct {
	Mode     string // e.g. "move_click"
	Attempts int    // lookup attempts before giving up
}

// Automation is the facade over screen capture, recognition and input.
//
// Every action that touches the screen or input devices is a single call
// here. A false result from Click or a nil Location from Find is not an
// error: branching is driven only by conditions.
type Automation interface {
	Screenshot(ctx context.Context) error
	Find(ctx context.Context, el ir.Element) (*Location, error)
	Click(ctx context.Context, el ir.Element, opts ClickOptions) (bool, error)
	PressKey(ctx context.Context, key string) error
	// Wait suspends the calling run only.
	Wait(ctx context.Context, d time.Duration) error
	TypeText(ctx context.Context, text string) error
	// OCR recognizes text in a crop of the last screenshot.
	OCR(ctx context.Context, crop ir.Crop, extract *ir.Extract) (string, error)
}

// Capabilities is the bundle of collaborators a Runner is built with.
// Nothing is looked up from process-wide state.
type Capabilities struct {
	Automation Automation
	Locator    Locator
	Methods    *Registry    // nil = NewRegistry()
	Logger     *slog.Logger // nil = slog.Default()
}

// withDefaults fills optional capabilities and rejects missing required ones.
func (c Capabilities) withDefaults() (Capabilities, error) {
	if c.Automation == nil {
		return c, errors.New("capabilities: Automation is required")
	}
	if c.Locator == nil {
		return c, errors.New("capabilities: Locator is required")
	}
	if c.Methods == nil {
		c.Methods = NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c, nil
}
