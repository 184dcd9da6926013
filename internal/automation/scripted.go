package automation

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/eventloop/internal/engine"
	"github.com/roach88/eventloop/internal/ir"
)

// Scripted plays a Script as both the Automation and the Locator capability.
//
// Thread-safety: All methods are safe for concurrent use; a Scripted is
// still meant for one run at a time since its screen clock starts at
// construction.
type Scripted struct {
	script Script
	time   engine.TimeSource
	start  time.Time

	mu      sync.Mutex
	calls   []string
	lookups int
}

var (
	_ engine.Automation = (*Scripted)(nil)
	_ engine.Locator    = (*Scripted)(nil)
)

// New creates a Scripted whose screen clock starts now on ts. A nil ts uses
// the system clock.
func New(script Script, ts engine.TimeSource) *Scripted {
	if ts == nil {
		ts = engine.SystemTime{}
	}
	return &Scripted{script: script, time: ts, start: ts.Now()}
}

// Capabilities bundles s as Automation and Locator.
func (s *Scripted) Capabilities(methods *engine.Registry) engine.Capabilities {
	return engine.Capabilities{Automation: s, Locator: s, Methods: methods}
}

// Calls returns every recorded input call in order.
func (s *Scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Lookups returns how many times Locate was called.
func (s *Scripted) Lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

// call records op:arg and returns the scripted failure for it, if any.
func (s *Scripted) call(op, arg string) error {
	name := op
	if arg != "" {
		name += ":" + arg
	}
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()

	if msg, ok := s.script.Failures[name]; ok {
		return errors.New(msg)
	}
	return nil
}

// Locate reports where el is visible right now. Position elements are
// always at their coordinates.
func (s *Scripted) Locate(ctx context.Context, el ir.Element) (*engine.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()
	return s.visible(el), nil
}

func (s *Scripted) visible(el ir.Element) *engine.Location {
	if el.Target.IsPoint() {
		return &engine.Location{X: el.Target.Point.X, Y: el.Target.Point.Y}
	}
	elapsed := s.time.Now().Sub(s.start)
	for _, item := range s.script.Screen {
		if elapsed < item.VisibleAfter || (item.VisibleUntil != 0 && elapsed >= item.VisibleUntil) {
			continue
		}
		kind, name, err := splitKey(item.Element)
		if err != nil || kind != el.Kind || !matches(el, name) {
			continue
		}
		loc := &engine.Location{}
		if len(item.Location) == 2 {
			loc.X, loc.Y = item.Location[0], item.Location[1]
		}
		loc.X += int(el.Offset.DX)
		loc.Y += int(el.Offset.DY)
		return loc
	}
	return nil
}

// matches reports whether any alternative of el names the scripted item.
// Text elements with Include match when the alternative is a substring of
// the scripted text.
func matches(el ir.Element, name string) bool {
	for _, alt := range el.Target.Alternatives {
		if alt == name {
			return true
		}
		if el.Kind == ir.ElementText && el.Include && alt != "" && strings.Contains(name, alt) {
			return true
		}
	}
	return false
}

func (s *Scripted) Screenshot(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.call("screenshot", "")
}

func (s *Scripted) Find(ctx context.Context, el ir.Element) (*engine.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.call("find", el.Key()); err != nil {
		return nil, err
	}
	return s.visible(el), nil
}

// Click clicks el when it is visible. Attempts are not retried over time:
// the scripted screen answers the same way within one call.
func (s *Scripted) Click(ctx context.Context, el ir.Element, _ engine.ClickOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.call("click", el.Key()); err != nil {
		return false, err
	}
	return s.visible(el) != nil, nil
}

func (s *Scripted) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.call("press_key", key)
}

// Wait sleeps on the run's TimeSource, so scripted visibility moves on.
func (s *Scripted) Wait(ctx context.Context, d time.Duration) error {
	if err := s.call("wait", d.String()); err != nil {
		return err
	}
	return s.time.Sleep(ctx, d)
}

func (s *Scripted) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.call("type_text", text)
}

func (s *Scripted) OCR(ctx context.Context, crop ir.Crop, _ *ir.Extract) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := crop.String()
	if err := s.call("ocr", key); err != nil {
		return "", err
	}
	if text, ok := s.script.OCR[key]; ok {
		return text, nil
	}
	return s.script.OCR["*"], nil
}
