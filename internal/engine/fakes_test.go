package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/eventloop/internal/ir"
	"github.com/roach88/eventloop/internal/testutil"
)

// fakeAutomation records every call as "op:arg" and fails ops listed in fail.
type fakeAutomation struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	ocrText string
	clicked bool
	found   *Location
	clock   *testutil.FakeTime
}

func newFakeAutomation() *fakeAutomation {
	return &fakeAutomation{fail: map[string]error{}, clicked: true}
}

func (f *fakeAutomation) call(op, arg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if arg != "" {
		f.calls = append(f.calls, op+":"+arg)
	} else {
		f.calls = append(f.calls, op)
	}
	return f.fail[op]
}

func (f *fakeAutomation) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAutomation) Screenshot(context.Context) error { return f.call("screenshot", "") }

func (f *fakeAutomation) Find(_ context.Context, el ir.Element) (*Location, error) {
	if err := f.call("find", el.Key()); err != nil {
		return nil, err
	}
	return f.found, nil
}

func (f *fakeAutomation) Click(_ context.Context, el ir.Element, opts ClickOptions) (bool, error) {
	if err := f.call("click", fmt.Sprintf("%s/%s/%d", el.Key(), opts.Mode, opts.Attempts)); err != nil {
		return false, err
	}
	return f.clicked, nil
}

func (f *fakeAutomation) PressKey(_ context.Context, key string) error {
	return f.call("press_key", key)
}

func (f *fakeAutomation) Wait(ctx context.Context, d time.Duration) error {
	if err := f.call("wait", d.String()); err != nil {
		return err
	}
	if f.clock != nil {
		return f.clock.Sleep(ctx, d)
	}
	return nil
}

func (f *fakeAutomation) TypeText(_ context.Context, text string) error {
	return f.call("type_text", text)
}

func (f *fakeAutomation) OCR(_ context.Context, crop ir.Crop, _ *ir.Extract) (string, error) {
	if err := f.call("ocr", crop.String()); err != nil {
		return "", err
	}
	return f.ocrText, nil
}

// fakeLocator resolves elements whose key is visible. A visibility function
// may depend on elapsed fake time.
type fakeLocator struct {
	mu      sync.Mutex
	visible map[string]func() bool
	lookups []string
	err     error
}

func newFakeLocator() *fakeLocator {
	return &fakeLocator{visible: map[string]func() bool{}}
}

func (l *fakeLocator) show(key string) {
	l.visible[key] = func() bool { return true }
}

func (l *fakeLocator) showWhen(key string, fn func() bool) {
	l.visible[key] = fn
}

func (l *fakeLocator) Locate(_ context.Context, el ir.Element) (*Location, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lookups = append(l.lookups, el.Key())
	if l.err != nil {
		return nil, l.err
	}
	if fn, ok := l.visible[el.Key()]; ok && fn() {
		return &Location{X: 10, Y: 20}, nil
	}
	return nil, nil
}

func (l *fakeLocator) Lookups() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lookups...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	auto    *fakeAutomation
	loc     *fakeLocator
	methods *Registry
	clock   *testutil.FakeTime
	rec     *MemoryRecorder
}

func newFixture() *fixture {
	clock := testutil.NewFakeTime()
	auto := newFakeAutomation()
	auto.clock = clock
	return &fixture{
		auto:    auto,
		loc:     newFakeLocator(),
		methods: NewRegistry(),
		clock:   clock,
		rec:     NewMemoryRecorder(),
	}
}

func (f *fixture) caps() Capabilities {
	return Capabilities{
		Automation: f.auto,
		Locator:    f.loc,
		Methods:    f.methods,
		Logger:     discardLogger(),
	}
}

func (f *fixture) runner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithTimeSource(f.clock),
		WithRecorder(f.rec),
		WithRunIDGenerator(testutil.NewFixedRunIDGenerator("run-1")),
	}
	r, err := NewRunner(f.caps(), append(base, opts...)...)
	require.NoError(t, err)
	return r
}

func graph(t *testing.T, initial string, events ...*ir.Event) *ir.Graph {
	t.Helper()
	g, err := ir.NewGraph(ir.Meta{ModuleName: "test", InitialEvent: initial}, events)
	require.NoError(t, err)
	return g
}

func text(name string) ir.Element {
	return ir.Element{Kind: ir.ElementText, Target: ir.TextTarget(name), Crop: ir.FullFrame(), Threshold: ir.DefaultThreshold, Include: true}
}

func found(name string) ir.Condition { return ir.FoundCondition{Element: text(name)} }

func setFlag(name string) ir.Action { return ir.SetFlagAction{Flag: name, Value: true} }

// kinds returns "kind" or "kind@event" per trace event, for order checks.
func kinds(events []ir.TraceEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		s := string(ev.Kind)
		if ev.Action != "" {
			s += "/" + string(ev.Action)
		}
		if ev.EventID != "" {
			s += "@" + ev.EventID
		}
		out[i] = s
	}
	return out
}
