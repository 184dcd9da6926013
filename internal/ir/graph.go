package ir

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// ErrUnknownEvent is returned (wrapped) when an event id does not resolve.
var ErrUnknownEvent = errors.New("unknown event")

// Event is a graph node: a gate of conditions, a list of actions and the
// transition targets taken after the actions run or the deadline passes.
type Event struct {
	ID          string
	Name        string
	Description string
	// Timeout bounds how long the runner polls Conditions.
	Timeout    time.Duration
	Conditions []Condition
	Actions    []Action
	NextEvent  string // empty = none
	OnTimeout  string // empty = none
}

// Meta carries the document-level fields of a loaded config.
type Meta struct {
	ModuleName   string
	Version      string
	Description  string
	InitialEvent string
	Flags        map[string]bool
	SharedData   map[string]any
	// Hash is the content hash of the source document (see GraphHash).
	Hash string
}

// Graph is an id-keyed, immutable set of events.
//
// INVARIANTS:
//   - event ids are unique
//   - InitialEvent resolves
//   - the Graph is never mutated after NewGraph returns; runs only read it
type Graph struct {
	meta   Meta
	events map[string]*Event
	order  []string // declaration order
}

// NewGraph builds a graph from events in declaration order.
// Returns an error on duplicate ids or an unresolvable initial event.
// Reference checks on transitions belong to the loader, which has positions.
func NewGraph(meta Meta, events []*Event) (*Graph, error) {
	g := &Graph{
		meta:   meta,
		events: make(map[string]*Event, len(events)),
		order:  make([]string, 0, len(events)),
	}
	g.meta.Flags = maps.Clone(meta.Flags)
	g.meta.SharedData = CloneMap(meta.SharedData)

	for _, ev := range events {
		if _, dup := g.events[ev.ID]; dup {
			return nil, fmt.Errorf("duplicate event id %q", ev.ID)
		}
		g.events[ev.ID] = ev
		g.order = append(g.order, ev.ID)
	}

	if _, ok := g.events[meta.InitialEvent]; !ok {
		return nil, fmt.Errorf("initial_event %q: %w", meta.InitialEvent, ErrUnknownEvent)
	}

	return g, nil
}

// Get returns the event with the given id.
// The event is shared by every run of the graph; callers must treat it,
// its actions and their params as read-only.
// The returned error wraps ErrUnknownEvent when the id does not resolve.
func (g *Graph) Get(id string) (*Event, error) {
	ev, ok := g.events[id]
	if !ok {
		return nil, fmt.Errorf("event %q: %w", id, ErrUnknownEvent)
	}
	return ev, nil
}

// Has reports whether id names an event in the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.events[id]
	return ok
}

// Events returns the events in declaration order.
// Callers must treat the events as read-only.
func (g *Graph) Events() []*Event {
	out := make([]*Event, len(g.order))
	for i, id := range g.order {
		out[i] = g.events[id]
	}
	return out
}

// Len returns the number of events.
func (g *Graph) Len() int {
	return len(g.order)
}

func (g *Graph) ModuleName() string   { return g.meta.ModuleName }
func (g *Graph) Version() string      { return g.meta.Version }
func (g *Graph) Description() string  { return g.meta.Description }
func (g *Graph) InitialEvent() string { return g.meta.InitialEvent }
func (g *Graph) Hash() string         { return g.meta.Hash }

// InitialFlags returns a fresh copy of the declared initial flags.
func (g *Graph) InitialFlags() map[string]bool {
	out := maps.Clone(g.meta.Flags)
	if out == nil {
		out = make(map[string]bool)
	}
	return out
}

// InitialSharedData returns a deep copy of the declared shared data.
// Nested objects and arrays are never shared between callers.
func (g *Graph) InitialSharedData() map[string]any {
	out := CloneMap(g.meta.SharedData)
	if out == nil {
		out = make(map[string]any)
	}
	return out
}
