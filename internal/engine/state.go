package engine

import (
	"maps"

	"github.com/roach88/eventloop/internal/ir"
)

// State is the mutable execution context of one run.
//
// It holds run-scoped flags and shared data, the stack of current-event
// frames and the single pending-goto slot. A State belongs to exactly one
// run and is never shared, so it carries no lock.
//
// INVARIANTS:
//   - unset flags read as false
//   - the frame stack depth after a Push guard runs equals the depth before
//     the Push, on every exit path
//   - at most one goto target is pending; a later SetGoto overwrites it
type State struct {
	flags       map[string]bool
	shared      map[string]any
	frames      []string
	pendingGoto string
	hasGoto     bool
}

// NewState creates a State seeded with copies of the given maps.
func NewState(flags map[string]bool, shared map[string]any) *State {
	s := &State{
		flags:  maps.Clone(flags),
		shared: ir.CloneMap(shared),
	}
	if s.flags == nil {
		s.flags = make(map[string]bool)
	}
	if s.shared == nil {
		s.shared = make(map[string]any)
	}
	return s
}

// Flag returns the flag value, false when unset.
func (s *State) Flag(name string) bool {
	return s.flags[name]
}

func (s *State) SetFlag(name string, value bool) {
	s.flags[name] = value
}

// Flags returns a copy of all flags.
func (s *State) Flags() map[string]bool {
	return maps.Clone(s.flags)
}

// Shared returns a shared datum and whether it is set.
func (s *State) Shared(key string) (any, bool) {
	v, ok := s.shared[key]
	return v, ok
}

func (s *State) SetShared(key string, value any) {
	s.shared[key] = value
}

func (s *State) DeleteShared(key string) {
	delete(s.shared, key)
}

// SharedData returns a deep copy of all shared data.
func (s *State) SharedData() map[string]any {
	return ir.CloneMap(s.shared)
}

// Push makes eventID the current event and returns a guard that restores
// the stack to its depth before the push. The guard is idempotent, so it
// is safe to both defer it and call it early.
//
//	pop := st.Push(ev.ID)
//	defer pop()
func (s *State) Push(eventID string) (pop func()) {
	depth := len(s.frames)
	s.frames = append(s.frames, eventID)
	return func() {
		if len(s.frames) > depth {
			s.frames = s.frames[:depth]
		}
	}
}

// CurrentEvent returns the innermost current event, "" when none.
func (s *State) CurrentEvent() string {
	if len(s.frames) == 0 {
		return ""
	}
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of current-event frames.
func (s *State) Depth() int {
	return len(s.frames)
}

// Frames returns a copy of the frame stack, outermost first.
func (s *State) Frames() []string {
	out := make([]string, len(s.frames))
	copy(out, s.frames)
	return out
}

// SetGoto sets the pending goto target, replacing any earlier one.
func (s *State) SetGoto(eventID string) {
	s.pendingGoto = eventID
	s.hasGoto = true
}

// ConsumeGoto returns the pending goto target and clears the slot.
func (s *State) ConsumeGoto() (string, bool) {
	id, ok := s.pendingGoto, s.hasGoto
	s.pendingGoto, s.hasGoto = "", false
	return id, ok
}
