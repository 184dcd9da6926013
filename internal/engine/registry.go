package engine

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/roach88/eventloop/internal/ir"
)

// Method is a named operation invoked by call_method. It may read and
// mutate run state through st; its return value is discarded by the engine.
type Method func(ctx context.Context, st *State, params map[string]any) (any, error)

// Predicate is a named boolean test used by custom conditions.
type Predicate func(ctx context.Context, st *State, params map[string]any) (bool, error)

// Registry maps names to methods and predicates.
//
// Registration happens before runs start; lookups may then happen from any
// number of concurrent runs.
type Registry struct {
	mu         sync.RWMutex
	methods    map[string]Method
	predicates map[string]Predicate
}

// NewRegistry creates a registry holding the builtin methods and predicates:
//
//	methods:    set_shared, incr_shared, delete_shared, copy_flag
//	predicates: shared_equals, shared_exists, shared_below
//
// Registering the same name again replaces the builtin.
func NewRegistry() *Registry {
	r := &Registry{
		methods:    make(map[string]Method),
		predicates: make(map[string]Predicate),
	}
	r.Register("set_shared", setShared)
	r.Register("incr_shared", incrShared)
	r.Register("delete_shared", deleteShared)
	r.Register("copy_flag", copyFlag)
	r.RegisterPredicate("shared_equals", sharedEquals)
	r.RegisterPredicate("shared_exists", sharedExists)
	r.RegisterPredicate("shared_below", sharedBelow)
	return r
}

// Register adds or replaces a method.
func (r *Registry) Register(name string, m Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = m
}

// RegisterPredicate adds or replaces a predicate.
func (r *Registry) RegisterPredicate(name string, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = p
}

// Method returns the named method, or an UNKNOWN_METHOD RuntimeError.
func (r *Registry) Method(name string) (Method, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[name]
	if !ok {
		return nil, NewUnknownMethodError("method", name)
	}
	return m, nil
}

// Predicate returns the named predicate, or an UNKNOWN_METHOD RuntimeError.
func (r *Registry) Predicate(name string) (Predicate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predicates[name]
	if !ok {
		return nil, NewUnknownMethodError("predicate", name)
	}
	return p, nil
}

// Names returns the sorted method and predicate names.
func (r *Registry) Names() (methods, predicates []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.methods {
		methods = append(methods, name)
	}
	for name := range r.predicates {
		predicates = append(predicates, name)
	}
	sort.Strings(methods)
	sort.Strings(predicates)
	return methods, predicates
}

// Builtins

func stringParam(params map[string]any, name string) (string, error) {
	v, ok := params[name]
	if !ok {
		return "", NewInvalidParamsError("param %q is required", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", NewInvalidParamsError("param %q must be a non-empty string, got %T", name, v)
	}
	return s, nil
}

// toFloat accepts the numeric shapes that reach shared data: float64 from
// JSON, plus ints set by Go callers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func setShared(_ context.Context, st *State, params map[string]any) (any, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	st.SetShared(key, ir.CloneValue(params["value"]))
	return nil, nil
}

// incrShared adds params.by (default 1) to a numeric shared datum.
// A missing datum counts as 0.
func incrShared(_ context.Context, st *State, params map[string]any) (any, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	by := 1.0
	if raw, ok := params["by"]; ok {
		if by, ok = toFloat(raw); !ok {
			return nil, NewInvalidParamsError("param %q must be a number, got %T", "by", raw)
		}
	}
	current := 0.0
	if raw, ok := st.Shared(key); ok {
		if current, ok = toFloat(raw); !ok {
			return nil, NewInvalidParamsError("shared %q is not a number (%T)", key, raw)
		}
	}
	st.SetShared(key, current+by)
	return current + by, nil
}

func deleteShared(_ context.Context, st *State, params map[string]any) (any, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	st.DeleteShared(key)
	return nil, nil
}

func copyFlag(_ context.Context, st *State, params map[string]any) (any, error) {
	from, err := stringParam(params, "from")
	if err != nil {
		return nil, err
	}
	to, err := stringParam(params, "to")
	if err != nil {
		return nil, err
	}
	st.SetFlag(to, st.Flag(from))
	return nil, nil
}

// sharedEquals compares numbers by value regardless of Go type.
func sharedEquals(_ context.Context, st *State, params map[string]any) (bool, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return false, err
	}
	got, ok := st.Shared(key)
	if !ok {
		return false, nil
	}
	want := params["value"]
	if a, aok := toFloat(got); aok {
		if b, bok := toFloat(want); bok {
			return a == b, nil
		}
	}
	return reflect.DeepEqual(got, want), nil
}

func sharedExists(_ context.Context, st *State, params map[string]any) (bool, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return false, err
	}
	_, ok := st.Shared(key)
	return ok, nil
}

// sharedBelow reports shared[key] < params.value. A missing datum counts as 0.
func sharedBelow(_ context.Context, st *State, params map[string]any) (bool, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return false, err
	}
	limit, ok := toFloat(params["value"])
	if !ok {
		return false, NewInvalidParamsError("param %q must be a number, got %T", "value", params["value"])
	}
	current := 0.0
	if raw, set := st.Shared(key); set {
		if current, ok = toFloat(raw); !ok {
			return false, fmt.Errorf("shared %q: %w", key, NewInvalidParamsError("not a number (%T)", raw))
		}
	}
	return current < limit, nil
}
