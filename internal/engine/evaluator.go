package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/eventloop/internal/ir"
)

// Evaluate reports whether every condition holds against st (AND semantics).
// It stops at the first false condition; an empty list is true.
//
// A custom condition naming an unregistered predicate is an UNKNOWN_METHOD
// error, never a silent false.
func Evaluate(ctx context.Context, conds []ir.Condition, st *State, caps Capabilities) (bool, error) {
	caps, err := caps.withDefaults()
	if err != nil {
		return false, err
	}
	in := newInterp(caps, st, "", nil)
	return in.evaluate(ctx, conds)
}

func (in *interp) evaluate(ctx context.Context, conds []ir.Condition) (bool, error) {
	for _, c := range conds {
		ok, err := in.condition(ctx, c)
		if err != nil {
			return false, in.annotate(err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (in *interp) condition(ctx context.Context, c ir.Condition) (bool, error) {
	switch cond := c.(type) {
	case ir.FoundCondition:
		return in.locate(ctx, cond.Element)

	case ir.NotFoundCondition:
		found, err := in.locate(ctx, cond.Element)
		return !found, err

	case ir.FlagTrueCondition:
		return in.st.Flag(cond.Flag), nil

	case ir.FlagFalseCondition:
		return !in.st.Flag(cond.Flag), nil

	case ir.AlwaysCondition:
		return true, nil

	case ir.CustomCondition:
		pred, err := in.caps.Methods.Predicate(cond.Method)
		if err != nil {
			return false, err
		}
		ok, err := pred(ctx, in.st, ir.CloneMap(cond.Params))
		if err != nil {
			return false, wrapCallError("predicate "+cond.Method, err)
		}
		return ok, nil

	default:
		return false, &RuntimeError{
			Code:    ErrCodeUnknownCondition,
			Message: fmt.Sprintf("cannot evaluate condition %T", c),
		}
	}
}

// locate resolves an element through the Locator. Position elements are
// fixed coordinates and always resolve without a lookup.
func (in *interp) locate(ctx context.Context, el ir.Element) (bool, error) {
	if el.Kind == ir.ElementPosition {
		return true, nil
	}
	loc, err := in.caps.Locator.Locate(ctx, el)
	if err != nil {
		return false, NewCapabilityError("locate "+el.Key(), err)
	}
	return loc != nil, nil
}

// wrapCallError keeps RuntimeErrors raised by methods and predicates (for
// example INVALID_PARAMS from a builtin) and wraps anything else as a
// capability failure.
func wrapCallError(op string, err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return NewCapabilityError(op, err)
}
