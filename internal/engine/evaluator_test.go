package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventloop/internal/ir"
)

func TestEvaluate_EmptyIsTrue(t *testing.T) {
	f := newFixture()
	ok, err := Evaluate(context.Background(), nil, NewState(nil, nil), f.caps())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_AlwaysMatchesEmptyList(t *testing.T) {
	f := newFixture()
	st := NewState(nil, nil)

	withAlways, err := Evaluate(context.Background(), []ir.Condition{ir.AlwaysCondition{}}, st, f.caps())
	require.NoError(t, err)
	empty, err := Evaluate(context.Background(), []ir.Condition{}, st, f.caps())
	require.NoError(t, err)

	assert.Equal(t, empty, withAlways)
}

func TestEvaluate_ANDSemantics(t *testing.T) {
	tests := []struct {
		name string
		a, b bool
		want bool
	}{
		{"both true", true, true, true},
		{"first false", false, true, false},
		{"second false", true, false, false},
		{"both false", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			st := NewState(map[string]bool{"a": tt.a, "b": tt.b}, nil)
			conds := []ir.Condition{ir.FlagTrueCondition{Flag: "a"}, ir.FlagTrueCondition{Flag: "b"}}

			ok, err := Evaluate(context.Background(), conds, st, f.caps())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestEvaluate_ShortCircuits(t *testing.T) {
	f := newFixture()
	conds := []ir.Condition{found("A"), found("B")}

	ok, err := Evaluate(context.Background(), conds, NewState(nil, nil), f.caps())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"text:A"}, f.loc.Lookups(), "B is never looked up")
}

func TestEvaluate_FoundAndNotFound(t *testing.T) {
	f := newFixture()
	f.loc.show("text:Start")
	st := NewState(nil, nil)

	ok, err := Evaluate(context.Background(), []ir.Condition{found("Start")}, st, f.caps())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(context.Background(), []ir.Condition{ir.NotFoundCondition{Element: text("Start")}}, st, f.caps())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Evaluate(context.Background(), []ir.Condition{ir.NotFoundCondition{Element: text("Gone")}}, st, f.caps())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_PositionAlwaysFound(t *testing.T) {
	f := newFixture()
	pos := ir.Element{Kind: ir.ElementPosition, Target: ir.PointTarget(5, 5)}

	ok, err := Evaluate(context.Background(), []ir.Condition{ir.FoundCondition{Element: pos}}, NewState(nil, nil), f.caps())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, f.loc.Lookups())
}

func TestEvaluate_FlagConditionsDefaultFalse(t *testing.T) {
	f := newFixture()
	st := NewState(nil, nil)

	ok, err := Evaluate(context.Background(), []ir.Condition{ir.FlagFalseCondition{Flag: "unset"}}, st, f.caps())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(context.Background(), []ir.Condition{ir.FlagTrueCondition{Flag: "unset"}}, st, f.caps())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_CustomDispatchesToPredicate(t *testing.T) {
	f := newFixture()
	var got map[string]any
	f.methods.RegisterPredicate("is_ready", func(_ context.Context, _ *State, params map[string]any) (bool, error) {
		got = params
		return true, nil
	})

	cond := ir.CustomCondition{Method: "is_ready", Params: map[string]any{"x": 1.0}}
	ok, err := Evaluate(context.Background(), []ir.Condition{cond}, NewState(nil, nil), f.caps())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"x": 1.0}, got)
}

func TestEvaluate_UnregisteredCustomFails(t *testing.T) {
	f := newFixture()
	st := NewState(nil, nil)
	pop := st.Push("check")
	defer pop()

	ok, err := Evaluate(context.Background(), []ir.Condition{ir.CustomCondition{Method: "missing"}}, st, f.caps())
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, IsUnknownMethodError(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "check", re.EventID)
}

func TestEvaluate_LocatorErrorIsCapabilityError(t *testing.T) {
	f := newFixture()
	cause := errors.New("screen gone")
	f.loc.err = cause

	_, err := Evaluate(context.Background(), []ir.Condition{found("A")}, NewState(nil, nil), f.caps())
	assert.True(t, IsCapabilityError(err))
	assert.ErrorIs(t, err, cause)
}

func TestEvaluate_PredicateErrorIsCapabilityError(t *testing.T) {
	f := newFixture()
	f.methods.RegisterPredicate("boom", func(context.Context, *State, map[string]any) (bool, error) {
		return false, errors.New("boom")
	})

	_, err := Evaluate(context.Background(), []ir.Condition{ir.CustomCondition{Method: "boom"}}, NewState(nil, nil), f.caps())
	assert.True(t, IsCapabilityError(err))
}

func TestEvaluate_RequiresCapabilities(t *testing.T) {
	_, err := Evaluate(context.Background(), nil, NewState(nil, nil), Capabilities{})
	assert.Error(t, err)
}
