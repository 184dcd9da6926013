package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionKinds(t *testing.T) {
	actions := []Action{
		ScreenshotAction{}, FindAction{}, OCRAction{}, ClickAction{}, PressKeyAction{},
		WaitAction{}, TypeTextAction{}, LogAction{}, SetFlagAction{}, CallMethodAction{},
		GotoAction{}, ExitAction{}, InlineEventAction{}, ConditionalBlocksAction{},
	}
	seen := make(map[ActionType]bool)
	for _, a := range actions {
		assert.True(t, ValidActionTypes[a.Kind()], "kind %q should be valid", a.Kind())
		seen[a.Kind()] = true
	}
	assert.Len(t, seen, len(ValidActionTypes), "every valid tag has a variant")
}

func TestConditionKinds(t *testing.T) {
	conds := []Condition{
		FoundCondition{}, NotFoundCondition{}, FlagTrueCondition{},
		FlagFalseCondition{}, AlwaysCondition{}, CustomCondition{},
	}
	for _, c := range conds {
		assert.True(t, ValidConditionTypes[c.Kind()])
	}
	assert.Len(t, conds, len(ValidConditionTypes))
}

func TestWalkActionsDescends(t *testing.T) {
	actions := []Action{
		LogAction{Message: "one"},
		InlineEventAction{Event: &Event{
			ID: "inner",
			Actions: []Action{
				GotoAction{EventID: "a"},
				InlineEventAction{Event: &Event{ID: "deeper", Actions: []Action{GotoAction{EventID: "b"}}}},
			},
		}},
		ConditionalBlocksAction{Blocks: []ConditionalBlock{
			{Actions: []Action{GotoAction{EventID: "c"}}},
			{Actions: []Action{ExitAction{}}},
		}},
	}

	var gotos []string
	var count int
	complete := WalkActions(actions, func(a Action) bool {
		count++
		if g, ok := a.(GotoAction); ok {
			gotos = append(gotos, g.EventID)
		}
		return true
	})

	assert.True(t, complete)
	assert.Equal(t, []string{"a", "b", "c"}, gotos)
	assert.Equal(t, 8, count)
}

func TestWalkActionsStops(t *testing.T) {
	actions := []Action{
		ConditionalBlocksAction{Blocks: []ConditionalBlock{
			{Actions: []Action{ExitAction{}, LogAction{}}},
		}},
		LogAction{},
	}

	var count int
	complete := WalkActions(actions, func(a Action) bool {
		count++
		return a.Kind() != ActExit
	})

	assert.False(t, complete)
	assert.Equal(t, 2, count)
}
