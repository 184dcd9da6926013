package ir

import "time"

// ActionType is the tag of an Action variant.
type ActionType string

const (
	ActScreenshot        ActionType = "screenshot"
	ActFind              ActionType = "find"
	ActOCR               ActionType = "ocr"
	ActClick             ActionType = "click"
	ActPressKey          ActionType = "press_key"
	ActWait              ActionType = "wait"
	ActTypeText          ActionType = "type_text"
	ActLog               ActionType = "log"
	ActSetFlag           ActionType = "set_flag"
	ActCallMethod        ActionType = "call_method"
	ActGoto              ActionType = "goto"
	ActExit              ActionType = "exit"
	ActInlineEvent       ActionType = "inline_event"
	ActConditionalBlocks ActionType = "conditional_blocks"
)

// ValidActionTypes defines the action tags a config may use.
var ValidActionTypes = map[ActionType]bool{
	ActScreenshot:        true,
	ActFind:              true,
	ActOCR:               true,
	ActClick:             true,
	ActPressKey:          true,
	ActWait:              true,
	ActTypeText:          true,
	ActLog:               true,
	ActSetFlag:           true,
	ActCallMethod:        true,
	ActGoto:              true,
	ActExit:              true,
	ActInlineEvent:       true,
	ActConditionalBlocks: true,
}

// Defaults applied when action params omit a value.
const (
	DefaultKey        = "esc"
	DefaultWait       = time.Second
	DefaultClickMode  = "move_click"
	DefaultClickTries = 3
	DefaultLogLevel   = "info"
	DefaultFlagValue  = true
	DefaultTimeout    = 30 * time.Second
)

// Action is a sealed interface over the action variants below.
type Action interface {
	Kind() ActionType
	action() // Sealed - only this package implements it
}

// ScreenshotAction captures a new frame.
type ScreenshotAction struct{}

// FindAction looks an element up without clicking it.
type FindAction struct {
	Element Element
}

// OCRAction recognizes text in a crop of the last frame.
type OCRAction struct {
	// Crop is nil when the whole frame is read.
	Crop    *Crop
	Extract *Extract
	// StoreAs names the shared-data key receiving the text; empty discards it.
	StoreAs string
}

// ClickAction clicks an element, or fixed coordinates for position elements.
type ClickAction struct {
	Element  Element
	Mode     string
	Attempts int
}

// PressKeyAction presses a single key.
type PressKeyAction struct {
	Key string
}

// WaitAction suspends the current run.
type WaitAction struct {
	Duration time.Duration
}

// TypeTextAction types a string.
type TypeTextAction struct {
	Text string
}

// LogAction writes a message to the Logger capability.
type LogAction struct {
	Message string
	Level   string
}

// SetFlagAction sets a run-scoped flag.
type SetFlagAction struct {
	Flag  string
	Value bool
}

// CallMethodAction invokes a named method from the method registry.
// The return value is discarded.
type CallMethodAction struct {
	Method string
	Params map[string]any
}

// GotoAction overrides the next event. EventID is a literal target checked at
// load time; FromShared names a shared-data key read when the action runs.
type GotoAction struct {
	EventID    string
	FromShared string
}

// ExitAction ends the run.
type ExitAction struct {
	Reason string
}

// InlineEventAction runs a nested event in place, once, without polling.
// The nested event's NextEvent, OnTimeout and Timeout are ignored.
type InlineEventAction struct {
	Event *Event
}

// ConditionalBlocksAction runs the first block whose conditions hold.
type ConditionalBlocksAction struct {
	Blocks []ConditionalBlock
}

// ConditionalBlock is one if/elif branch.
type ConditionalBlock struct {
	Description string
	Conditions  []Condition
	Actions     []Action
}

func (ScreenshotAction) Kind() ActionType        { return ActScreenshot }
func (FindAction) Kind() ActionType              { return ActFind }
func (OCRAction) Kind() ActionType               { return ActOCR }
func (ClickAction) Kind() ActionType             { return ActClick }
func (PressKeyAction) Kind() ActionType          { return ActPressKey }
func (WaitAction) Kind() ActionType              { return ActWait }
func (TypeTextAction) Kind() ActionType          { return ActTypeText }
func (LogAction) Kind() ActionType               { return ActLog }
func (SetFlagAction) Kind() ActionType           { return ActSetFlag }
func (CallMethodAction) Kind() ActionType        { return ActCallMethod }
func (GotoAction) Kind() ActionType              { return ActGoto }
func (ExitAction) Kind() ActionType              { return ActExit }
func (InlineEventAction) Kind() ActionType       { return ActInlineEvent }
func (ConditionalBlocksAction) Kind() ActionType { return ActConditionalBlocks }

func (ScreenshotAction) action()        {}
func (FindAction) action()              {}
func (OCRAction) action()               {}
func (ClickAction) action()             {}
func (PressKeyAction) action()          {}
func (WaitAction) action()              {}
func (TypeTextAction) action()          {}
func (LogAction) action()               {}
func (SetFlagAction) action()           {}
func (CallMethodAction) action()        {}
func (GotoAction) action()              {}
func (ExitAction) action()              {}
func (InlineEventAction) action()       {}
func (ConditionalBlocksAction) action() {}

// WalkActions visits every action in the list depth-first, descending into
// inline events and conditional blocks. Returning false from fn stops the walk.
func WalkActions(actions []Action, fn func(Action) bool) bool {
	for _, a := range actions {
		if !fn(a) {
			return false
		}
		switch act := a.(type) {
		case InlineEventAction:
			if act.Event != nil && !WalkActions(act.Event.Actions, fn) {
				return false
			}
		case ConditionalBlocksAction:
			for _, b := range act.Blocks {
				if !WalkActions(b.Actions, fn) {
					return false
				}
			}
		}
	}
	return true
}
