package ir

// ConditionType is the tag of a Condition variant.
type ConditionType string

const (
	CondFound     ConditionType = "found"
	CondNotFound  ConditionType = "not_found"
	CondFlagTrue  ConditionType = "flag_true"
	CondFlagFalse ConditionType = "flag_false"
	CondAlways    ConditionType = "always"
	CondCustom    ConditionType = "custom"
)

// ValidConditionTypes defines the condition tags a config may use.
var ValidConditionTypes = map[ConditionType]bool{
	CondFound:     true,
	CondNotFound:  true,
	CondFlagTrue:  true,
	CondFlagFalse: true,
	CondAlways:    true,
	CondCustom:    true,
}

// Condition is a sealed interface over the condition variants below.
// Condition lists are AND-combined; an empty list is vacuously true.
type Condition interface {
	Kind() ConditionType
	condition() // Sealed - only this package implements it
}

// FoundCondition holds when the element resolves to a location.
type FoundCondition struct {
	Element Element
}

// NotFoundCondition holds when the element does not resolve.
type NotFoundCondition struct {
	Element Element
}

// FlagTrueCondition holds when the flag is set to true.
type FlagTrueCondition struct {
	Flag string
}

// FlagFalseCondition holds when the flag is false or unset.
type FlagFalseCondition struct {
	Flag string
}

// AlwaysCondition always holds.
type AlwaysCondition struct{}

// CustomCondition dispatches to a named predicate in the method registry.
type CustomCondition struct {
	Method string
	Params map[string]any
}

func (FoundCondition) Kind() ConditionType     { return CondFound }
func (NotFoundCondition) Kind() ConditionType  { return CondNotFound }
func (FlagTrueCondition) Kind() ConditionType  { return CondFlagTrue }
func (FlagFalseCondition) Kind() ConditionType { return CondFlagFalse }
func (AlwaysCondition) Kind() ConditionType    { return CondAlways }
func (CustomCondition) Kind() ConditionType    { return CondCustom }

func (FoundCondition) condition()     {}
func (NotFoundCondition) condition()  {}
func (FlagTrueCondition) condition()  {}
func (FlagFalseCondition) condition() {}
func (AlwaysCondition) condition()    {}
func (CustomCondition) condition()    {}
