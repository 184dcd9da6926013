package compiler

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/eventloop/internal/ir"
)

// decoder walks a schema-valid CUE value and builds the graph model.
// It keeps going after a failure so one Load reports every problem.
type decoder struct {
	errs       ConfigErrors
	eventPos   []token.Pos // top-level events, by index
	initialPos token.Pos
	refs       []eventRef
}

// eventRef is a static event id reference, checked once all ids are known.
type eventRef struct {
	code   string
	kind   string // next_event, on_timeout, goto
	owner  string // id of the top-level event holding the reference
	target string
	field  string
	pos    token.Pos
}

func (d *decoder) fail(code string, pos token.Pos, field, msg string) {
	d.errs = append(d.errs, &ConfigError{Code: code, Field: field, Message: msg, Pos: pos})
}

// lookup returns a field that is present and not null.
func lookup(v cue.Value, name string) (cue.Value, bool) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() || f.IsNull() {
		return f, false
	}
	return f, true
}

func (d *decoder) str(v cue.Value, name, path string) string {
	f, ok := lookup(v, name)
	if !ok {
		return ""
	}
	s, err := f.String()
	if err != nil {
		d.fail(ErrCodeSchema, f.Pos(), join(path, name), "must be a string")
		return ""
	}
	return s
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// decodeJSON converts a CUE value into the shapes encoding/json produces.
func decodeJSON(v cue.Value) (any, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *decoder) document(v cue.Value) (ir.Meta, []*ir.Event) {
	meta := ir.Meta{
		ModuleName:   d.str(v, "module_name", ""),
		Version:      d.str(v, "version", ""),
		Description:  d.str(v, "description", ""),
		InitialEvent: d.str(v, "initial_event", ""),
		Flags:        make(map[string]bool),
		SharedData:   make(map[string]any),
	}
	if meta.Version == "" {
		meta.Version = "1.0"
	}
	if iv, ok := lookup(v, "initial_event"); ok {
		d.initialPos = iv.Pos()
	}

	if fv, ok := lookup(v, "flags"); ok {
		iter, err := fv.Fields()
		if err != nil {
			d.fail(ErrCodeSchema, fv.Pos(), "flags", err.Error())
		} else {
			for iter.Next() {
				b, err := iter.Value().Bool()
				if err != nil {
					d.fail(ErrCodeSchema, iter.Value().Pos(), "flags."+iter.Label(), "must be a bool")
					continue
				}
				meta.Flags[iter.Label()] = b
			}
		}
	}

	if sv, ok := lookup(v, "shared_data"); ok {
		decoded, err := decodeJSON(sv)
		if m, isMap := decoded.(map[string]any); err == nil && isMap {
			meta.SharedData = m
		} else {
			d.fail(ErrCodeSchema, sv.Pos(), "shared_data", "must be an object")
		}
	}

	var events []*ir.Event
	ev, _ := lookup(v, "events")
	iter, err := ev.List()
	if err != nil {
		d.fail(ErrCodeSchema, ev.Pos(), "events", err.Error())
		return meta, nil
	}
	for i := 0; iter.Next(); i++ {
		d.eventPos = append(d.eventPos, iter.Value().Pos())
		events = append(events, d.event(iter.Value(), fmt.Sprintf("events[%d]", i), true))
	}
	return meta, events
}

// event decodes an Event. Transition fields of nested (inline) events are
// kept on the value but never registered as references: the runner ignores
// them.
func (d *decoder) event(v cue.Value, path string, topLevel bool) *ir.Event {
	ev := &ir.Event{
		ID:          d.str(v, "id", path),
		Name:        d.str(v, "name", path),
		Description: d.str(v, "description", path),
		Timeout:     ir.DefaultTimeout,
		NextEvent:   d.str(v, "next_event", path),
		OnTimeout:   d.str(v, "on_timeout", path),
	}
	if ev.Name == "" {
		ev.Name = ev.ID
	}

	if tv, ok := lookup(v, "timeout"); ok {
		secs, err := tv.Float64()
		switch {
		case err != nil || secs < 0:
			d.fail(ErrCodeSchema, tv.Pos(), join(path, "timeout"), "must be a non-negative number of seconds")
		case secs > maxSeconds:
			d.fail(ErrCodeSchema, tv.Pos(), join(path, "timeout"), fmt.Sprintf("must not exceed %d seconds", int64(maxSeconds)))
		default:
			ev.Timeout = seconds(secs)
		}
	}

	if cv, ok := lookup(v, "conditions"); ok {
		ev.Conditions = d.conditions(cv, join(path, "conditions"))
	}
	firstRef := len(d.refs)
	if av, ok := lookup(v, "actions"); ok {
		ev.Actions = d.actions(av, join(path, "actions"))
	}

	if topLevel {
		// Gotos nested in inline events and blocks belong to the enclosing
		// top-level event.
		for i := firstRef; i < len(d.refs); i++ {
			d.refs[i].owner = ev.ID
		}
		if ev.NextEvent != "" {
			nv, _ := lookup(v, "next_event")
			d.refs = append(d.refs, eventRef{
				code: ErrCodeNextEvent, kind: "next_event", owner: ev.ID, target: ev.NextEvent,
				field: join(path, "next_event"), pos: nv.Pos(),
			})
		}
		if ev.OnTimeout != "" {
			ov, _ := lookup(v, "on_timeout")
			d.refs = append(d.refs, eventRef{
				code: ErrCodeOnTimeout, kind: "on_timeout", owner: ev.ID, target: ev.OnTimeout,
				field: join(path, "on_timeout"), pos: ov.Pos(),
			})
		}
	}
	return ev
}

// maxSeconds is the longest duration, in whole seconds, a time.Duration holds.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// seconds converts s to a Duration. Callers bound s to [0, maxSeconds].
func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

func (d *decoder) conditions(v cue.Value, path string) []ir.Condition {
	iter, err := v.List()
	if err != nil {
		d.fail(ErrCodeSchema, v.Pos(), path, err.Error())
		return nil
	}
	var out []ir.Condition
	for i := 0; iter.Next(); i++ {
		if c := d.condition(iter.Value(), fmt.Sprintf("%s[%d]", path, i)); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (d *decoder) condition(v cue.Value, path string) ir.Condition {
	typ := ir.ConditionType(d.str(v, "type", path))
	switch typ {
	case ir.CondFound, ir.CondNotFound:
		ev, ok := lookup(v, "element")
		if !ok {
			d.fail(ErrCodeSchema, v.Pos(), join(path, "element"), fmt.Sprintf("%s condition requires an element", typ))
			return nil
		}
		el := d.element(ev, join(path, "element"))
		if typ == ir.CondFound {
			return ir.FoundCondition{Element: el}
		}
		return ir.NotFoundCondition{Element: el}
	case ir.CondFlagTrue:
		return ir.FlagTrueCondition{Flag: d.str(v, "flag_name", path)}
	case ir.CondFlagFalse:
		return ir.FlagFalseCondition{Flag: d.str(v, "flag_name", path)}
	case ir.CondAlways:
		return ir.AlwaysCondition{}
	case ir.CondCustom:
		p := d.params(v, path)
		return ir.CustomCondition{
			Method: d.str(v, "custom_method", path),
			Params: p.all(),
		}
	default:
		d.fail(ErrCodeSchema, v.Pos(), join(path, "type"), fmt.Sprintf("unknown condition type %q", typ))
		return nil
	}
}

func (d *decoder) actions(v cue.Value, path string) []ir.Action {
	iter, err := v.List()
	if err != nil {
		d.fail(ErrCodeSchema, v.Pos(), path, err.Error())
		return nil
	}
	out := []ir.Action{}
	for i := 0; iter.Next(); i++ {
		if a := d.action(iter.Value(), fmt.Sprintf("%s[%d]", path, i)); a != nil {
			out = append(out, a)
		}
	}
	return out
}

func (d *decoder) action(v cue.Value, path string) ir.Action {
	typ := ir.ActionType(d.str(v, "type", path))
	p := d.params(v, path)

	switch typ {
	case ir.ActScreenshot:
		return ir.ScreenshotAction{}

	case ir.ActFind:
		return ir.FindAction{Element: d.requiredElement(v, path, typ)}

	case ir.ActClick:
		attempts := p.integer("n", ir.DefaultClickTries)
		if attempts < 1 {
			p.invalid("n", "must be at least 1")
		}
		return ir.ClickAction{
			Element:  d.requiredElement(v, path, typ),
			Mode:     p.str("action", ir.DefaultClickMode),
			Attempts: attempts,
		}

	case ir.ActOCR:
		act := ir.OCRAction{StoreAs: p.str("store_as", "")}
		if ev, ok := lookup(v, "element"); ok {
			el := d.element(ev, join(path, "element"))
			if _, hasCrop := lookup(ev, "crop"); hasCrop {
				crop := el.Crop
				act.Crop = &crop
			}
			act.Extract = el.Extract
		}
		if act.Extract == nil {
			if xv, ok := p.get("extract"); ok {
				act.Extract = d.extract(xv, join(p.path, "extract"))
			}
		}
		return act

	case ir.ActPressKey:
		return ir.PressKeyAction{Key: p.str("key", ir.DefaultKey)}

	case ir.ActWait:
		secs := p.number("seconds", ir.DefaultWait.Seconds())
		switch {
		case secs < 0:
			p.invalid("seconds", "must not be negative")
		case secs > maxSeconds:
			p.invalid("seconds", fmt.Sprintf("must not exceed %d seconds", int64(maxSeconds)))
			secs = 0
		}
		return ir.WaitAction{Duration: seconds(secs)}

	case ir.ActTypeText:
		return ir.TypeTextAction{Text: p.str("text", "")}

	case ir.ActLog:
		return ir.LogAction{
			Message: p.str("message", ""),
			Level:   p.str("level", ir.DefaultLogLevel),
		}

	case ir.ActSetFlag:
		return ir.SetFlagAction{
			Flag:  p.requiredStr("flag_name"),
			Value: p.boolean("value", ir.DefaultFlagValue),
		}

	case ir.ActCallMethod:
		return ir.CallMethodAction{
			Method: p.requiredStr("method_name"),
			Params: p.object("params"),
		}

	case ir.ActGoto:
		g := ir.GotoAction{
			EventID:    p.str("event_id", ""),
			FromShared: p.str("from_shared", ""),
		}
		switch {
		case g.EventID == "" && g.FromShared == "":
			p.invalid("event_id", "goto requires event_id or from_shared")
		case g.EventID != "" && g.FromShared != "":
			p.invalid("event_id", "goto takes event_id or from_shared, not both")
		case g.EventID != "":
			tv, _ := p.get("event_id")
			d.refs = append(d.refs, eventRef{
				code: ErrCodeGotoTarget, kind: "goto", target: g.EventID,
				field: join(p.path, "event_id"), pos: tv.Pos(),
			})
		}
		return g

	case ir.ActExit:
		return ir.ExitAction{Reason: p.str("reason", "")}

	case ir.ActInlineEvent:
		iv, ok := lookup(v, "inline_event")
		if !ok {
			d.fail(ErrCodeSchema, v.Pos(), join(path, "inline_event"), "inline_event action requires an event")
			return nil
		}
		return ir.InlineEventAction{Event: d.event(iv, join(path, "inline_event"), false)}

	case ir.ActConditionalBlocks:
		bv, ok := lookup(v, "conditional_blocks")
		if !ok {
			d.fail(ErrCodeSchema, v.Pos(), join(path, "conditional_blocks"), "conditional_blocks action requires blocks")
			return nil
		}
		return ir.ConditionalBlocksAction{Blocks: d.blocks(bv, join(path, "conditional_blocks"))}

	default:
		d.fail(ErrCodeSchema, v.Pos(), join(path, "type"), fmt.Sprintf("unknown action type %q", typ))
		return nil
	}
}

func (d *decoder) blocks(v cue.Value, path string) []ir.ConditionalBlock {
	iter, err := v.List()
	if err != nil {
		d.fail(ErrCodeSchema, v.Pos(), path, err.Error())
		return nil
	}
	var out []ir.ConditionalBlock
	for i := 0; iter.Next(); i++ {
		bp := fmt.Sprintf("%s[%d]", path, i)
		b := ir.ConditionalBlock{Description: d.str(iter.Value(), "description", bp)}
		if cv, ok := lookup(iter.Value(), "conditions"); ok {
			b.Conditions = d.conditions(cv, join(bp, "conditions"))
		}
		if av, ok := lookup(iter.Value(), "actions"); ok {
			b.Actions = d.actions(av, join(bp, "actions"))
		}
		out = append(out, b)
	}
	return out
}

func (d *decoder) requiredElement(v cue.Value, path string, typ ir.ActionType) ir.Element {
	ev, ok := lookup(v, "element")
	if !ok {
		d.fail(ErrCodeSchema, v.Pos(), join(path, "element"), fmt.Sprintf("%s action requires an element", typ))
		return ir.Element{}
	}
	return d.element(ev, join(path, "element"))
}

func (d *decoder) element(v cue.Value, path string) ir.Element {
	el := ir.Element{
		Kind:      ir.ElementKind(d.str(v, "type", path)),
		Crop:      ir.FullFrame(),
		Threshold: ir.DefaultThreshold,
		Include:   true,
	}
	if !ir.ValidElementKinds[el.Kind] {
		d.fail(ErrCodeSchema, v.Pos(), join(path, "type"), fmt.Sprintf("unknown element type %q", el.Kind))
	}

	tv, _ := lookup(v, "target")
	el.Target = d.target(tv, join(path, "target"))
	switch {
	case el.Kind == ir.ElementPosition && !el.Target.IsPoint():
		d.fail(ErrCodeInvalidTarget, tv.Pos(), join(path, "target"), "position element target must be an [x, y] pair")
	case el.Kind != ir.ElementPosition && el.Target.IsPoint():
		d.fail(ErrCodeInvalidTarget, tv.Pos(), join(path, "target"),
			fmt.Sprintf("%s element target must be a string or list of strings", el.Kind))
	}

	if cv, ok := lookup(v, "crop"); ok {
		var c [4]float64
		for i, name := range []string{"x1", "y1", "x2", "y2"} {
			f, _ := lookup(cv, name)
			c[i], _ = f.Float64()
		}
		el.Crop = ir.Crop{X1: c[0], Y1: c[1], X2: c[2], Y2: c[3]}
		if !el.Crop.Valid() {
			d.fail(ErrCodeInvalidCrop, cv.Pos(), join(path, "crop"),
				fmt.Sprintf("crop %s must satisfy x1 < x2 and y1 < y2 within [0,1]", el.Crop))
		}
	}
	if thv, ok := lookup(v, "threshold"); ok {
		el.Threshold, _ = thv.Float64()
	}
	if iv, ok := lookup(v, "include"); ok {
		el.Include, _ = iv.Bool()
	}
	if xv, ok := lookup(v, "extract"); ok {
		el.Extract = d.extract(xv, join(path, "extract"))
	}
	if ov, ok := lookup(v, "offset"); ok {
		var xy [2]float64
		iter, _ := ov.List()
		for i := 0; iter.Next() && i < 2; i++ {
			xy[i], _ = iter.Value().Float64()
		}
		el.Offset = ir.Offset{DX: xy[0], DY: xy[1]}
	}
	return el
}

// target decodes "name", ["a", "b"] or [x, y].
func (d *decoder) target(v cue.Value, path string) ir.Target {
	if s, err := v.String(); err == nil {
		return ir.TextTarget(s)
	}
	iter, err := v.List()
	if err != nil {
		d.fail(ErrCodeInvalidTarget, v.Pos(), path, "target must be a string, a list of strings or an [x, y] pair")
		return ir.Target{}
	}

	var alts []string
	var ints []int64
	for iter.Next() {
		item := iter.Value()
		switch item.Kind() {
		case cue.StringKind:
			s, _ := item.String()
			alts = append(alts, s)
		case cue.IntKind:
			n, _ := item.Int64()
			ints = append(ints, n)
		default:
			d.fail(ErrCodeInvalidTarget, item.Pos(), path, "target items must be strings or integers")
			return ir.Target{}
		}
	}
	switch {
	case len(ints) == 2 && len(alts) == 0:
		return ir.PointTarget(int(ints[0]), int(ints[1]))
	case len(alts) > 0 && len(ints) == 0:
		return ir.TextTarget(alts...)
	default:
		d.fail(ErrCodeInvalidTarget, v.Pos(), path, "target must be a string, a list of strings or an [x, y] pair")
		return ir.Target{}
	}
}

// extract decodes [[r, g, b], threshold].
func (d *decoder) extract(v cue.Value, path string) *ir.Extract {
	decoded, err := decodeJSON(v)
	bad := func() *ir.Extract {
		d.fail(ErrCodeInvalidParam, v.Pos(), path, "extract must be [[r, g, b], threshold] with values in 0-255")
		return nil
	}
	if err != nil {
		return bad()
	}
	pair, ok := decoded.([]any)
	if !ok || len(pair) != 2 {
		return bad()
	}
	rgb, ok := pair[0].([]any)
	if !ok || len(rgb) != 3 {
		return bad()
	}

	x := &ir.Extract{}
	for i, c := range rgb {
		n, ok := channel(c)
		if !ok {
			return bad()
		}
		x.Color[i] = n
	}
	n, ok := channel(pair[1])
	if !ok {
		return bad()
	}
	x.Threshold = n
	return x
}

func channel(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < 0 || f > 255 {
		return 0, false
	}
	return int(f), true
}
