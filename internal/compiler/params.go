package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
)

// params reads the free-form param bag of an action or condition.
// The schema leaves params open, so types are checked here.
type params struct {
	d       *decoder
	owner   cue.Value // the action or condition holding the bag
	v       cue.Value
	present bool
	path    string
}

func (d *decoder) params(v cue.Value, path string) params {
	pv, ok := lookup(v, "params")
	return params{d: d, owner: v, v: pv, present: ok, path: join(path, "params")}
}

func (p params) get(name string) (cue.Value, bool) {
	if !p.present {
		return cue.Value{}, false
	}
	return lookup(p.v, name)
}

func (p params) invalid(name, msg string) {
	pos := p.owner.Pos()
	if f, ok := p.get(name); ok {
		pos = f.Pos()
	}
	p.d.fail(ErrCodeInvalidParam, pos, join(p.path, name), msg)
}

func (p params) str(name, def string) string {
	f, ok := p.get(name)
	if !ok {
		return def
	}
	s, err := f.String()
	if err != nil {
		p.invalid(name, "must be a string")
		return def
	}
	return s
}

func (p params) requiredStr(name string) string {
	f, ok := p.get(name)
	if !ok {
		p.invalid(name, fmt.Sprintf("%s is required", name))
		return ""
	}
	s, err := f.String()
	if err != nil || s == "" {
		p.invalid(name, "must be a non-empty string")
		return ""
	}
	return s
}

func (p params) boolean(name string, def bool) bool {
	f, ok := p.get(name)
	if !ok {
		return def
	}
	b, err := f.Bool()
	if err != nil {
		p.invalid(name, "must be a bool")
		return def
	}
	return b
}

func (p params) number(name string, def float64) float64 {
	f, ok := p.get(name)
	if !ok {
		return def
	}
	n, err := f.Float64()
	if err != nil {
		p.invalid(name, "must be a number")
		return def
	}
	return n
}

func (p params) integer(name string, def int) int {
	f, ok := p.get(name)
	if !ok {
		return def
	}
	n, err := f.Int64()
	if err != nil {
		p.invalid(name, "must be an integer")
		return def
	}
	return int(n)
}

// object returns a nested object param, or nil when absent.
func (p params) object(name string) map[string]any {
	f, ok := p.get(name)
	if !ok {
		return nil
	}
	decoded, err := decodeJSON(f)
	m, isMap := decoded.(map[string]any)
	if err != nil || !isMap {
		p.invalid(name, "must be an object")
		return nil
	}
	return m
}

// all returns the whole bag, or nil when absent.
func (p params) all() map[string]any {
	if !p.present {
		return nil
	}
	decoded, err := decodeJSON(p.v)
	m, isMap := decoded.(map[string]any)
	if err != nil || !isMap {
		p.d.fail(ErrCodeInvalidParam, p.v.Pos(), p.path, "params must be an object")
		return nil
	}
	return m
}
