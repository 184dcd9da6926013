package compiler

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/eventloop/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// Result is a successfully loaded config.
type Result struct {
	Graph    *ir.Graph
	Warnings []Warning
}

// LoadFile reads and loads a JSON config from disk.
func LoadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ConfigErrors{{Code: ErrCodeRead, Message: err.Error()}}
	}
	return Load(path, data)
}

// Load validates a JSON config against the schema, decodes it into an
// immutable graph and checks every static event reference.
//
// Failures are returned as ConfigErrors. Static analysis findings
// (unreachable events, transition cycles) are returned as warnings on a
// successful Result, never as errors.
func Load(filename string, data []byte) (*Result, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEErrors(ErrCodeSchemaInternal, err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	expr, err := cuejson.Extract(filename, data)
	if err != nil {
		return nil, formatCUEErrors(ErrCodeParse, err)
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return nil, formatCUEErrors(ErrCodeParse, err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEErrors(ErrCodeSchema, err)
	}

	// The hash covers the document as written, independent of key order
	// and whitespace.
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ConfigErrors{{Code: ErrCodeParse, Message: err.Error()}}
	}
	hash, err := ir.GraphHash(raw)
	if err != nil {
		return nil, ConfigErrors{{Code: ErrCodeParse, Message: fmt.Sprintf("hashing document: %v", err)}}
	}

	d := &decoder{}
	meta, events := d.document(doc)
	if len(d.errs) > 0 {
		return nil, d.errs
	}
	meta.Hash = hash

	checkReferences(d, meta, events)
	if len(d.errs) > 0 {
		return nil, d.errs
	}

	g, err := ir.NewGraph(meta, events)
	if err != nil {
		// Duplicates and the initial event were checked above with positions.
		return nil, ConfigErrors{{Code: ErrCodeInitialEvent, Message: err.Error()}}
	}

	return &Result{Graph: g, Warnings: Analyze(g)}, nil
}

// checkReferences validates every statically known event id reference.
// Dynamic goto targets (from_shared) are resolved when the action runs.
func checkReferences(d *decoder, meta ir.Meta, events []*ir.Event) {
	ids := make(map[string]bool, len(events))
	for i, ev := range events {
		if ids[ev.ID] {
			d.fail(ErrCodeDuplicateEvent, d.eventPos[i], fmt.Sprintf("events[%d].id", i),
				fmt.Sprintf("duplicate event id %q", ev.ID))
		}
		ids[ev.ID] = true
	}

	if !ids[meta.InitialEvent] {
		d.fail(ErrCodeInitialEvent, d.initialPos, "initial_event",
			fmt.Sprintf("initial_event %q does not name an event", meta.InitialEvent))
	}

	for _, ref := range d.refs {
		if !ids[ref.target] {
			d.fail(ref.code, ref.pos, ref.field,
				fmt.Sprintf("event %q: %s %q does not name an event", ref.owner, ref.kind, ref.target))
		}
	}
}
