package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/shorthand/internal/statement"
)

// Query is one named entry of a query catalog.
type Query struct {
	Name       string
	Definition statement.Definition

	// Forks replaces tables of the join chain with nested statements, keyed
	// by table name. A fork without a from clause selects from the table.
	Forks map[string]statement.Definition

	// Params are the values assigned after compilation.
	Params map[string]any

	Pos token.Pos
}

// clauseFields maps catalog field names to the Definition field they fill.
var clauseFields = []struct {
	name string
	set  func(*statement.Definition, string)
}{
	{"select", func(d *statement.Definition, s string) { d.Select = s }},
	{"from", func(d *statement.Definition, s string) { d.From = s }},
	{"where", func(d *statement.Definition, s string) { d.Where = s }},
	{"having", func(d *statement.Definition, s string) { d.Having = s }},
	{"group", func(d *statement.Definition, s string) { d.GroupBy = s }},
	{"order", func(d *statement.Definition, s string) { d.OrderBy = s }},
}

// CompileQuery parses a CUE value into a Query.
//
// The CUE value should be the query struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`query: active: { from: "orders" }`)
//	q, err := CompileQuery(v.LookupPath(cue.ParsePath("query.active")))
func CompileQuery(v cue.Value) (*Query, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	q := &Query{Pos: v.Pos()}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		q.Name = labels[len(labels)-1].String()
	}

	def, err := parseDefinition(v, "")
	if err != nil {
		return nil, err
	}
	if def.From == "" {
		return nil, &CompileError{Field: "from", Message: "from is required", Pos: v.Pos()}
	}
	q.Definition = def

	if q.Forks, err = parseForks(v); err != nil {
		return nil, err
	}

	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if paramsVal.Exists() {
		params, err := decodeValue(paramsVal)
		if err != nil {
			return nil, err
		}
		obj, ok := params.(map[string]any)
		if !ok {
			return nil, &CompileError{Field: "params", Message: "params must be a struct", Pos: paramsVal.Pos()}
		}
		q.Params = obj
	}

	return q, nil
}

// parseDefinition reads the clause fields of v. prefix qualifies field names
// in errors.
func parseDefinition(v cue.Value, prefix string) (statement.Definition, error) {
	var def statement.Definition

	for _, f := range clauseFields {
		fv := v.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			continue
		}
		s, err := fv.String()
		if err != nil {
			return def, &CompileError{
				Field:   prefix + f.name,
				Message: "must be a string",
				Pos:     fv.Pos(),
			}
		}
		f.set(&def, s)
	}

	limitVal := v.LookupPath(cue.ParsePath("limit"))
	if limitVal.Exists() {
		limit, err := parseLimit(limitVal, prefix)
		if err != nil {
			return def, err
		}
		def.Limit = limit
	}
	return def, nil
}

func parseLimit(v cue.Value, prefix string) (*statement.Limit, error) {
	var limit statement.Limit
	fields := []struct {
		name string
		dst  *int
	}{
		{"start", &limit.Start},
		{"length", &limit.Length},
	}
	for _, f := range fields {
		fv := v.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			if f.name == "length" {
				return nil, &CompileError{Field: prefix + "limit.length", Message: "length is required", Pos: v.Pos()}
			}
			continue
		}
		n, err := fv.Int64()
		if err != nil {
			return nil, &CompileError{Field: prefix + "limit." + f.name, Message: "must be an integer", Pos: fv.Pos()}
		}
		*f.dst = int(n)
	}
	return &limit, nil
}

// parseForks reads fork: <table>: {...}.
func parseForks(v cue.Value) (map[string]statement.Definition, error) {
	forkVal := v.LookupPath(cue.ParsePath("fork"))
	if !forkVal.Exists() {
		return nil, nil
	}

	iter, err := forkVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	forks := make(map[string]statement.Definition)
	for iter.Next() {
		table := iter.Label()
		def, err := parseDefinition(iter.Value(), "fork."+table+".")
		if err != nil {
			return nil, err
		}
		if def.From == "" {
			def.From = table
		}
		forks[table] = def
	}
	return forks, nil
}

// decodeValue converts a concrete CUE value into plain Go values: strings,
// int64, json.Number, bool, nil, []any and map[string]any. Non-integer numbers
// keep their literal text.
func decodeValue(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.FloatKind, cue.NumberKind:
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return json.Number(bytes.TrimSpace(b)), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for iter.Next() {
			elem, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			elem, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = elem
		}
		return out, nil
	default:
		return nil, &CompileError{
			Field:   "params",
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
