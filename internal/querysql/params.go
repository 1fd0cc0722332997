package querysql

import (
	"errors"
	"sort"

	"github.com/roach88/shorthand/internal/ir"
)

// Strategy is how a parameter's value is turned into SQL. It is inferred from
// the operator the parameter first appears with and fixed from then on.
type Strategy int

const (
	// PlainString escapes scalars: strings quoted, numbers bare, bools 1/0.
	PlainString Strategy = iota
	// Wildcard escapes a scalar as a LIKE pattern; see WildcardSide.
	Wildcard
	// InSet expands an array into a comma-separated list of scalars.
	InSet
	// JSONPath requires a string starting with "$".
	JSONPath
	// JSONObject serializes arrays and objects as canonical JSON.
	JSONObject
)

func (s Strategy) String() string {
	switch s {
	case PlainString:
		return "plain-string"
	case Wildcard:
		return "wildcard-string"
	case InSet:
		return "in-set"
	case JSONPath:
		return "json-path"
	case JSONObject:
		return "json-object"
	default:
		return "unknown"
	}
}

// WildcardSide says where a Wildcard slot puts its % signs.
type WildcardSide int

const (
	// Both gives %x% (contains).
	Both WildcardSide = iota
	// Suffix gives x% (starts with).
	Suffix
	// Prefix gives %x (ends with).
	Prefix
)

// Slot is a named parameter declared by a compiler.
type Slot struct {
	Name     string
	Strategy Strategy
	Side     WildcardSide // meaningful for Wildcard only
	Value    ir.IRValue
	Assigned bool
}

// Params is the ordered set of slots one compiler declared.
// Slots keep the order in which they were first seen.
type Params struct {
	slots []*Slot
	index map[string]*Slot
}

// NewParams creates an empty slot set.
func NewParams() *Params {
	return &Params{index: make(map[string]*Slot)}
}

// Declare registers a slot. Declaring a name that already exists keeps the
// first declaration and returns it.
func (p *Params) Declare(name string, strategy Strategy, side WildcardSide) *Slot {
	if s, ok := p.index[name]; ok {
		return s
	}
	s := &Slot{Name: name, Strategy: strategy, Side: side}
	p.slots = append(p.slots, s)
	p.index[name] = s
	return s
}

// Lookup returns the slot declared under name.
func (p *Params) Lookup(name string) (*Slot, bool) {
	s, ok := p.index[name]
	return s, ok
}

// Has reports whether name was declared.
func (p *Params) Has(name string) bool {
	_, ok := p.index[name]
	return ok
}

// Names returns the declared names in declaration order.
func (p *Params) Names() []string {
	names := make([]string, len(p.slots))
	for i, s := range p.slots {
		names[i] = s.Name
	}
	return names
}

// Slots returns the declared slots in declaration order.
func (p *Params) Slots() []*Slot {
	return append([]*Slot(nil), p.slots...)
}

// Assign converts value and stores it in the named slot. Compatibility with
// the slot's strategy is checked when rendering, not here.
func (p *Params) Assign(name string, value any) error {
	s, ok := p.index[name]
	if !ok {
		return &ir.ValueError{Code: ir.CodeUnknownParameter, Param: name, Message: "no such parameter"}
	}
	v, err := ir.FromGo(value)
	if err != nil {
		var ve *ir.ValueError
		if errors.As(err, &ve) {
			return &ir.ValueError{Code: ve.Code, Param: name, Message: ve.Message}
		}
		return &ir.ValueError{Code: ir.CodeUnsupportedType, Param: name, Message: err.Error()}
	}
	s.Value = v
	s.Assigned = true
	return nil
}

// Unassigned returns the names of declared slots that have no value, sorted.
func (p *Params) Unassigned() []string {
	var names []string
	for _, s := range p.slots {
		if !s.Assigned {
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Values returns the assigned values as an object, for fingerprinting.
func (p *Params) Values() ir.IRObject {
	obj := make(ir.IRObject, len(p.slots))
	for _, s := range p.slots {
		if s.Assigned {
			obj[s.Name] = s.Value
		}
	}
	return obj
}
