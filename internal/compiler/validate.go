package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/querysql"
	"github.com/roach88/shorthand/internal/statement"
)

// Validation error codes (E100-E199)
const (
	ErrQueryNoFrom         = "E101" // from is required
	ErrClauseSyntax        = "E102" // a clause does not compile
	ErrInvalidLimit        = "E103" // limit start < 0 or length <= 0
	ErrUnknownParam        = "E104" // params names an undeclared parameter
	ErrForkUnknownTable    = "E105" // fork names a table not in the chain
	ErrUnresolvedOverride  = "E106" // {$key} names neither a fork nor a query
	ErrReferenceCycle      = "E107" // queries use each other as tables
	ErrIncompatibleParam   = "E108" // a param value does not fit its parameter
	ErrUnassignedParameter = "E109" // a declared parameter has no value
)

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Query   string `json:"query"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Pos     int    `json:"pos,omitempty"`
	Warning bool   `json:"warning,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Pos > 0 {
		return fmt.Sprintf("[%s] query.%s.%s at %d: %s", e.Code, e.Query, e.Field, e.Pos, e.Message)
	}
	return fmt.Sprintf("[%s] query.%s.%s: %s", e.Code, e.Query, e.Field, e.Message)
}

// Validate checks every query of c and returns all problems found. Entries
// with Warning set do not stop a query from rendering.
func Validate(c *Catalog, opts statement.Options) []ValidationError {
	var errs []ValidationError
	for _, name := range c.Names() {
		q, _ := c.Lookup(name)
		errs = append(errs, validateQuery(c, q, opts)...)
	}
	for _, cycle := range AnalyzeCycles(c) {
		errs = append(errs, ValidationError{
			Query:   cycle.Path[0],
			Field:   "from",
			Message: cycle.Message,
			Code:    ErrReferenceCycle,
		})
	}
	return errs
}

func validateQuery(c *Catalog, q *Query, opts statement.Options) []ValidationError {
	var errs []ValidationError
	add := func(field, code, msg string, pos int) {
		errs = append(errs, ValidationError{Query: q.Name, Field: field, Message: msg, Code: code, Pos: pos})
	}

	if strings.TrimSpace(q.Definition.From) == "" {
		add("from", ErrQueryNoFrom, "from is required", 0)
		return errs
	}

	s, err := statement.New(q.Definition, opts)
	if err != nil {
		field, code, msg, pos := classify(err)
		add(field, code, msg, pos)
		return errs
	}

	tables := make(map[string]bool)
	for _, t := range s.Tables() {
		tables[t] = true
	}
	for _, table := range sortedKeys(q.Forks) {
		if !tables[table] {
			add("fork."+table, ErrForkUnknownTable, fmt.Sprintf("table %s is not in the join chain", table), 0)
			continue
		}
		f, err := s.Fork(table)
		if err != nil {
			add("fork."+table, ErrClauseSyntax, err.Error(), 0)
			continue
		}
		if err := f.Apply(q.Forks[table]); err != nil {
			field, code, msg, pos := classify(err)
			add("fork."+table+"."+field, code, msg, pos)
		}
	}

	for _, key := range s.OverrideKeys() {
		if _, ok := c.Lookup(key); ok || s.Overridden(key) {
			continue
		}
		add("from", ErrUnresolvedOverride, fmt.Sprintf("{$%s} names neither a fork nor a catalog query", key), 0)
	}

	for _, name := range sortedKeys(q.Params) {
		if !s.Has(name) {
			add("params."+name, ErrUnknownParam, "no clause declares this parameter", 0)
			continue
		}
		if err := s.Assign(name, q.Params[name]); err != nil {
			add("params."+name, ErrIncompatibleParam, err.Error(), 0)
		}
	}
	if len(errs) > 0 {
		return errs
	}

	// Substitute every referenced catalog query so Render exercises the
	// value checks; cycles are reported once by Validate.
	for _, key := range s.OverrideKeys() {
		if !s.Overridden(key) {
			s.Override(key, querysql.RawSQL("SELECT NULL"))
		}
	}
	if _, err := s.Render(); err != nil {
		var ve *ir.ValueError
		if errors.As(err, &ve) {
			add("params."+ve.Param, ErrIncompatibleParam, ve.Message, 0)
		} else {
			add("from", ErrClauseSyntax, err.Error(), 0)
		}
	}
	for _, name := range s.Unassigned() {
		errs = append(errs, ValidationError{
			Query:   q.Name,
			Field:   "params." + name,
			Message: "parameter has no value and renders as ''",
			Code:    ErrUnassignedParameter,
			Warning: true,
		})
	}
	return errs
}

// classify turns a statement construction error into a field and code. The
// field is the clause prefix statement adds to its errors.
func classify(err error) (field, code, msg string, pos int) {
	field = "from"
	text := err.Error()
	if i := strings.Index(text, ": "); i > 0 {
		field = text[:i]
	}

	var se *ir.SyntaxError
	if errors.As(err, &se) {
		return field, ErrClauseSyntax, fmt.Sprintf("%s: %s", se.Code, se.Message), se.Pos
	}
	if field == "limit" {
		return field, ErrInvalidLimit, text, 0
	}
	return field, ErrClauseSyntax, text, 0
}
