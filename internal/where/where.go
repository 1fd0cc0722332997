package where

import (
	"sort"

	"github.com/roach88/shorthand/internal/queryir"
	"github.com/roach88/shorthand/internal/querysql"
	"github.com/roach88/shorthand/internal/tokenizer"
)

// Options configures Compile.
type Options struct {
	// Params is the slot pool parameters are declared in. Expressions that
	// share a pool share their slots. Nil creates a private pool.
	Params *querysql.Params

	// Limits bound the input. Zero fields take tokenizer.DefaultLimits.
	Limits tokenizer.Limits
}

// Where is a compiled shorthand condition.
//
// The condition tree is fixed at compilation. Parameter values may be
// reassigned between renders. A Where is not safe for concurrent Assign.
type Where struct {
	expr   string
	tree   *queryir.ConditionTree
	params *querysql.Params
}

// Compile parses a shorthand expression.
//
// Every grammar violation is returned as an *ir.SyntaxError; no Where is
// produced in that case. Parameters are declared in opts.Params only when
// compilation succeeds.
func Compile(expr string, opts Options) (*Where, error) {
	// Declare into a scratch pool first so a failed compile leaves a shared
	// pool untouched.
	scratch := querysql.NewParams()
	if opts.Params != nil {
		for _, s := range opts.Params.Slots() {
			scratch.Declare(s.Name, s.Strategy, s.Side)
		}
	}

	c := newCompiler(scratch, opts.Limits)
	tree, err := c.compile(expr)
	if err != nil {
		return nil, err
	}

	params := opts.Params
	if params == nil {
		params = scratch
	} else {
		for _, s := range scratch.Slots() {
			params.Declare(s.Name, s.Strategy, s.Side)
		}
	}
	return &Where{expr: expr, tree: tree, params: params}, nil
}

// String returns the shorthand source.
func (w *Where) String() string {
	return w.expr
}

// Tree returns the parsed condition tree.
func (w *Where) Tree() *queryir.ConditionTree {
	return w.tree
}

// Params returns the slot pool the expression declared its parameters in.
func (w *Where) Params() *querysql.Params {
	return w.params
}

// Has reports whether the pool has a slot named name.
func (w *Where) Has(name string) bool {
	return w.params.Has(name)
}

// Assign stores a value for the named parameter.
func (w *Where) Assign(name string, value any) error {
	return w.params.Assign(name, value)
}

// AssignAll stores every value in values, in key order. It stops at the
// first failure.
func (w *Where) AssignAll(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.params.Assign(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// Render returns the condition with every parameter replaced by its escaped
// value. Unassigned parameters render as ''.
func (w *Where) Render() (string, error) {
	return w.RenderWith(querysql.NewSQLCompiler(querysql.Splice{}))
}

// Template returns the condition with parameters written as :name.
func (w *Where) Template() (string, error) {
	return w.RenderWith(querysql.NewSQLCompiler(querysql.Template{}))
}

// Bind returns the condition with ? placeholders and the matching driver
// arguments in textual order.
func (w *Where) Bind() (string, []any, error) {
	p := querysql.NewPlaceholder()
	sql, err := w.RenderWith(querysql.NewSQLCompiler(p))
	if err != nil {
		return "", nil, err
	}
	return sql, p.Args(), nil
}

// RenderWith renders the condition with a caller-supplied compiler, so a
// statement can render several clauses through one binder.
func (w *Where) RenderWith(c *querysql.SQLCompiler) (string, error) {
	return c.CompileCondition(w.tree, w.params)
}
