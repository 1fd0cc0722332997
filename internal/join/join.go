package join

import (
	"sort"

	"github.com/roach88/shorthand/internal/queryir"
	"github.com/roach88/shorthand/internal/querysql"
	"github.com/roach88/shorthand/internal/tokenizer"
)

// Options configures Compile.
type Options struct {
	// Limits bound the chain and every ON expression in it. Zero fields take
	// tokenizer.DefaultLimits.
	Limits tokenizer.Limits
}

// Join is a compiled join chain.
//
// All ON conditions of a chain declare their parameters in one pool, so a
// name used in two conditions is one parameter. Overrides may be registered
// at any time before rendering.
type Join struct {
	chain   string
	tree    *queryir.JoinTree
	params  *querysql.Params
	sources querysql.Sources
}

// Compile parses a shorthand join chain. Grammar violations, including those
// inside ON expressions, are returned as *ir.SyntaxError.
func Compile(chain string, opts Options) (*Join, error) {
	params := querysql.NewParams()
	c := newCompiler(params, opts.Limits)
	tree, err := c.compile(chain)
	if err != nil {
		return nil, err
	}
	return &Join{
		chain:   chain,
		tree:    tree,
		params:  params,
		sources: make(querysql.Sources),
	}, nil
}

// String returns the shorthand source.
func (j *Join) String() string {
	return j.chain
}

// Tree returns the parsed join tree.
func (j *Join) Tree() *queryir.JoinTree {
	return j.tree
}

// Params returns the pool shared by the chain's ON conditions.
func (j *Join) Params() *querysql.Params {
	return j.params
}

// Has reports whether an ON condition declared a parameter named name.
func (j *Join) Has(name string) bool {
	return j.params.Has(name)
}

// Assign stores a value for a parameter of the chain's ON conditions.
func (j *Join) Assign(name string, value any) error {
	return j.params.Assign(name, value)
}

// AssignAll stores every value in values, in key order. It stops at the
// first failure.
func (j *Join) AssignAll(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := j.params.Assign(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// Override registers src as the replacement for the table called name, or
// for the tables written with the override key {$name}. A later call for the
// same name replaces the earlier source.
func (j *Join) Override(name string, src querysql.Source) {
	j.sources[name] = src
}

// Overridden reports whether a replacement is registered under name.
func (j *Join) Overridden(name string) bool {
	_, ok := j.sources[name]
	return ok
}

// OverrideKeys returns the {$key} names the chain uses, sorted, whether or
// not a replacement is registered yet.
func (j *Join) OverrideKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, t := range j.tree.Tables() {
		if t.Override != "" && !seen[t.Override] {
			seen[t.Override] = true
			keys = append(keys, t.Override)
		}
	}
	sort.Strings(keys)
	return keys
}

// Render returns the FROM clause body with parameters spliced in.
func (j *Join) Render() (string, error) {
	return j.RenderWith(querysql.NewSQLCompiler(querysql.Splice{}))
}

// Template returns the FROM clause body with parameters written as :name.
func (j *Join) Template() (string, error) {
	return j.RenderWith(querysql.NewSQLCompiler(querysql.Template{}))
}

// Bind returns the FROM clause body with ? placeholders and the matching
// driver arguments in textual order, replacements included.
func (j *Join) Bind() (string, []any, error) {
	p := querysql.NewPlaceholder()
	sql, err := j.RenderWith(querysql.NewSQLCompiler(p))
	if err != nil {
		return "", nil, err
	}
	return sql, p.Args(), nil
}

// RenderWith renders the chain with a caller-supplied compiler.
func (j *Join) RenderWith(c *querysql.SQLCompiler) (string, error) {
	return c.CompileJoin(j.tree, j.params, j.sources)
}
