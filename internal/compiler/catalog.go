package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"

	"github.com/roach88/shorthand/internal/statement"
)

// Catalog is the set of queries declared under query: in a CUE value.
//
// A query may use another catalog query as a table: an override key naming a
// catalog query, as in orders-recent.{$latest_orders}[id], is replaced by
// that query's statement when the query is built.
type Catalog struct {
	queries []*Query
	index   map[string]*Query
}

// CompileCatalog compiles every query of v. It does not stop at the first
// failing query: the returned catalog holds the queries that compiled and
// the error slice one entry per query that did not.
func CompileCatalog(v cue.Value) (*Catalog, []error) {
	c := &Catalog{index: make(map[string]*Query)}

	if err := v.Err(); err != nil {
		return c, []error{formatCUEError(err)}
	}
	queryVal := v.LookupPath(cue.ParsePath("query"))
	if !queryVal.Exists() {
		return c, nil
	}

	iter, err := queryVal.Fields()
	if err != nil {
		return c, []error{formatCUEError(err)}
	}

	var errs []error
	for iter.Next() {
		q, err := CompileQuery(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("query.%s: %w", iter.Label(), err))
			continue
		}
		c.Add(q)
	}
	return c, errs
}

// Add registers q, replacing any query with the same name.
func (c *Catalog) Add(q *Query) {
	if c.index == nil {
		c.index = make(map[string]*Query)
	}
	if _, ok := c.index[q.Name]; !ok {
		c.queries = append(c.queries, q)
	} else {
		for i, old := range c.queries {
			if old.Name == q.Name {
				c.queries[i] = q
			}
		}
	}
	c.index[q.Name] = q
}

// Lookup returns the query named name.
func (c *Catalog) Lookup(name string) (*Query, bool) {
	q, ok := c.index[name]
	return q, ok
}

// Names returns the query names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.queries))
	for _, q := range c.queries {
		names = append(names, q.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of queries.
func (c *Catalog) Len() int {
	return len(c.queries)
}

// Build compiles the named query into a Statement: its clauses, its forks,
// the catalog queries its override keys name, and its params, in that order.
func (c *Catalog) Build(name string, opts statement.Options) (*statement.Statement, error) {
	return c.build(name, opts, nil)
}

func (c *Catalog) build(name string, opts statement.Options, stack []string) (*statement.Statement, error) {
	for _, seen := range stack {
		if seen == name {
			return nil, fmt.Errorf("query %s references itself through %v", name, append(stack, name))
		}
	}
	q, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown query %q", name)
	}
	stack = append(stack, name)

	s, err := statement.New(q.Definition, opts)
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(q.Forks))
	for table := range q.Forks {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		f, err := s.Fork(table)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(q.Forks[table]); err != nil {
			return nil, fmt.Errorf("fork %s: %w", table, err)
		}
	}

	for _, key := range s.OverrideKeys() {
		if s.Overridden(key) {
			continue
		}
		if _, ok := c.index[key]; !ok {
			continue
		}
		sub, err := c.build(key, opts, stack)
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
		s.Override(key, sub)
	}

	if err := s.AssignAll(q.Params); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	return s, nil
}
