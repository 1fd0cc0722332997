package statement

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/join"
	"github.com/roach88/shorthand/internal/querysql"
	"github.com/roach88/shorthand/internal/tokenizer"
	"github.com/roach88/shorthand/internal/where"
)

// Limit is the LIMIT clause.
type Limit struct {
	Start  int `json:"start" yaml:"start"`
	Length int `json:"length" yaml:"length"`
}

// Definition holds the shorthand source of every clause. Only From is
// required.
type Definition struct {
	Select  string `json:"select,omitempty" yaml:"select,omitempty"`
	From    string `json:"from" yaml:"from"`
	Where   string `json:"where,omitempty" yaml:"where,omitempty"`
	Having  string `json:"having,omitempty" yaml:"having,omitempty"`
	GroupBy string `json:"group,omitempty" yaml:"group,omitempty"`
	OrderBy string `json:"order,omitempty" yaml:"order,omitempty"`
	Limit   *Limit `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Options configures a Statement.
type Options struct {
	// Limits bound every clause. Zero fields take tokenizer.DefaultLimits.
	Limits tokenizer.Limits

	// Logger receives a debug record per Render. Nil discards them.
	Logger *slog.Logger
}

// Statement is a compiled SELECT statement.
//
// A Statement is not safe for concurrent use.
type Statement struct {
	opts    Options
	scanner *tokenizer.Scanner

	columns []string
	from    *join.Join
	where   *where.Where
	having  *where.Where
	groupBy []string
	orderBy []Order
	limit   *Limit

	forks     map[string]*Statement
	forkOrder []string
}

// New compiles every clause of def. The first grammar violation is returned
// as an *ir.SyntaxError, wrapped with the clause it was found in.
func New(def Definition, opts Options) (*Statement, error) {
	s := &Statement{
		opts:    opts,
		scanner: newListScanner(opts.Limits),
		forks:   make(map[string]*Statement),
	}
	if err := s.Apply(def); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply replaces every clause with the ones in def, in the order New compiles
// them. It stops at the first error; clauses set before it keep their new
// value.
func (s *Statement) Apply(def Definition) error {
	setters := []func() error{
		func() error { return s.SetFrom(def.From) },
		func() error { return s.SetColumns(def.Select) },
		func() error { return s.SetWhere(def.Where) },
		func() error { return s.SetGroupBy(def.GroupBy) },
		func() error { return s.SetHaving(def.Having) },
		func() error { return s.SetOrderBy(def.OrderBy) },
		func() error { return s.SetLimit(def.Limit) },
	}
	for _, set := range setters {
		if err := set(); err != nil {
			return err
		}
	}
	return nil
}

// SetColumns replaces the SELECT list. An empty list selects *.
func (s *Statement) SetColumns(list string) error {
	cols, err := splitList(s.scanner, list)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	s.columns = cols
	return nil
}

// SetFrom replaces the join chain. Forks registered earlier stay registered
// as overrides of the new chain.
func (s *Statement) SetFrom(chain string) error {
	j, err := join.Compile(chain, join.Options{Limits: s.opts.Limits})
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	for _, name := range s.forkOrder {
		j.Override(name, s.forks[name])
	}
	s.from = j
	return nil
}

// SetWhere replaces the WHERE condition. An empty expression removes it.
// Values assigned to the old condition are dropped.
func (s *Statement) SetWhere(expr string) error {
	w, err := s.compileCondition(expr)
	if err != nil {
		return fmt.Errorf("where: %w", err)
	}
	s.where = w
	return nil
}

// SetHaving replaces the HAVING condition. An empty expression removes it.
func (s *Statement) SetHaving(expr string) error {
	w, err := s.compileCondition(expr)
	if err != nil {
		return fmt.Errorf("having: %w", err)
	}
	s.having = w
	return nil
}

func (s *Statement) compileCondition(expr string) (*where.Where, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	return where.Compile(expr, where.Options{Limits: s.opts.Limits})
}

// SetGroupBy replaces the GROUP BY list.
func (s *Statement) SetGroupBy(list string) error {
	cols, err := splitList(s.scanner, list)
	if err != nil {
		return fmt.Errorf("group: %w", err)
	}
	s.groupBy = cols
	return nil
}

// SetOrderBy replaces the ORDER BY list.
func (s *Statement) SetOrderBy(list string) error {
	orders, err := parseOrder(s.scanner, list)
	if err != nil {
		return fmt.Errorf("order: %w", err)
	}
	s.orderBy = orders
	return nil
}

// SetLimit replaces the LIMIT clause. Nil removes it.
func (s *Statement) SetLimit(l *Limit) error {
	if l == nil {
		s.limit = nil
		return nil
	}
	if l.Start < 0 || l.Length <= 0 {
		return fmt.Errorf("limit: start must be >= 0 and length > 0, got %d, %d", l.Start, l.Length)
	}
	limit := *l
	s.limit = &limit
	return nil
}

// Fork returns a nested Statement that replaces table in this statement's
// join chain. Its FROM is table until changed. Forking the same table twice
// returns the same Statement.
func (s *Statement) Fork(table string) (*Statement, error) {
	if f, ok := s.forks[table]; ok {
		return f, nil
	}
	f, err := New(Definition{From: table}, s.opts)
	if err != nil {
		return nil, fmt.Errorf("fork %s: %w", table, err)
	}
	s.forks[table] = f
	s.forkOrder = append(s.forkOrder, table)
	s.from.Override(table, f)
	return f, nil
}

// Forks returns the names of the forked tables in creation order.
func (s *Statement) Forks() []string {
	return append([]string(nil), s.forkOrder...)
}

// Override registers a replacement for a table of the join chain. See
// join.Join.Override.
func (s *Statement) Override(name string, src querysql.Source) {
	s.from.Override(name, src)
}

// OverrideKeys returns the {$key} names used in the join chain, sorted.
func (s *Statement) OverrideKeys() []string {
	return s.from.OverrideKeys()
}

// Overridden reports whether a replacement is registered under name.
func (s *Statement) Overridden(name string) bool {
	return s.from.Overridden(name)
}

// Tables returns the table names of the join chain in textual order.
func (s *Statement) Tables() []string {
	var names []string
	for _, t := range s.from.Tree().Tables() {
		names = append(names, t.Name)
	}
	return names
}

// holder is a clause that declares parameters.
type holder interface {
	Has(name string) bool
	Assign(name string, value any) error
}

// holders returns the clauses of this statement that declare parameters,
// forks excluded.
func (s *Statement) holders() []holder {
	out := []holder{s.from}
	if s.where != nil {
		out = append(out, s.where)
	}
	if s.having != nil {
		out = append(out, s.having)
	}
	return out
}

// Has reports whether any clause or fork declared a parameter named name.
func (s *Statement) Has(name string) bool {
	for _, h := range s.holders() {
		if h.Has(name) {
			return true
		}
	}
	for _, f := range s.forks {
		if f.Has(name) {
			return true
		}
	}
	return false
}

// Assign stores a value in every clause and fork that declared the
// parameter. A name nobody declared is a ValueError.
func (s *Statement) Assign(name string, value any) error {
	found, err := s.assign(name, value)
	if err != nil {
		return err
	}
	if !found {
		return &ir.ValueError{Code: ir.CodeUnknownParameter, Param: name, Message: "no clause declares this parameter"}
	}
	return nil
}

func (s *Statement) assign(name string, value any) (bool, error) {
	found := false
	for _, h := range s.holders() {
		if !h.Has(name) {
			continue
		}
		if err := h.Assign(name, value); err != nil {
			return true, err
		}
		found = true
	}
	for _, fname := range s.forkOrder {
		ok, err := s.forks[fname].assign(name, value)
		if err != nil {
			return true, err
		}
		found = found || ok
	}
	return found, nil
}

// AssignAll assigns every value in values, in key order. It stops at the
// first failure.
func (s *Statement) AssignAll(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.Assign(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// pools returns the parameter pools of this statement and its forks.
func (s *Statement) pools() []*querysql.Params {
	pools := []*querysql.Params{s.from.Params()}
	if s.where != nil {
		pools = append(pools, s.where.Params())
	}
	if s.having != nil {
		pools = append(pools, s.having.Params())
	}
	for _, name := range s.forkOrder {
		pools = append(pools, s.forks[name].pools()...)
	}
	return pools
}

// Parameters returns every declared parameter name, sorted and deduplicated.
func (s *Statement) Parameters() []string {
	return collect(s.pools(), func(*querysql.Slot) bool { return true })
}

// Unassigned returns the declared parameters that have no value, sorted.
func (s *Statement) Unassigned() []string {
	return collect(s.pools(), func(slot *querysql.Slot) bool { return !slot.Assigned })
}

func collect(pools []*querysql.Params, keep func(*querysql.Slot) bool) []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range pools {
		for _, slot := range p.Slots() {
			if keep(slot) && !seen[slot.Name] {
				seen[slot.Name] = true
				names = append(names, slot.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Values returns the assigned parameter values across every clause and fork.
func (s *Statement) Values() ir.IRObject {
	out := ir.IRObject{}
	for _, p := range s.pools() {
		for name, v := range p.Values() {
			if _, ok := out[name]; !ok {
				out[name] = v
			}
		}
	}
	return out
}

// Render returns the SQL with parameter values spliced in. Unassigned
// parameters render as ''.
func (s *Statement) Render() (string, error) {
	sql, err := s.RenderSQL(querysql.Splice{})
	if err != nil {
		return "", err
	}
	if l := s.opts.Logger; l != nil && l.Enabled(context.Background(), slog.LevelDebug) {
		l.Debug("statement rendered", "sql", sql, "unassigned", s.Unassigned())
	}
	return sql, nil
}

// Template returns the SQL with parameters written as :name.
func (s *Statement) Template() (string, error) {
	return s.RenderSQL(querysql.Template{})
}

// Bind returns the SQL with ? placeholders and the driver arguments in the
// order the placeholders appear.
func (s *Statement) Bind() (string, []any, error) {
	p := querysql.NewPlaceholder()
	sql, err := s.RenderSQL(p)
	if err != nil {
		return "", nil, err
	}
	return sql, p.Args(), nil
}

// Fingerprint identifies the statement's shape: two statements with the same
// template SQL have the same fingerprint whatever their parameter values.
func (s *Statement) Fingerprint() (string, error) {
	tmpl, err := s.Template()
	if err != nil {
		return "", err
	}
	return ir.StatementFingerprint(tmpl), nil
}

// RenderSQL renders the statement with b. It makes a Statement usable as a
// join override source.
func (s *Statement) RenderSQL(b querysql.Binder) (string, error) {
	c := querysql.NewSQLCompiler(b)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(s.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(s.columns, ", "))
	}

	from, err := s.from.RenderWith(c)
	if err != nil {
		return "", fmt.Errorf("from: %w", err)
	}
	sb.WriteString(" FROM ")
	sb.WriteString(from)

	if s.where != nil {
		cond, err := s.where.RenderWith(c)
		if err != nil {
			return "", fmt.Errorf("where: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	if len(s.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(s.groupBy, ", "))
	}
	if s.having != nil {
		cond, err := s.having.RenderWith(c)
		if err != nil {
			return "", fmt.Errorf("having: %w", err)
		}
		sb.WriteString(" HAVING ")
		sb.WriteString(cond)
	}
	if len(s.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range s.orderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(o.String())
		}
	}
	if s.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(s.limit.Start))
		sb.WriteString(", ")
		sb.WriteString(strconv.Itoa(s.limit.Length))
	}
	return sb.String(), nil
}
