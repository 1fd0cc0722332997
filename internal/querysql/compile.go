package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/queryir"
)

// Source is a replacement for a table in a join chain: a compiled subquery or
// a nested statement. It renders with the caller's binder so placeholders
// and arguments stay in textual order.
type Source interface {
	RenderSQL(b Binder) (string, error)
}

// RawSQL is a Source holding already compiled SQL.
type RawSQL string

// RenderSQL implements Source.
func (r RawSQL) RenderSQL(Binder) (string, error) {
	return string(r), nil
}

// Sources maps table (or override) names to their replacements.
type Sources map[string]Source

// SideFor returns the wildcard placement of a LIKE operator.
func SideFor(op queryir.Operator) WildcardSide {
	switch op {
	case queryir.OpStartsWith:
		return Suffix
	case queryir.OpEndsWith:
		return Prefix
	default:
		return Both
	}
}

// SQLCompiler renders queryir trees to MySQL-flavored SQL.
//
// The binder decides how parameters appear; see Binder. A SQLCompiler holds
// no other state, but a Placeholder binder does, so use one compiler per
// render when binding placeholders.
type SQLCompiler struct {
	binder Binder
}

// NewSQLCompiler creates a SQLCompiler. A nil binder means Splice.
func NewSQLCompiler(b Binder) *SQLCompiler {
	if b == nil {
		b = Splice{}
	}
	return &SQLCompiler{binder: b}
}

// Binder returns the compiler's binder.
func (c *SQLCompiler) Binder() Binder {
	return c.binder
}

// CompileCondition renders a condition tree. Parameters are looked up in
// params.
//
// Connectors apply strictly left to right. When the connector changes, what
// has been rendered so far is wrapped in parentheses, so a|b,c renders as
// (a OR b) AND c.
func (c *SQLCompiler) CompileCondition(tree *queryir.ConditionTree, params *Params) (string, error) {
	if tree == nil || len(tree.Terms) == 0 {
		return "", fmt.Errorf("cannot compile empty condition")
	}

	out, err := c.compileTerm(tree.Terms[0], params)
	if err != nil {
		return "", err
	}
	for i, conn := range tree.Connectors {
		if i+1 >= len(tree.Terms) {
			return "", fmt.Errorf("connector %d has no following term", i)
		}
		next, err := c.compileTerm(tree.Terms[i+1], params)
		if err != nil {
			return "", err
		}
		if i > 0 && conn != tree.Connectors[i-1] {
			out = "(" + out + ")"
		}
		out = out + " " + conn.String() + " " + next
	}
	return out, nil
}

func (c *SQLCompiler) compileTerm(term queryir.Term, params *Params) (string, error) {
	switch term := term.(type) {
	case *queryir.Condition:
		return c.compileComparison(term, params)
	case *queryir.Group:
		inner, err := c.CompileCondition(term.Tree, params)
		if err != nil {
			return "", err
		}
		if term.Negated {
			return "NOT (" + inner + ")", nil
		}
		return "(" + inner + ")", nil
	default:
		return "", fmt.Errorf("unsupported term type: %T", term)
	}
}

// compileComparison renders one condition according to the operator table.
func (c *SQLCompiler) compileComparison(cond *queryir.Condition, params *Params) (string, error) {
	left, err := c.compileOperand(cond.Left, params)
	if err != nil {
		return "", err
	}

	if cond.Operator == queryir.OpTruthy {
		if cond.Negated {
			return left + " = 0", nil
		}
		return left + " = 1", nil
	}

	var right string
	switch cond.Operator {
	case queryir.OpContains, queryir.OpStartsWith, queryir.OpEndsWith:
		right, err = c.compileWildcard(cond, params)
	case queryir.OpIn:
		right, err = c.compileSet(cond.Right, params)
	default:
		right, err = c.compileOperand(cond.Right, params)
	}
	if err != nil {
		return "", err
	}

	switch cond.Operator {
	case queryir.OpContains, queryir.OpStartsWith, queryir.OpEndsWith:
		return left + negate(cond, " NOT LIKE ", " LIKE ") + right, nil
	case queryir.OpIn:
		return left + negate(cond, " NOT IN(", " IN(") + right + ")", nil
	case queryir.OpJSONPathExists:
		return "JSON_EXTRACT(" + left + ", " + right + ")" + negate(cond, " IS NULL", " IS NOT NULL"), nil
	case queryir.OpJSONContains:
		return "JSON_CONTAINS(" + left + ", " + right + ")" + negate(cond, " = 0", " = 1"), nil
	case queryir.OpJSONSearch:
		return `JSON_SEARCH(` + left + `, "one", ` + right + `)` + negate(cond, " IS NULL", " IS NOT NULL"), nil
	case queryir.OpEqual, queryir.OpNotEqual:
		if isNull(cond.Right) {
			isNot := (cond.Operator == queryir.OpNotEqual) != cond.Negated
			if isNot {
				return left + " IS NOT NULL", nil
			}
			return left + " IS NULL", nil
		}
	}

	var sql string
	switch cond.Operator {
	case queryir.OpEqual:
		sql = left + " = " + right
	case queryir.OpNotEqual:
		sql = left + " <> " + right
	case queryir.OpLess, queryir.OpGreater, queryir.OpLessEqual, queryir.OpGreaterEqual:
		sql = left + " " + cond.Operator.Symbol() + " " + right
	default:
		return "", fmt.Errorf("unsupported operator %q", cond.Operator)
	}
	if cond.Negated {
		return "NOT (" + sql + ")", nil
	}
	return sql, nil
}

func negate(cond *queryir.Condition, negated, plain string) string {
	if cond.Negated {
		return negated
	}
	return plain
}

func isNull(op queryir.Operand) bool {
	raw, ok := op.(*queryir.Raw)
	return ok && strings.EqualFold(raw.Text, "NULL")
}

// compileWildcard renders the right side of a LIKE operator. Literals get
// their % signs inline; parameters get them from their slot; anything else is
// wrapped in CONCAT.
func (c *SQLCompiler) compileWildcard(cond *queryir.Condition, params *Params) (string, error) {
	side := SideFor(cond.Operator)
	switch right := cond.Right.(type) {
	case *queryir.Literal:
		return QuoteString(WrapWildcard(EscapeLike(right.Value), side)), nil
	case *queryir.Parameter:
		return c.compileOperand(right, params)
	}

	inner, err := c.compileOperand(cond.Right, params)
	if err != nil {
		return "", err
	}
	switch side {
	case Suffix:
		return "CONCAT(" + inner + ", '%')", nil
	case Prefix:
		return "CONCAT('%', " + inner + ")", nil
	default:
		return "CONCAT('%', " + inner + ", '%')", nil
	}
}

// compileSet renders the content of IN(...) without the parentheses.
func (c *SQLCompiler) compileSet(op queryir.Operand, params *Params) (string, error) {
	if list, ok := op.(*queryir.List); ok {
		return c.compileItems(list.Items, params)
	}
	return c.compileOperand(op, params)
}

func (c *SQLCompiler) compileItems(items []queryir.Operand, params *Params) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		sql, err := c.compileOperand(item, params)
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	return strings.Join(parts, ", "), nil
}

func (c *SQLCompiler) compileOperand(op queryir.Operand, params *Params) (string, error) {
	switch op := op.(type) {
	case *queryir.Column:
		if op.Path == "" {
			return op.Ref(), nil
		}
		if op.Unquote {
			return op.Ref() + "->>" + op.Path, nil
		}
		return op.Ref() + "->" + op.Path, nil
	case *queryir.Literal:
		return QuoteString(op.Value), nil
	case *queryir.Parameter:
		slot, ok := params.Lookup(op.Name)
		if !ok {
			return "", fmt.Errorf("parameter :%s was never declared", op.Name)
		}
		var b strings.Builder
		if err := c.binder.Bind(&b, slot); err != nil {
			return "", err
		}
		return b.String(), nil
	case *queryir.Command:
		return op.SQL, nil
	case *queryir.Number:
		return op.Text, nil
	case *queryir.Function:
		args, err := c.compileItems(op.Args, params)
		if err != nil {
			return "", err
		}
		return op.Name + "(" + args + ")", nil
	case *queryir.List:
		items, err := c.compileItems(op.Items, params)
		if err != nil {
			return "", err
		}
		return "(" + items + ")", nil
	case *queryir.Raw:
		return op.Text, nil
	case nil:
		return "", fmt.Errorf("missing operand")
	default:
		return "", fmt.Errorf("unsupported operand type: %T", op)
	}
}

// CompileJoin renders a join tree.
//
// Steps without a condition render as NATURAL joins. A table whose override
// key or name has an entry in sources renders as (replacement) AS alias; an
// override key with no entry is a ValueError.
func (c *SQLCompiler) CompileJoin(tree *queryir.JoinTree, params *Params, sources Sources) (string, error) {
	if tree == nil || len(tree.Steps) == 0 {
		return "", fmt.Errorf("cannot compile empty join chain")
	}

	var b strings.Builder
	for i, step := range tree.Steps {
		node, err := c.compileJoinNode(step.Node, params, sources)
		if err != nil {
			return "", err
		}
		if i == 0 {
			b.WriteString(node)
			continue
		}
		if step.Edge == nil {
			return "", fmt.Errorf("join step %d has no edge", i)
		}

		b.WriteString(" ")
		if step.Edge.Condition == nil {
			b.WriteString("NATURAL ")
		}
		b.WriteString(step.Edge.Type.Keyword())
		b.WriteString(" ")
		b.WriteString(node)

		switch cond := step.Edge.Condition.(type) {
		case nil:
		case *queryir.On:
			sql, err := c.CompileCondition(cond.Tree, params)
			if err != nil {
				return "", err
			}
			b.WriteString(" ON ")
			b.WriteString(sql)
		case *queryir.Using:
			b.WriteString(" USING(")
			b.WriteString(strings.Join(cond.Columns, ", "))
			b.WriteString(")")
		case *queryir.Equality:
			ref, ok := step.Node.(*queryir.TableRef)
			if !ok {
				return "", fmt.Errorf("equality condition needs a table, got %T", step.Node)
			}
			pairs := make([]string, len(cond.Columns))
			for j, col := range cond.Columns {
				pairs[j] = cond.Against + "." + col + " = " + ref.RefName() + "." + col
			}
			b.WriteString(" ON ")
			b.WriteString(strings.Join(pairs, " AND "))
		default:
			return "", fmt.Errorf("unsupported join condition type: %T", cond)
		}
	}
	return b.String(), nil
}

func (c *SQLCompiler) compileJoinNode(node queryir.JoinNode, params *Params, sources Sources) (string, error) {
	switch node := node.(type) {
	case *queryir.TableRef:
		return c.compileTable(node, sources)
	case *queryir.JoinTree:
		inner, err := c.CompileJoin(node, params, sources)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	default:
		return "", fmt.Errorf("unsupported join node type: %T", node)
	}
}

func (c *SQLCompiler) compileTable(t *queryir.TableRef, sources Sources) (string, error) {
	key := t.Name
	if t.Override != "" {
		key = t.Override
	}
	if src, ok := sources[key]; ok {
		sql, err := src.RenderSQL(c.binder)
		if err != nil {
			return "", fmt.Errorf("render replacement for %s: %w", key, err)
		}
		return "(" + sql + ") AS " + t.RefName(), nil
	}
	if t.Override != "" {
		return "", &ir.ValueError{
			Code:    ir.CodeUnresolvedOverride,
			Param:   t.Override,
			Message: fmt.Sprintf("no replacement registered for table %s", t.Name),
		}
	}
	if t.Alias != "" {
		return t.Name + " AS " + t.Alias, nil
	}
	return t.Name, nil
}
