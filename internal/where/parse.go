package where

import (
	"strings"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/queryir"
	"github.com/roach88/shorthand/internal/querysql"
	"github.com/roach88/shorthand/internal/tokenizer"
)

// connectorExpr matches the term separators. "|=" is atomic, so the "|" of
// the in operator never matches.
const connectorExpr = `[,|]`

// compiler holds the state of one Compile call.
type compiler struct {
	scanner *tokenizer.Scanner
	params  *querysql.Params

	// refs records the columns that already received an implicit ? parameter.
	refs map[string]bool
}

func newCompiler(params *querysql.Params, limits tokenizer.Limits) *compiler {
	return &compiler{
		scanner: tokenizer.New(tokenizer.Options{
			Brackets: tokenizer.Round | tokenizer.Square | tokenizer.Curly,
			Matchers: []tokenizer.Matcher{
				tokenizer.CommandMatcher{},
				tokenizer.TokenMatcher{Token: "|="},
			},
			Limits: limits,
		}),
		params: params,
		refs:   make(map[string]bool),
	}
}

func (c *compiler) compile(expr string) (*queryir.ConditionTree, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, ir.NewSyntaxError(ir.ErrCodeEmptyExpression, "", -1, "empty expression")
	}
	frags, err := c.scanner.ParseTree(expr, tokenizer.TreeOptions{GroupStart: groupStart})
	if err != nil {
		return nil, err
	}
	tree, err := c.buildTree(frags, 0)
	if err != nil {
		return nil, err
	}
	if err := queryir.CheckCondition(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// groupStart reports whether the "(" at pos opens a group: it must begin a
// term, so only a connector, a negation or another group may precede it.
// Anything else makes it part of an operand such as f(x) or IN list.
// A term that opens with arithmetic parentheses, as in (a+b)*2>3, is read as
// a group and rejected; write the arithmetic on the right or without the
// leading parenthesis.
func groupStart(text string, pos int) bool {
	prev := strings.TrimRight(text[:pos], " \t\r\n")
	if prev == "" {
		return true
	}
	switch prev[len(prev)-1] {
	case ',', '|', '!', '(':
		return true
	}
	return false
}

// pending collects the pieces of one term while the fragment list is walked.
type pending struct {
	prefix    string
	prefixPos int

	group    tokenizer.Group
	groupPos int
	hasGroup bool

	suffix    string
	suffixPos int
}

func (p *pending) add(text string, pos int) {
	if p.hasGroup {
		if p.suffix == "" {
			p.suffixPos = pos
		}
		p.suffix += text
		return
	}
	if p.prefix == "" {
		p.prefixPos = pos
	}
	p.prefix += text
}

// buildTree turns one level of the parenthesis tree into a ConditionTree.
// base is the offset of frags within the original expression.
func (c *compiler) buildTree(frags []tokenizer.Fragment, base int) (*queryir.ConditionTree, error) {
	tree := &queryir.ConditionTree{}
	cur := &pending{prefixPos: base}
	pos := base

	flush := func(end int) error {
		if !cur.hasGroup && cur.prefix == "" {
			cur.prefixPos = end
		}
		term, err := c.finish(cur)
		if err != nil {
			return err
		}
		tree.Terms = append(tree.Terms, term)
		return nil
	}

	for _, f := range frags {
		switch f := f.(type) {
		case tokenizer.Leaf:
			pieces, err := c.scanner.Split(string(f), connectorExpr, tokenizer.SplitOptions{KeepDelimiters: true})
			if err != nil {
				return nil, ir.Offset(err, pos)
			}
			p := pos
			for i, piece := range pieces {
				if i%2 == 0 {
					cur.add(piece, p)
				} else {
					if err := flush(p); err != nil {
						return nil, err
					}
					tree.Connectors = append(tree.Connectors, connector(piece))
					cur = &pending{prefixPos: p + len(piece)}
				}
				p += len(piece)
			}
			pos += len(f)

		case tokenizer.Group:
			if cur.hasGroup || strings.TrimSpace(cur.suffix) != "" {
				return nil, ir.NewSyntaxError(ir.ErrCodeInvalidOperand, "(", pos,
					"a term can hold only one group")
			}
			cur.group = f
			cur.groupPos = pos
			cur.hasGroup = true
			pos += sourceLen(f) + 2
		}
	}
	if err := flush(pos); err != nil {
		return nil, err
	}
	return tree, nil
}

func (c *compiler) finish(cur *pending) (queryir.Term, error) {
	if !cur.hasGroup {
		return c.parseCondition(cur.prefix, cur.prefixPos)
	}

	negated := false
	switch prefix := strings.TrimSpace(cur.prefix); prefix {
	case "":
	case "!":
		negated = true
	default:
		return nil, ir.NewSyntaxError(ir.ErrCodeInvalidOperand, prefix, cur.prefixPos,
			"unexpected text before group")
	}
	if suffix := strings.TrimSpace(cur.suffix); suffix != "" {
		return nil, ir.NewSyntaxError(ir.ErrCodeInvalidOperand, suffix, cur.suffixPos,
			"unexpected text after group")
	}

	sub, err := c.buildTree(cur.group, cur.groupPos+1)
	if err != nil {
		return nil, err
	}
	return &queryir.Group{Negated: negated, Tree: sub}, nil
}

// parseCondition parses one term that is not a group. pos is the offset of
// text within the original expression.
func (c *compiler) parseCondition(text string, pos int) (*queryir.Condition, error) {
	t, pos := trimAt(text, pos)
	if t == "" {
		return nil, ir.NewSyntaxError(ir.ErrCodeEmptyExpression, text, pos, "empty term")
	}

	cond := &queryir.Condition{}
	if strings.HasPrefix(t, "!") && !strings.HasPrefix(t, "!=") {
		cond.Negated = true
		t, pos = trimAt(t[1:], pos+1)
	}

	at, symbol, err := c.findOperator(t)
	if err != nil {
		return nil, ir.Offset(err, pos)
	}

	if at < 0 {
		left, err := c.classify(t, pos)
		if err != nil {
			return nil, err
		}
		if _, ok := left.(*queryir.Column); !ok {
			return nil, ir.NewSyntaxError(ir.ErrCodeInvalidOperand, t, pos,
				"a lone operand must be a column")
		}
		cond.Operator = queryir.OpTruthy
		cond.Left = left
		c.declare(cond)
		return cond, nil
	}

	op, _ := queryir.LookupOperator(symbol)
	cond.Operator = op

	rest := strings.TrimLeft(t[at+len(symbol):], " \t\r\n")
	for _, s := range queryir.Symbols {
		if strings.HasPrefix(rest, s) {
			return nil, ir.NewSyntaxError(ir.ErrCodeUnknownOperator, symbol+s, pos+at,
				"unknown operator %q", symbol+s)
		}
	}

	lt, lpos := trimAt(t[:at], pos)
	rt, rpos := trimAt(t[at+len(symbol):], pos+at+len(symbol))
	if lt == "" || rt == "" {
		return nil, ir.NewSyntaxError(ir.ErrCodeInvalidOperand, t, pos,
			"operator %q needs an operand on both sides", symbol)
	}

	switch {
	case lt == "?" && rt == "?":
		return nil, ir.NewSyntaxError(ir.ErrCodeAmbiguousReference, t, pos,
			"both sides of %q are ?", symbol)
	case lt == "?":
		if cond.Right, err = c.classify(rt, rpos); err != nil {
			return nil, err
		}
		if cond.Left, err = c.reference(cond.Right, t, pos); err != nil {
			return nil, err
		}
	case rt == "?":
		if cond.Left, err = c.classify(lt, lpos); err != nil {
			return nil, err
		}
		if cond.Right, err = c.reference(cond.Left, t, pos); err != nil {
			return nil, err
		}
	default:
		if cond.Left, err = c.classify(lt, lpos); err != nil {
			return nil, err
		}
		if cond.Right, err = c.classify(rt, rpos); err != nil {
			return nil, err
		}
	}

	if op == queryir.OpJSONPathExists {
		if lit, ok := cond.Right.(*queryir.Literal); ok && !strings.HasPrefix(lit.Value, "$") {
			return nil, ir.NewSyntaxError(ir.ErrCodeInvalidOperand, rt, rpos,
				`json path must start with "$"`)
		}
	}

	c.declare(cond)
	return cond, nil
}

// findOperator returns the offset and symbol of the first operator outside
// atomic regions, or -1. JSON accessors (-> and ->>) are skipped.
func (c *compiler) findOperator(t string) (int, string, error) {
	for i := 0; i < len(t); {
		switch {
		case strings.HasPrefix(t[i:], "->>"):
			i += 3
			continue
		case strings.HasPrefix(t[i:], "->"):
			i += 2
			continue
		}
		for _, s := range queryir.Symbols {
			if strings.HasPrefix(t[i:], s) {
				return i, s, nil
			}
		}
		end, ok, err := c.scanner.Atomic(t, i)
		if err != nil {
			return 0, "", err
		}
		if ok {
			i = end
			continue
		}
		i++
	}
	return -1, "", nil
}

// reference resolves a ? compared with other into a parameter named after
// the column.
func (c *compiler) reference(other queryir.Operand, fragment string, pos int) (queryir.Operand, error) {
	col, ok := other.(*queryir.Column)
	if !ok {
		return nil, ir.NewSyntaxError(ir.ErrCodeAmbiguousReference, fragment, pos,
			"? must be compared with a column")
	}
	name := col.BareName()
	if !queryir.IsBareIdent(name) {
		return nil, ir.NewSyntaxError(ir.ErrCodeAmbiguousReference, fragment, pos,
			"? cannot name a parameter after column %q", name)
	}
	if c.refs[name] {
		return nil, ir.NewSyntaxError(ir.ErrCodeAmbiguousReference, fragment, pos,
			"column %s already has a ? reference", name)
	}
	c.refs[name] = true
	return &queryir.Parameter{Name: name}, nil
}

// declare registers the parameters of cond in textual order. A parameter on
// the right of an operator takes that operator's strategy; every other
// parameter is a plain string.
func (c *compiler) declare(cond *queryir.Condition) {
	plain := func(op queryir.Operand) {
		if p, ok := op.(*queryir.Parameter); ok {
			c.params.Declare(p.Name, querysql.PlainString, querysql.Both)
		}
	}
	queryir.WalkOperands(cond.Left, plain)
	if p, ok := cond.Right.(*queryir.Parameter); ok {
		c.params.Declare(p.Name, strategyFor(cond.Operator), querysql.SideFor(cond.Operator))
		return
	}
	queryir.WalkOperands(cond.Right, plain)
}

func strategyFor(op queryir.Operator) querysql.Strategy {
	switch op {
	case queryir.OpContains, queryir.OpStartsWith, queryir.OpEndsWith:
		return querysql.Wildcard
	case queryir.OpIn:
		return querysql.InSet
	case queryir.OpJSONPathExists:
		return querysql.JSONPath
	case queryir.OpJSONContains:
		return querysql.JSONObject
	default:
		return querysql.PlainString
	}
}

func connector(delim string) queryir.Connector {
	if delim == "|" {
		return queryir.Or
	}
	return queryir.And
}

// sourceLen is the length of the text a group's children were parsed from,
// counting the parentheses of nested groups.
func sourceLen(frags []tokenizer.Fragment) int {
	n := 0
	for _, f := range frags {
		switch f := f.(type) {
		case tokenizer.Leaf:
			n += len(f)
		case tokenizer.Group:
			n += sourceLen(f) + 2
		}
	}
	return n
}

// trimAt trims surrounding white space and moves pos past the leading part.
func trimAt(s string, pos int) (string, int) {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	pos += len(s) - len(trimmed)
	return strings.TrimRight(trimmed, " \t\r\n"), pos
}
