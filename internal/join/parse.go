package join

import (
	"strings"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/queryir"
	"github.com/roach88/shorthand/internal/querysql"
	"github.com/roach88/shorthand/internal/tokenizer"
	"github.com/roach88/shorthand/internal/where"
)

// symbolExpr matches the join symbols, longest first.
const symbolExpr = `<<|>>|<|>|-|\*`

const identExpr = "`[^`]+`|[A-Za-z_][A-Za-z0-9_]*"

var (
	elementPattern = tokenizer.Pattern(`(?s)^(` + identExpr + `)` +
		`(?:\.(?:(` + identExpr + `)|\{\$([A-Za-z_][A-Za-z0-9_]*)\}))?` +
		`\s*(\[.*\])?$`)
	aliasPattern  = tokenizer.Pattern(`^<\s*(` + identExpr + `)\s*>`)
	columnPattern = tokenizer.Pattern(`^(?:` + identExpr + `)$`)
)

type compiler struct {
	scanner *tokenizer.Scanner
	params  *querysql.Params
	limits  tokenizer.Limits
}

func newCompiler(params *querysql.Params, limits tokenizer.Limits) *compiler {
	return &compiler{
		scanner: tokenizer.New(tokenizer.Options{
			Brackets: tokenizer.Round | tokenizer.Square | tokenizer.Curly,
			Limits:   limits,
		}),
		params: params,
		limits: limits,
	}
}

func (c *compiler) compile(chain string) (*queryir.JoinTree, error) {
	if strings.TrimSpace(chain) == "" {
		return nil, ir.NewSyntaxError(ir.ErrCodeMissingTable, "", -1, "empty join chain")
	}
	frags, err := c.scanner.ParseTree(chain, tokenizer.TreeOptions{GroupStart: groupStart})
	if err != nil {
		return nil, err
	}
	tree, err := c.buildTree(frags, 0)
	if err != nil {
		return nil, err
	}
	if err := queryir.CheckJoin(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// groupStart reports whether the "(" at pos opens a sub-chain: it must start
// the chain or follow a join symbol.
func groupStart(text string, pos int) bool {
	prev := strings.TrimRight(text[:pos], " \t\r\n")
	if prev == "" {
		return true
	}
	return strings.IndexByte("<>-*(", prev[len(prev)-1]) >= 0
}

// element collects the text of one chain element: a table reference, or a
// group followed by an optional condition.
type element struct {
	text string
	pos  int

	group    tokenizer.Group
	groupPos int
	hasGroup bool

	suffix    string
	suffixPos int
}

func (e *element) add(text string, pos int) {
	if e.hasGroup {
		if e.suffix == "" {
			e.suffixPos = pos
		}
		e.suffix += text
		return
	}
	if e.text == "" {
		e.pos = pos
	}
	e.text += text
}

// link is the join symbol in front of an element.
type link struct {
	symbol string
	pos    int
}

// buildTree turns one level of the parenthesis tree into a JoinTree. base is
// the offset of frags within the chain.
func (c *compiler) buildTree(frags []tokenizer.Fragment, base int) (*queryir.JoinTree, error) {
	tree := &queryir.JoinTree{}
	cur := &element{pos: base}
	var before link
	pos := base

	flush := func(end int, next string) error {
		if !cur.hasGroup && cur.text == "" {
			cur.pos = end
		}
		step, err := c.finish(tree, cur, before, next)
		if err != nil {
			return err
		}
		tree.Steps = append(tree.Steps, step)
		return nil
	}

	for _, f := range frags {
		switch f := f.(type) {
		case tokenizer.Leaf:
			pieces, err := c.scanner.Split(string(f), symbolExpr, tokenizer.SplitOptions{KeepDelimiters: true})
			if err != nil {
				return nil, ir.Offset(err, pos)
			}
			p := pos
			for i, piece := range pieces {
				if i%2 == 0 {
					cur.add(piece, p)
				} else {
					if err := flush(p, piece); err != nil {
						return nil, err
					}
					before = link{symbol: piece, pos: p}
					cur = &element{pos: p + len(piece)}
				}
				p += len(piece)
			}
			pos += len(f)

		case tokenizer.Group:
			if cur.hasGroup {
				return nil, ir.NewSyntaxError(ir.ErrCodeUnknownJoin, "(", pos,
					"expected a join symbol before group")
			}
			cur.group = f
			cur.groupPos = pos
			cur.hasGroup = true
			pos += groupLen(f) + 2
		}
	}
	if err := flush(pos, ""); err != nil {
		return nil, err
	}
	return tree, nil
}

// finish turns a collected element into a step. next is the join symbol
// that ended the element, "" at the end of the chain.
func (c *compiler) finish(tree *queryir.JoinTree, cur *element, before link, next string) (queryir.JoinStep, error) {
	var step queryir.JoinStep
	if len(tree.Steps) > 0 {
		jt, ok := queryir.LookupJoin(before.symbol)
		if !ok {
			return step, ir.NewSyntaxError(ir.ErrCodeUnknownJoin, before.symbol, before.pos,
				"unknown join %q", before.symbol)
		}
		step.Edge = &queryir.JoinEdge{Type: jt}
	}

	var cond string
	var condPos int
	if cur.hasGroup {
		sub, err := c.buildTree(cur.group, cur.groupPos+1)
		if err != nil {
			return step, err
		}
		step.Node = sub
		cond, condPos = trimAt(cur.suffix, cur.suffixPos)
		if cond != "" && (cond[0] != '[' || !c.wholeAtomic(cond)) {
			return step, ir.NewSyntaxError(ir.ErrCodeInvalidTable, cond, condPos,
				"unexpected text after group")
		}
	} else {
		t, tpos := trimAt(cur.text, cur.pos)
		if t == "" {
			return step, missing(before, next, cur.pos)
		}
		ref, text, at, err := c.parseTable(t, tpos)
		if err != nil {
			return step, err
		}
		step.Node = ref
		cond, condPos = text, at
	}

	if cond == "" {
		return step, nil
	}
	if step.Edge == nil {
		return step, ir.NewSyntaxError(ir.ErrCodeForbiddenCondition, cond, condPos,
			"the first element of a chain cannot carry a condition")
	}
	if step.Edge.Type == queryir.Cross {
		return step, ir.NewSyntaxError(ir.ErrCodeForbiddenCondition, cond, condPos,
			"a cross join cannot carry a condition")
	}

	against := ""
	if prev, ok := tree.Steps[len(tree.Steps)-1].Node.(*queryir.TableRef); ok {
		against = prev.RefName()
	}
	jc, err := c.parseCondition(cond, condPos, step.Node, against)
	if err != nil {
		return step, err
	}
	step.Edge.Condition = jc
	return step, nil
}

// missing builds the error for an element with no text.
func missing(before link, next string, pos int) error {
	switch {
	case before.symbol != "" && next != "":
		return ir.NewSyntaxError(ir.ErrCodeUnknownJoin, before.symbol+next, before.pos,
			"unknown join %q", before.symbol+next)
	case before.symbol != "":
		return ir.NewSyntaxError(ir.ErrCodeMissingTable, before.symbol, before.pos,
			"join %q has no table after it", before.symbol)
	case next != "":
		return ir.NewSyntaxError(ir.ErrCodeMissingTable, next, pos,
			"chain starts with join %q", next)
	default:
		return ir.NewSyntaxError(ir.ErrCodeMissingTable, "", pos, "empty group")
	}
}

// parseTable parses name[.alias|.{$key}][condition]. It returns the
// condition text (brackets included) and its offset, "" when absent.
func (c *compiler) parseTable(t string, pos int) (*queryir.TableRef, string, int, error) {
	m := elementPattern.FindStringSubmatchIndex(t)
	if m == nil {
		head := t
		if i := strings.IndexByte(head, '['); i >= 0 {
			head = head[:i]
		}
		if strings.ContainsAny(head, "+=!|&~^%/") {
			return nil, "", 0, ir.NewSyntaxError(ir.ErrCodeUnknownJoin, t, pos,
				"unknown join symbol in %q", head)
		}
		return nil, "", 0, ir.NewSyntaxError(ir.ErrCodeInvalidTable, t, pos,
			"malformed table reference")
	}

	ref := &queryir.TableRef{Name: t[m[2]:m[3]]}
	if m[4] >= 0 {
		ref.Alias = t[m[4]:m[5]]
	}
	if m[6] >= 0 {
		ref.Override = t[m[6]:m[7]]
	}
	if m[8] < 0 {
		return ref, "", 0, nil
	}

	cond := t[m[8]:m[9]]
	if !c.wholeAtomic(cond) {
		return nil, "", 0, ir.NewSyntaxError(ir.ErrCodeInvalidTable, cond, pos+m[8],
			"a table takes a single condition")
	}
	return ref, cond, pos + m[8], nil
}

// parseCondition parses a bracketed join condition. against is the reference
// name of the preceding table, "" when the preceding element is a group.
func (c *compiler) parseCondition(text string, pos int, node queryir.JoinNode, against string) (queryir.JoinCondition, error) {
	inner, ipos := trimAt(text[1:len(text)-1], pos+1)
	if inner == "" {
		return nil, ir.NewSyntaxError(ir.ErrCodeInvalidColumn, text, pos, "empty join condition")
	}

	switch inner[0] {
	case '?':
		w, err := where.Compile(inner[1:], where.Options{Params: c.params, Limits: c.limits})
		if err != nil {
			return nil, ir.Offset(err, ipos+1)
		}
		return &queryir.On{Tree: w.Tree()}, nil

	case ':':
		cols, err := c.columns(inner[1:], ipos+1, true)
		if err != nil {
			return nil, err
		}
		return &queryir.Using{Columns: cols}, nil
	}

	if _, ok := node.(*queryir.TableRef); !ok {
		return nil, ir.NewSyntaxError(ir.ErrCodeForbiddenCondition, text, pos,
			"shorthand equality needs a table, not a group")
	}
	rest, rpos := inner, ipos
	if m := aliasPattern.FindStringSubmatchIndex(rest); m != nil {
		against = rest[m[2]:m[3]]
		rest, rpos = rest[m[1]:], rpos+m[1]
	}
	if against == "" {
		return nil, ir.NewSyntaxError(ir.ErrCodeInvalidColumn, text, pos,
			"shorthand equality after a group needs an explicit <alias>")
	}
	cols, err := c.columns(rest, rpos, false)
	if err != nil {
		return nil, err
	}
	return &queryir.Equality{Columns: cols, Against: against}, nil
}

// columns splits a comma-separated column list. With bare set only unquoted
// identifiers are accepted.
func (c *compiler) columns(text string, pos int, bare bool) ([]string, error) {
	parts, err := c.scanner.Split(text, `,`, tokenizer.SplitOptions{})
	if err != nil {
		return nil, ir.Offset(err, pos)
	}
	cols := make([]string, 0, len(parts))
	p := pos
	for _, part := range parts {
		col, cpos := trimAt(part, p)
		p += len(part) + 1
		switch {
		case col == "":
			return nil, ir.NewSyntaxError(ir.ErrCodeInvalidColumn, text, pos, "empty column name")
		case bare && !queryir.IsBareIdent(col):
			return nil, ir.NewSyntaxError(ir.ErrCodeInvalidColumn, col, cpos,
				"USING accepts bare identifiers only")
		case !bare && !columnPattern.MatchString(col):
			return nil, ir.NewSyntaxError(ir.ErrCodeInvalidColumn, col, cpos,
				"invalid column name")
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (c *compiler) wholeAtomic(text string) bool {
	end, ok, err := c.scanner.Atomic(text, 0)
	return err == nil && ok && end == len(text)
}

// groupLen is the length of the text a group's children were parsed from.
func groupLen(frags []tokenizer.Fragment) int {
	n := 0
	for _, f := range frags {
		switch f := f.(type) {
		case tokenizer.Leaf:
			n += len(f)
		case tokenizer.Group:
			n += groupLen(f) + 2
		}
	}
	return n
}

func trimAt(s string, pos int) (string, int) {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	pos += len(s) - len(trimmed)
	return strings.TrimRight(trimmed, " \t\r\n"), pos
}
