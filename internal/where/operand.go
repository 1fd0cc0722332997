package where

import (
	"strings"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/queryir"
	"github.com/roach88/shorthand/internal/tokenizer"
)

const identExpr = "`[^`]+`|[A-Za-z_][A-Za-z0-9_]*"

var (
	columnPattern = tokenizer.Pattern(`^(` + identExpr + `)(?:\.(` + identExpr + `))?` +
		`(?:\s*(->>?)\s*('(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"))?$`)
	parameterPattern = tokenizer.Pattern(`^:([A-Za-z_][A-Za-z0-9_]*)$`)
	numberPattern    = tokenizer.Pattern(`^[-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?$`)
	functionPattern  = tokenizer.Pattern(`^([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	rawPattern       = tokenizer.Pattern("^[\\w.`]+(?:\\s*[-+*/%]\\s*[\\w.`]+)+$")
)

// keywords are bare words that are values, not columns.
var keywords = map[string]bool{"NULL": true, "TRUE": true, "FALSE": true}

// classify determines the operand kind of text, trying each kind in order:
// column, quoted literal, parameter, raw command, number, function call,
// value list, raw arithmetic. pos is the offset of text in the expression.
func (c *compiler) classify(text string, pos int) (queryir.Operand, error) {
	if keywords[strings.ToUpper(text)] {
		return &queryir.Raw{Text: strings.ToUpper(text)}, nil
	}

	if m := columnPattern.FindStringSubmatch(text); m != nil {
		col := &queryir.Column{Name: m[1]}
		if m[2] != "" {
			col.Table, col.Name = m[1], m[2]
		}
		if m[3] != "" {
			col.Path = m[4]
			col.Unquote = m[3] == "->>"
		}
		return col, nil
	}

	if q := text[0]; q == '\'' || q == '"' {
		if c.wholeAtomic(text) {
			return &queryir.Literal{Value: unescape(text[1 : len(text)-1]), Quote: q}, nil
		}
	}

	if m := parameterPattern.FindStringSubmatch(text); m != nil {
		return &queryir.Parameter{Name: m[1]}, nil
	}

	if strings.HasPrefix(text, "{?") && c.wholeAtomic(text) {
		return &queryir.Command{SQL: strings.TrimSpace(text[2 : len(text)-1])}, nil
	}

	if numberPattern.MatchString(text) {
		return &queryir.Number{Text: text}, nil
	}

	if loc := functionPattern.FindStringSubmatchIndex(text); loc != nil {
		open := loc[1] - 1
		end, ok, err := c.scanner.Atomic(text, open)
		if err != nil {
			return nil, ir.Offset(err, pos)
		}
		if ok && end == len(text) {
			args, err := c.items(text[open+1:end-1], pos+open+1)
			if err != nil {
				return nil, err
			}
			return &queryir.Function{Name: text[loc[2]:loc[3]], Args: args}, nil
		}
	}

	if text[0] == '(' && c.wholeAtomic(text) {
		items, err := c.items(text[1:len(text)-1], pos+1)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, ir.NewSyntaxError(ir.ErrCodeInvalidOperand, text, pos, "empty value list")
		}
		return &queryir.List{Items: items}, nil
	}

	if text == "*" || rawPattern.MatchString(text) {
		return &queryir.Raw{Text: text}, nil
	}

	return nil, ir.NewSyntaxError(ir.ErrCodeInvalidOperand, text, pos, "unrecognized operand")
}

// wholeAtomic reports whether text is exactly one atomic region.
func (c *compiler) wholeAtomic(text string) bool {
	end, ok, err := c.scanner.Atomic(text, 0)
	return err == nil && ok && end == len(text)
}

// items classifies the comma-separated operands of a function call or value
// list. An empty inner text has no items.
func (c *compiler) items(inner string, pos int) ([]queryir.Operand, error) {
	if strings.TrimSpace(inner) == "" {
		return nil, nil
	}
	parts, err := c.scanner.Split(inner, `,`, tokenizer.SplitOptions{})
	if err != nil {
		return nil, ir.Offset(err, pos)
	}

	items := make([]queryir.Operand, 0, len(parts))
	p := pos
	for _, part := range parts {
		t, tpos := trimAt(part, p)
		if t == "" {
			return nil, ir.NewSyntaxError(ir.ErrCodeEmptyExpression, inner, pos, "empty list item")
		}
		op, err := c.classify(t, tpos)
		if err != nil {
			return nil, err
		}
		items = append(items, op)
		p += len(part) + 1
	}
	return items, nil
}

// unescape resolves backslash escapes inside a quoted literal.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '0':
			b.WriteByte(0)
		case 'Z':
			b.WriteByte(0x1a)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
