package statement

import (
	"strings"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/tokenizer"
)

// Order is one ORDER BY entry.
type Order struct {
	Expr string
	Desc bool
}

// String renders the entry with its direction.
func (o Order) String() string {
	if o.Desc {
		return o.Expr + " DESC"
	}
	return o.Expr + " ASC"
}

func newListScanner(limits tokenizer.Limits) *tokenizer.Scanner {
	return tokenizer.New(tokenizer.Options{
		Brackets: tokenizer.Round | tokenizer.Square | tokenizer.Curly,
		Limits:   limits,
	})
}

// splitList splits a comma-separated list, keeping commas inside brackets
// and quotes. A blank list has no items; a blank item is a SyntaxError.
func splitList(s *tokenizer.Scanner, list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parts, err := s.Split(list, `,`, tokenizer.SplitOptions{})
	if err != nil {
		return nil, err
	}

	items := make([]string, 0, len(parts))
	pos := 0
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			return nil, ir.NewSyntaxError(ir.ErrCodeEmptyExpression, list, pos, "empty list item")
		}
		items = append(items, item)
		pos += len(part) + 1
	}
	return items, nil
}

// parseOrder parses ORDER BY items. A leading ">" sorts descending and a
// leading "<" ascending; without a sigil the order is ascending.
func parseOrder(s *tokenizer.Scanner, list string) ([]Order, error) {
	items, err := splitList(s, list)
	if err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(items))
	for _, item := range items {
		o := Order{Expr: item}
		switch item[0] {
		case '>':
			o.Desc = true
			o.Expr = strings.TrimSpace(item[1:])
		case '<':
			o.Expr = strings.TrimSpace(item[1:])
		}
		if o.Expr == "" {
			return nil, ir.NewSyntaxError(ir.ErrCodeEmptyExpression, item, -1, "order item has no expression")
		}
		orders = append(orders, o)
	}
	return orders, nil
}
