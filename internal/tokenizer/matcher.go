package tokenizer

import (
	"strings"

	"github.com/roach88/shorthand/internal/ir"
)

// Matcher recognizes a custom atomic region starting at pos.
//
// Matchers are consulted before quotes and brackets. Match returns the end
// offset (exclusive) when a region starts at pos. A matcher that recognizes
// the start of its region but cannot find the end reports a SyntaxError.
type Matcher interface {
	Match(text string, pos int) (end int, ok bool, err error)
}

// TokenMatcher treats a fixed token as atomic, e.g. "|=" so that the "|" in
// it is never taken as a delimiter.
type TokenMatcher struct {
	Token string
}

// Match implements Matcher.
func (m TokenMatcher) Match(text string, pos int) (int, bool, error) {
	if m.Token != "" && strings.HasPrefix(text[pos:], m.Token) {
		return pos + len(m.Token), true, nil
	}
	return 0, false, nil
}

// PatternMatcher treats a regular-expression match at pos as atomic.
// The expression is anchored at pos automatically.
type PatternMatcher struct {
	Expr string
}

// Match implements Matcher.
func (m PatternMatcher) Match(text string, pos int) (int, bool, error) {
	re, err := anchored(m.Expr)
	if err != nil {
		return 0, false, err
	}
	loc := re.FindStringIndex(text[pos:])
	if loc == nil || loc[1] == 0 {
		return 0, false, nil
	}
	return pos + loc[1], true, nil
}

// CommandMatcher recognizes raw SQL commands written as {?...}. Braces nest
// and quoted strings inside the command are skipped.
type CommandMatcher struct{}

// Match implements Matcher.
func (CommandMatcher) Match(text string, pos int) (int, bool, error) {
	if !strings.HasPrefix(text[pos:], "{?") {
		return 0, false, nil
	}
	end, err := scanPair(text, pos, '{', '}', DefaultQuotes, DefaultLimits.MaxDepth)
	if err != nil {
		return 0, false, err
	}
	return end, true, nil
}

// scanQuote returns the offset just past the quote that closes the one at
// pos. A backslash escapes the character after it.
func scanQuote(text string, pos int) (int, error) {
	q := text[pos]
	for i := pos + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case q:
			return i + 1, nil
		}
	}
	return 0, ir.NewSyntaxError(ir.ErrCodeUnterminatedQuote, text[pos:], pos,
		"unterminated %c quote", q)
}

// scanPair returns the offset just past the bracket that closes the one at
// pos. Only brackets of the same kind are counted; quoted strings inside are
// skipped whole.
func scanPair(text string, pos int, open, shut byte, quotes string, maxDepth int) (int, error) {
	depth := 0
	for i := pos; i < len(text); i++ {
		c := text[i]
		switch {
		case strings.IndexByte(quotes, c) >= 0:
			end, err := scanQuote(text, i)
			if err != nil {
				return 0, err
			}
			i = end - 1
		case c == open:
			depth++
			if maxDepth > 0 && depth > maxDepth {
				return 0, ir.NewSyntaxError(ir.ErrCodeNestingTooDeep, text[pos:], pos,
					"%c%c nesting exceeds %d levels", open, shut, maxDepth)
			}
		case c == shut:
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, ir.NewSyntaxError(ir.ErrCodeUnbalanced, text[pos:], pos,
		"unterminated %c bracket", open)
}
