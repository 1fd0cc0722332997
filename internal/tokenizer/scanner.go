package tokenizer

import (
	"strings"

	"github.com/roach88/shorthand/internal/ir"
)

// Bracket is a set of bracket kinds, combined with |.
type Bracket uint8

const (
	// Round is ( ).
	Round Bracket = 1 << iota
	// Square is [ ].
	Square
	// Curly is { }.
	Curly
	// Angle is < >.
	Angle
)

// DefaultQuotes are the quote characters recognized unless Options says otherwise.
const DefaultQuotes = "'\"`"

var bracketPairs = []struct {
	kind        Bracket
	open, close byte
}{
	{Round, '(', ')'},
	{Square, '[', ']'},
	{Curly, '{', '}'},
	{Angle, '<', '>'},
}

// Limits bound the input a Scanner accepts.
type Limits struct {
	// MaxDepth is the deepest bracket or group nesting accepted.
	MaxDepth int
	// MaxLength is the longest subject accepted, in bytes.
	MaxLength int
}

// DefaultLimits apply when Options.Limits is zero.
var DefaultLimits = Limits{MaxDepth: 64, MaxLength: 64 * 1024}

// Options configures a Scanner.
type Options struct {
	// Brackets are the bracket kinds treated as atomic regions.
	Brackets Bracket

	// Quotes are the quote characters. Empty means DefaultQuotes.
	Quotes string

	// Matchers are custom atomic regions, checked before quotes and brackets.
	Matchers []Matcher

	// Limits bound nesting and length. Zero fields take DefaultLimits.
	Limits Limits
}

// Scanner classifies atomic regions and splits text around them.
// A Scanner is immutable and safe for concurrent use.
type Scanner struct {
	brackets Bracket
	quotes   string
	matchers []Matcher
	limits   Limits
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	s := &Scanner{
		brackets: opts.Brackets,
		quotes:   opts.Quotes,
		matchers: append([]Matcher(nil), opts.Matchers...),
		limits:   opts.Limits,
	}
	if s.quotes == "" {
		s.quotes = DefaultQuotes
	}
	if s.limits.MaxDepth <= 0 {
		s.limits.MaxDepth = DefaultLimits.MaxDepth
	}
	if s.limits.MaxLength <= 0 {
		s.limits.MaxLength = DefaultLimits.MaxLength
	}
	return s
}

// Limits returns the effective limits.
func (s *Scanner) Limits() Limits {
	return s.limits
}

// Atomic reports whether an atomic region starts at pos and where it ends
// (exclusive). Custom matchers are tried first, then quotes, then the
// configured bracket kinds. An atomic region that starts at pos but never
// ends is a SyntaxError.
func (s *Scanner) Atomic(text string, pos int) (int, bool, error) {
	for _, m := range s.matchers {
		end, ok, err := m.Match(text, pos)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return end, true, nil
		}
	}

	c := text[pos]
	if strings.IndexByte(s.quotes, c) >= 0 {
		end, err := scanQuote(text, pos)
		if err != nil {
			return 0, false, err
		}
		return end, true, nil
	}

	for _, p := range bracketPairs {
		if s.brackets&p.kind != 0 && c == p.open {
			end, err := scanPair(text, pos, p.open, p.close, s.quotes, s.limits.MaxDepth)
			if err != nil {
				return 0, false, err
			}
			return end, true, nil
		}
	}
	return 0, false, nil
}

// isCloser reports whether c closes one of the configured bracket kinds.
func (s *Scanner) isCloser(c byte, kinds Bracket) bool {
	for _, p := range bracketPairs {
		if kinds&p.kind != 0 && c == p.close {
			return true
		}
	}
	return false
}

func (s *Scanner) checkLength(subject string) error {
	if len(subject) > s.limits.MaxLength {
		return ir.NewSyntaxError(ir.ErrCodeInputTooLong, "", -1,
			"input of %d bytes exceeds %d", len(subject), s.limits.MaxLength)
	}
	return nil
}

func unmatched(text string, pos int) error {
	return ir.NewSyntaxError(ir.ErrCodeUnbalanced, text[pos:], pos,
		"unmatched closing %c", text[pos])
}
