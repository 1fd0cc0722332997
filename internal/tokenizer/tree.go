package tokenizer

import "github.com/roach88/shorthand/internal/ir"

// TreeOptions controls ParseTree.
type TreeOptions struct {
	// GroupStart decides whether the "(" at pos opens a group. When it
	// returns false the bracket is left to Atomic, which keeps function
	// calls and value lists intact. Nil means every "(" opens a group.
	GroupStart func(text string, pos int) bool
}

// ParseTree builds a parenthesis tree from subject.
//
// Text outside group parentheses becomes Leaf fragments and the content of
// each group is parsed recursively into a Group. Quotes, custom matchers and
// the other configured bracket kinds stay atomic inside leaves. Nesting
// deeper than the scanner's MaxDepth is a SyntaxError.
func (s *Scanner) ParseTree(subject string, opts TreeOptions) ([]Fragment, error) {
	if err := s.checkLength(subject); err != nil {
		return nil, err
	}
	frags, err := s.parseTree(subject, opts, 0)
	if err != nil {
		return nil, err
	}
	return frags, nil
}

func (s *Scanner) parseTree(text string, opts TreeOptions, depth int) ([]Fragment, error) {
	if depth > s.limits.MaxDepth {
		return nil, ir.NewSyntaxError(ir.ErrCodeNestingTooDeep, text, 0,
			"group nesting exceeds %d levels", s.limits.MaxDepth)
	}

	var frags []Fragment
	start := 0
	for i := 0; i < len(text); {
		c := text[i]
		if c == '(' && (opts.GroupStart == nil || opts.GroupStart(text, i)) {
			end, err := scanPair(text, i, '(', ')', s.quotes, s.limits.MaxDepth)
			if err != nil {
				return nil, err
			}
			if start < i {
				frags = append(frags, Leaf(text[start:i]))
			}
			children, err := s.parseTree(text[i+1:end-1], opts, depth+1)
			if err != nil {
				return nil, ir.Offset(err, i+1)
			}
			frags = append(frags, Group(children))
			i = end
			start = i
			continue
		}

		end, ok, err := s.Atomic(text, i)
		if err != nil {
			return nil, err
		}
		if ok {
			i = end
			continue
		}
		if s.isCloser(c, s.brackets|Round) {
			return nil, unmatched(text, i)
		}
		i++
	}
	if start < len(text) {
		frags = append(frags, Leaf(text[start:]))
	}
	return frags, nil
}
