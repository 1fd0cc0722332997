package tokenizer

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shorthand/internal/ir"
)

// notAfterIdentifier reports whether the bracket at pos opens a group rather
// than a function call.
func notAfterIdentifier(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	c := text[pos-1]
	return !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9')
}

func TestParseTree(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		opts    TreeOptions
		want    []Fragment
	}{
		{
			name:    "flat",
			subject: "a=1,b=2",
			want:    []Fragment{Leaf("a=1,b=2")},
		},
		{
			name:    "one group",
			subject: "a=1,(b=2|c=3)",
			want:    []Fragment{Leaf("a=1,"), Group{Leaf("b=2|c=3")}},
		},
		{
			name:    "nested groups",
			subject: "(a,(b|c)),d",
			want: []Fragment{
				Group{Leaf("a,"), Group{Leaf("b|c")}},
				Leaf(",d"),
			},
		},
		{
			name:    "empty group",
			subject: "()",
			want:    []Fragment{Group(nil)},
		},
		{
			name:    "quoted paren is not a group",
			subject: "a='(',(b)",
			want:    []Fragment{Leaf("a='(',"), Group{Leaf("b")}},
		},
		{
			name:    "function call stays in leaf",
			subject: "f(x)=1,(a)",
			opts:    TreeOptions{GroupStart: notAfterIdentifier},
			want:    []Fragment{Leaf("f(x)=1,"), Group{Leaf("a")}},
		},
		{
			name:    "square region stays in leaf",
			subject: "a[(x)]-(b)",
			opts:    TreeOptions{GroupStart: notAfterIdentifier},
			want:    []Fragment{Leaf("a[(x)]-"), Group{Leaf("b")}},
		},
	}

	s := newTestScanner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ParseTree(tt.subject, tt.opts)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTree(%q) mismatch (-want +got):\n%s", tt.subject, diff)
			}
		})
	}
}

func TestParseTreeNestingFidelity(t *testing.T) {
	s := newTestScanner()
	for n := 1; n <= 8; n++ {
		subject := "x=1," + strings.Repeat("(", n) + "a=1|b=2" + strings.Repeat(")", n)

		frags, err := s.ParseTree(subject, TreeOptions{})
		require.NoError(t, err)
		assert.Equal(t, n, Depth(frags), "depth for n=%d", n)
		assert.Equal(t, "x=1,a=1|b=2", Flatten(frags))
	}
}

func TestParseTreeErrors(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		code    ir.SyntaxErrorCode
		pos     int
	}{
		{"unterminated group", "(a", ir.ErrCodeUnbalanced, 0},
		{"unmatched close", "a)", ir.ErrCodeUnbalanced, 1},
		{"quote inside group", "x,(a='b)", ir.ErrCodeUnterminatedQuote, 5},
		{"inner error position", "x,(a])", ir.ErrCodeUnbalanced, 4},
		{"deep inner error", "((a]))", ir.ErrCodeUnbalanced, 3},
	}

	s := newTestScanner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ParseTree(tt.subject, TreeOptions{})
			require.Error(t, err)

			var se *ir.SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.pos, se.Pos)
		})
	}
}

func TestParseTreeDepthLimit(t *testing.T) {
	s := New(Options{Brackets: Square, Limits: Limits{MaxDepth: 3}})

	_, err := s.ParseTree("(((a)))", TreeOptions{})
	require.NoError(t, err)

	_, err = s.ParseTree("((((a))))", TreeOptions{})
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeNestingTooDeep, ir.SyntaxCode(err))
}

func TestFlattenAndDepth(t *testing.T) {
	frags := []Fragment{Leaf("a"), Group{Leaf("b"), Group{Leaf("c")}}, Leaf("d")}
	assert.Equal(t, "abcd", Flatten(frags))
	assert.Equal(t, 2, Depth(frags))
	assert.Equal(t, 0, Depth([]Fragment{Leaf("x")}))
	assert.Equal(t, "", Flatten(nil))
}

func TestPatternRegistry(t *testing.T) {
	a := Pattern(`^\d+$`)
	b := Pattern(`^\d+$`)
	assert.Same(t, a, b)

	_, err := CompilePattern(`(`)
	assert.Error(t, err)
	assert.Panics(t, func() { Pattern(`[`) })
}

func TestPatternRegistryConcurrent(t *testing.T) {
	const workers = 16
	results := make([]any, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			re, err := CompilePattern(`^concurrent-[a-z]+$`)
			if err == nil {
				results[i] = re
			}
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, results[0], results[i])
	}
}
