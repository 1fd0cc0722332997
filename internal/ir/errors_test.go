package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntaxErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *SyntaxError
		want string
	}{
		{
			name: "fragment and position",
			err:  NewSyntaxError(ErrCodeUnbalanced, "(a=1", 0, "unterminated %s", "bracket"),
			want: `syntax error UNBALANCED at 0 near "(a=1": unterminated bracket`,
		},
		{
			name: "fragment only",
			err:  NewSyntaxError(ErrCodeInvalidOperand, "a;b", -1, "unclassifiable operand"),
			want: `syntax error INVALID_OPERAND near "a;b": unclassifiable operand`,
		},
		{
			name: "bare",
			err:  NewSyntaxError(ErrCodeEmptyExpression, "", -1, "empty"),
			want: `syntax error EMPTY_EXPRESSION: empty`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorHelpersUnwrap(t *testing.T) {
	syntax := fmt.Errorf("compile where: %w", NewSyntaxError(ErrCodeUnknownOperator, "=>", 3, "unknown"))
	value := fmt.Errorf("render: %w", &ValueError{Code: CodeIncompatibleValue, Param: "kw", Message: "array"})

	assert.True(t, IsSyntaxError(syntax))
	assert.False(t, IsValueError(syntax))
	assert.Equal(t, ErrCodeUnknownOperator, SyntaxCode(syntax))

	assert.True(t, IsValueError(value))
	assert.False(t, IsSyntaxError(value))
	assert.Equal(t, CodeIncompatibleValue, ValueCode(value))
	assert.Equal(t, "INCOMPATIBLE_VALUE: array (param=kw)", errors.Unwrap(value).Error())

	assert.Empty(t, SyntaxCode(errors.New("plain")))
	assert.Empty(t, ValueCode(nil))
}

func TestOffset(t *testing.T) {
	err := NewSyntaxError(ErrCodeUnbalanced, ")", 3, "unmatched")

	moved := Offset(err, 10)
	var se *SyntaxError
	require.ErrorAs(t, moved, &se)
	assert.Equal(t, 13, se.Pos)
	assert.Equal(t, 3, err.Pos, "original is not modified")

	unknown := NewSyntaxError(ErrCodeInputTooLong, "", -1, "too long")
	assert.Same(t, unknown, Offset(unknown, 10))

	plain := errors.New("boom")
	assert.Equal(t, plain, Offset(plain, 10))
}

func TestOffsetKeepsWrapping(t *testing.T) {
	err := NewSyntaxError(ErrCodeUnbalanced, ")", 3, "unmatched")
	wrapped := fmt.Errorf("where: %w", err)

	moved := Offset(wrapped, 10)
	assert.Equal(t, `where: syntax error UNBALANCED at 13 near ")": unmatched`, moved.Error())
	var se *SyntaxError
	require.ErrorAs(t, moved, &se)
	assert.Equal(t, 13, se.Pos)

	// A cause formatted mid-message cannot be rebuilt.
	odd := fmt.Errorf("%w (while parsing)", err)
	assert.Same(t, odd, Offset(odd, 10))
}
