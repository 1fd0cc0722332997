package ir

import (
	"errors"
	"fmt"
	"strings"
)

// SyntaxError reports a grammar violation in a shorthand expression.
//
// Every tokenizer, where-clause and join-chain failure is a SyntaxError.
// Compilation aborts on the first one; no partial SQL is ever produced.
type SyntaxError struct {
	// Code identifies the error category.
	Code SyntaxErrorCode

	// Message is a human-readable description.
	Message string

	// Fragment is the offending piece of input.
	Fragment string

	// Pos is the byte offset of Fragment within the input it was found in.
	// -1 when the position is not known.
	Pos int
}

// SyntaxErrorCode categorizes syntax errors.
type SyntaxErrorCode string

const (
	// ErrCodeUnbalanced indicates an unterminated or unmatched bracket.
	ErrCodeUnbalanced SyntaxErrorCode = "UNBALANCED"

	// ErrCodeUnterminatedQuote indicates a quote with no closing partner.
	ErrCodeUnterminatedQuote SyntaxErrorCode = "UNTERMINATED_QUOTE"

	// ErrCodeUnknownOperator indicates an operator sequence that is not in the table.
	ErrCodeUnknownOperator SyntaxErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeInvalidOperand indicates an operand that fits no operand kind.
	ErrCodeInvalidOperand SyntaxErrorCode = "INVALID_OPERAND"

	// ErrCodeAmbiguousReference indicates misuse of the ? reference shorthand.
	ErrCodeAmbiguousReference SyntaxErrorCode = "AMBIGUOUS_REFERENCE"

	// ErrCodeForbiddenCondition indicates a condition where none is allowed.
	ErrCodeForbiddenCondition SyntaxErrorCode = "FORBIDDEN_CONDITION"

	// ErrCodeMissingTable indicates a join symbol with no table after it.
	ErrCodeMissingTable SyntaxErrorCode = "MISSING_TABLE"

	// ErrCodeUnknownJoin indicates a join symbol sequence that is not recognized.
	ErrCodeUnknownJoin SyntaxErrorCode = "UNKNOWN_JOIN"

	// ErrCodeInvalidTable indicates a malformed table reference.
	ErrCodeInvalidTable SyntaxErrorCode = "INVALID_TABLE"

	// ErrCodeInvalidColumn indicates a malformed column list entry.
	ErrCodeInvalidColumn SyntaxErrorCode = "INVALID_COLUMN"

	// ErrCodeNestingTooDeep indicates bracket nesting beyond the configured limit.
	ErrCodeNestingTooDeep SyntaxErrorCode = "NESTING_TOO_DEEP"

	// ErrCodeInputTooLong indicates input beyond the configured length limit.
	ErrCodeInputTooLong SyntaxErrorCode = "INPUT_TOO_LONG"

	// ErrCodeEmptyExpression indicates an empty term, element or clause.
	ErrCodeEmptyExpression SyntaxErrorCode = "EMPTY_EXPRESSION"
)

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	switch {
	case e.Fragment != "" && e.Pos >= 0:
		return fmt.Sprintf("syntax error %s at %d near %q: %s", e.Code, e.Pos, e.Fragment, e.Message)
	case e.Fragment != "":
		return fmt.Sprintf("syntax error %s near %q: %s", e.Code, e.Fragment, e.Message)
	}
	return fmt.Sprintf("syntax error %s: %s", e.Code, e.Message)
}

// NewSyntaxError creates a SyntaxError.
func NewSyntaxError(code SyntaxErrorCode, fragment string, pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Fragment: fragment,
		Pos:      pos,
	}
}

// Offset moves the position of the SyntaxError in err by base. Use it when
// the error was found in a substring starting at base. Errors that are not
// SyntaxErrors, or have no position, are returned unchanged.
//
// A wrapped SyntaxError keeps the text its wrappers added in front of it.
// Wrappers that format the cause anywhere but at the end are returned
// unchanged.
func Offset(err error, base int) error {
	var se *SyntaxError
	if base == 0 || !errors.As(err, &se) || se.Pos < 0 {
		return err
	}
	moved := *se
	moved.Pos += base
	if err == error(se) {
		return &moved
	}
	prefix, ok := strings.CutSuffix(err.Error(), se.Error())
	if !ok {
		return err
	}
	return fmt.Errorf("%s%w", prefix, &moved)
}

// ValueError reports a parameter value that cannot be used where it was
// assigned. It surfaces at assign time for unsupported Go types and at render
// time for values incompatible with the slot's escaping strategy.
type ValueError struct {
	// Code identifies the error category.
	Code ValueErrorCode

	// Param is the parameter (or override) name involved, if any.
	Param string

	// Message is a human-readable description.
	Message string
}

// ValueErrorCode categorizes value errors.
type ValueErrorCode string

const (
	// CodeIncompatibleValue indicates a value its slot's strategy cannot escape.
	CodeIncompatibleValue ValueErrorCode = "INCOMPATIBLE_VALUE"

	// CodeUnsupportedType indicates a Go value with no IRValue equivalent.
	CodeUnsupportedType ValueErrorCode = "UNSUPPORTED_TYPE"

	// CodeUnknownParameter indicates an assign to a name no compiler declared.
	CodeUnknownParameter ValueErrorCode = "UNKNOWN_PARAMETER"

	// CodeUnresolvedOverride indicates a {$name} table override with no source.
	CodeUnresolvedOverride ValueErrorCode = "UNRESOLVED_OVERRIDE"
)

// Error implements the error interface.
func (e *ValueError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param=%s)", e.Code, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSyntaxError returns true if err is or wraps a SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsValueError returns true if err is or wraps a ValueError.
func IsValueError(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}

// SyntaxCode returns the code of the SyntaxError in err's chain, or "".
func SyntaxCode(err error) SyntaxErrorCode {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ValueCode returns the code of the ValueError in err's chain, or "".
func ValueCode(err error) ValueErrorCode {
	var ve *ValueError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
