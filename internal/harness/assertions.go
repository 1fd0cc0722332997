package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Rendered SQL for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "  SQL: %s\n", e.SQL)
	}
	return buf.String()
}

func assertContains(r *Result, a Assertion) error {
	if strings.Contains(r.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("SQL containing %q", a.Text),
		Actual:   "not found",
		SQL:      r.SQL,
	}
}

func assertNotContains(r *Result, a Assertion) error {
	if !strings.Contains(r.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("SQL without %q", a.Text),
		Actual:   "found",
		SQL:      r.SQL,
	}
}

func assertArgCount(r *Result, a Assertion) error {
	if len(r.Args) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d bind arguments", a.Count),
		Actual:   fmt.Sprintf("%d bind arguments", len(r.Args)),
		SQL:      r.BindSQL,
	}
}

func assertUnassigned(r *Result, a Assertion) error {
	want := slices.Clone(a.Names)
	slices.Sort(want)
	if slices.Equal(want, r.Unassigned) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("unassigned %v", want),
		Actual:   fmt.Sprintf("unassigned %v", r.Unassigned),
	}
}

// EvaluateAssertions runs every assertion against result and returns one
// message per failure, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertContains:
			err = assertContains(result, a)
		case AssertNotContains:
			err = assertNotContains(result, a)
		case AssertArgCount:
			err = assertArgCount(result, a)
		case AssertUnassigned:
			err = assertUnassigned(result, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errors
}
