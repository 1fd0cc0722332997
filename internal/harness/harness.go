package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/statement"
	"github.com/roach88/shorthand/internal/store"
	"github.com/roach88/shorthand/internal/tokenizer"
)

// Options configures scenario execution.
type Options struct {
	// Limits bound every clause. Zero fields take tokenizer.DefaultLimits.
	Limits tokenizer.Limits

	// Logger receives per-scenario debug records. Nil discards them.
	Logger *slog.Logger

	// Store, when set, records every passing render.
	Store *store.Store
}

// Result is the outcome of one scenario.
type Result struct {
	Name string

	// Pass is false when any expectation, check or assertion failed.
	Pass bool

	SQL         string
	Template    string
	BindSQL     string
	Args        []any
	Fingerprint string

	// ErrorCode is the code of the SyntaxError or ValueError the statement
	// failed with, or "".
	ErrorCode string

	// Unassigned lists the parameters left without a value.
	Unassigned []string

	// Errors describes every failed expectation.
	Errors []string
}

// NewResult creates a passing Result for the named scenario.
func NewResult(name string) *Result {
	return &Result{Name: name, Pass: true}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Run compiles the scenario's statement, assigns its parameters and compares
// the renderings with the expectations.
//
// A returned error means the scenario could not be executed at all; a
// statement that fails to compile is a result, passing only when the
// scenario expects that error.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("scenario", scenario.Name)

	result := NewResult(scenario.Name)

	stmt, err := build(scenario, opts)
	if err == nil {
		err = render(stmt, result)
	}
	if err != nil {
		result.ErrorCode = errorCode(err)
		logger.Debug("statement failed", "code", result.ErrorCode, "error", err)
		compareError(scenario, result, err)
		return result, nil
	}

	logger.Debug("statement rendered", "sql", result.SQL, "args", len(result.Args))

	if scenario.Expect.Error != "" {
		result.AddError(fmt.Sprintf("expected error %s, statement compiled to: %s", scenario.Expect.Error, result.SQL))
		return result, nil
	}

	compareRendering(scenario, result)

	if scenario.Check != nil {
		if err := store.Check(ctx, scenario.Check.Schema, result.BindSQL); err != nil {
			result.AddError(fmt.Sprintf("check: %v", err))
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	if opts.Store != nil && result.Pass {
		r, err := store.NewRender(scenario.Name, result.Fingerprint, result.Template, result.SQL, stmt.Values())
		if err != nil {
			return nil, err
		}
		seq, err := opts.Store.WriteRender(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("record render: %w", err)
		}
		logger.Debug("render recorded", "id", r.ID, "seq", seq)
	}

	return result, nil
}

// build compiles the statement and its forks and assigns the parameters.
func build(scenario *Scenario, opts Options) (*statement.Statement, error) {
	stmt, err := statement.New(scenario.Query, statement.Options{Limits: opts.Limits, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(scenario.Forks))
	for table := range scenario.Forks {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		fork, err := stmt.Fork(table)
		if err != nil {
			return nil, err
		}
		def := scenario.Forks[table]
		if def.From == "" {
			def.From = table
		}
		if err := fork.Apply(def); err != nil {
			return nil, fmt.Errorf("fork %s: %w", table, err)
		}
	}

	if err := stmt.AssignAll(scenario.Params); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	return stmt, nil
}

// render fills the renderings of stmt into result.
func render(stmt *statement.Statement, result *Result) error {
	var err error
	if result.SQL, err = stmt.Render(); err != nil {
		return err
	}
	if result.Template, err = stmt.Template(); err != nil {
		return err
	}
	if result.BindSQL, result.Args, err = stmt.Bind(); err != nil {
		return err
	}
	result.Fingerprint = ir.StatementFingerprint(result.Template)
	result.Unassigned = stmt.Unassigned()
	return nil
}

func errorCode(err error) string {
	if code := ir.SyntaxCode(err); code != "" {
		return string(code)
	}
	if code := ir.ValueCode(err); code != "" {
		return string(code)
	}
	return ""
}

func compareError(scenario *Scenario, result *Result, err error) {
	switch {
	case scenario.Expect.Error == "":
		result.AddError(fmt.Sprintf("unexpected error: %v", err))
	case result.ErrorCode != scenario.Expect.Error:
		result.AddError(fmt.Sprintf("expected error %s, got: %v", scenario.Expect.Error, err))
	}
}

func compareRendering(scenario *Scenario, result *Result) {
	expect := scenario.Expect
	if result.SQL != expect.SQL {
		result.AddError(fmt.Sprintf("sql mismatch:\n  expected: %s\n  actual:   %s", expect.SQL, result.SQL))
	}
	if expect.Template != "" && result.Template != expect.Template {
		result.AddError(fmt.Sprintf("template mismatch:\n  expected: %s\n  actual:   %s", expect.Template, result.Template))
	}
	if expect.Bind == nil {
		return
	}
	if result.BindSQL != expect.Bind.SQL {
		result.AddError(fmt.Sprintf("bind sql mismatch:\n  expected: %s\n  actual:   %s", expect.Bind.SQL, result.BindSQL))
	}
	if !argsEqual(result.Args, expect.Bind.Args) {
		result.AddError(fmt.Sprintf("bind args mismatch:\n  expected: %s\n  actual:   %s",
			formatArgs(expect.Bind.Args), formatArgs(result.Args)))
	}
}

// argsEqual compares argument lists through their canonical JSON, so the
// ints YAML decodes compare equal to the int64 values Bind produces.
func argsEqual(actual, expected []any) bool {
	if len(actual) != len(expected) {
		return false
	}
	a, errA := ir.MarshalCanonical(normalizeArgs(actual))
	e, errE := ir.MarshalCanonical(normalizeArgs(expected))
	if errA != nil || errE != nil {
		return false
	}
	return bytes.Equal(a, e)
}

func normalizeArgs(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

func formatArgs(args []any) string {
	data, err := ir.MarshalCanonical(normalizeArgs(args))
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}
