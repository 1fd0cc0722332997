package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shorthand/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Queries  int                        `json:"queries"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a query catalog without rendering it",
		Long: `Validate every query of a CUE catalog.

Reports clause syntax errors with their offset, invalid limits, params no
clause declares, forks of tables missing from the join chain, unresolved
{$name} overrides and queries that use each other as tables. Parameters
left without a value are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, catalogDir string, cmd *cobra.Command) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadCatalog(opts.fs(), catalogDir)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, catalogDir)

	result := ValidationResult{Queries: loadResult.Catalog.Len()}

	// Queries that failed to compile never reach Validate.
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		result.Errors = append(result.Errors, compiler.ValidationError{
			Field:   "load",
			Message: message,
			Code:    code,
		})
	}

	for _, name := range loadResult.Catalog.Names() {
		formatter.VerboseLog("Validating query: %s", name)
	}
	for _, ve := range compiler.Validate(loadResult.Catalog, opts.statementOptions()) {
		if ve.Warning {
			result.Warnings = append(result.Warnings, ve)
		} else {
			result.Errors = append(result.Errors, ve)
		}
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, w := range result.Warnings {
		fmt.Fprintln(formatter.Writer, formatter.Warn(w.Error()))
	}
	fmt.Fprintln(formatter.Writer, formatter.Pass(fmt.Sprintf("All %d query(s) valid", result.Queries)))
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, formatter.Fail("Validation failed"))
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Query != "" {
			fmt.Fprintf(formatter.Writer, "query.%s.%s\n", err.Query, err.Field)
		}
		if err.Pos > 0 {
			fmt.Fprintf(formatter.Writer, "  %s at %d: %s\n\n", err.Code, err.Pos, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(formatter.Writer, formatter.Warn(w.Error()))
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateCatalogDir validates all queries in a directory.
// This is a helper function for external callers.
func ValidateCatalogDir(opts *RootOptions, catalogDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadCatalog(opts.fs(), catalogDir)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	if len(loadErrors) > 0 {
		return nil, errors.Join(loadErrors...)
	}
	return compiler.Validate(loadResult.Catalog, opts.statementOptions()), nil
}
