package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/shorthand/internal/compiler"
	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/statement"
	"github.com/roach88/shorthand/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	LogDB  string // render log database
	Bind   bool   // include placeholder SQL and arguments
}

// CompiledQuery is one rendered catalog query.
type CompiledQuery struct {
	Name        string   `json:"name"`
	SQL         string   `json:"sql"`
	Template    string   `json:"template"`
	Fingerprint string   `json:"fingerprint"`
	BindSQL     string   `json:"bind_sql,omitempty"`
	Args        []any    `json:"args,omitempty"`
	Unassigned  []string `json:"unassigned,omitempty"`
	Seq         int64    `json:"seq,omitempty"`

	values ir.IRObject
}

// CompilationResult holds the rendered queries of a catalog.
type CompilationResult struct {
	Queries []CompiledQuery `json:"queries"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <catalog-dir>",
		Short: "Compile a CUE query catalog to SQL",
		Long: `Compile every query a CUE catalog declares and print its SQL.

Each query is rendered with its params spliced in, as a :name template and,
with --bind, as ? placeholders with driver arguments. With --log-db every
rendering is recorded in a SQLite render log.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.LogDB, "log-db", "", "record renders in this SQLite database")
	cmd.Flags().BoolVar(&opts.Bind, "bind", false, "include placeholder SQL and arguments")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, catalogDir string, cmd *cobra.Command) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	// Use shared loader
	loadResult, loadErrors := LoadCatalog(opts.fs(), catalogDir)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, catalogDir)

	errs := loadErrors
	result, buildErrs := compileCatalog(loadResult.Catalog, opts.statementOptions(), opts.Bind, formatter)
	errs = append(errs, buildErrs...)

	// Handle compilation errors
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	logDB := opts.LogDB
	if logDB == "" && opts.Config != nil {
		logDB = opts.Config.LogDB
	}
	if logDB != "" {
		if err := recordRenders(ctx, opts.RootOptions, logDB, result, formatter); err != nil {
			return outputCompileError(formatter, ErrCodeStoreFailed, err.Error(), nil)
		}
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeResultToFile(opts.fs(), result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	// Output success
	return outputCompileSuccess(formatter, result, opts.Output)
}

// compileCatalog builds and renders every query of c in name order.
func compileCatalog(c *compiler.Catalog, sopts statement.Options, bind bool, formatter *OutputFormatter) (*CompilationResult, []error) {
	result := &CompilationResult{Queries: []CompiledQuery{}}
	var errs []error

	for _, name := range c.Names() {
		formatter.VerboseLog("Compiling query: %s", name)

		q, err := renderQuery(c, name, sopts, bind)
		if err != nil {
			errs = append(errs, &LoadError{
				Code:    ErrCodeRenderFailed,
				Message: fmt.Sprintf("query.%s: %v", name, err),
			})
			continue
		}
		result.Queries = append(result.Queries, *q)
	}
	return result, errs
}

func renderQuery(c *compiler.Catalog, name string, sopts statement.Options, bind bool) (*CompiledQuery, error) {
	s, err := c.Build(name, sopts)
	if err != nil {
		return nil, err
	}
	sql, err := s.Render()
	if err != nil {
		return nil, err
	}
	tmpl, err := s.Template()
	if err != nil {
		return nil, err
	}
	fp, err := s.Fingerprint()
	if err != nil {
		return nil, err
	}

	q := &CompiledQuery{
		Name:        name,
		SQL:         sql,
		Template:    tmpl,
		Fingerprint: fp,
		Unassigned:  s.Unassigned(),
		values:      s.Values(),
	}
	if bind {
		if q.BindSQL, q.Args, err = s.Bind(); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// recordRenders writes every query of result to the render log at path and
// fills in the seq each was recorded under.
func recordRenders(ctx context.Context, opts *RootOptions, path string, result *CompilationResult, formatter *OutputFormatter) error {
	st, err := store.Open(path, store.WithLogger(opts.log()))
	if err != nil {
		return fmt.Errorf("open render log: %w", err)
	}
	defer st.Close()

	for i := range result.Queries {
		q := &result.Queries[i]

		seen, err := st.Fingerprints(ctx, q.Name)
		if err != nil {
			return err
		}
		if len(seen) > 0 && !slices.Contains(seen, q.Fingerprint) {
			formatter.VerboseLog("Query %s changed shape since its last render", q.Name)
		}

		r, err := store.NewRender(q.Name, q.Fingerprint, q.Template, q.SQL, q.values)
		if err != nil {
			return err
		}
		if q.Seq, err = st.WriteRender(ctx, r); err != nil {
			return err
		}
		formatter.VerboseLog("Recorded %s as render %d", q.Name, q.Seq)
	}
	return nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	w := formatter.Writer
	fmt.Fprintln(w, formatter.Pass(fmt.Sprintf("Compiled %d query(s)", len(result.Queries))))
	fmt.Fprintln(w)

	for _, q := range result.Queries {
		fmt.Fprintf(w, "%s:\n  %s\n", q.Name, q.SQL)
		if q.BindSQL != "" {
			args, _ := json.Marshal(q.Args)
			fmt.Fprintf(w, "  bind: %s\n  args: %s\n", q.BindSQL, args)
		}
		if len(q.Unassigned) > 0 {
			fmt.Fprintln(w, "  "+formatter.Warn(fmt.Sprintf("unassigned: %v", q.Unassigned)))
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled queries to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, formatter.Fail("Compilation failed"))
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeResultToFile writes the compilation result to a file as indented JSON.
func writeResultToFile(fs afero.Fs, result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if err := afero.WriteFile(fs, filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
