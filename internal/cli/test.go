package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/shorthand/internal/harness"
	"github.com/roach88/shorthand/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	Parallel  int    // scenarios in flight
	GoldenDir string // golden file directory
	LogDB     string // render log database
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Pass        bool     `json:"pass"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run rendering scenarios",
		Long: `Run YAML rendering scenarios and compare them with golden files.

Each scenario builds one statement, renders it and checks the SQL, the
template, the placeholder form or the expected error code. A scenario with
a check section is also prepared against an in-memory SQLite schema. When a
scenario has a golden file it must match it as well.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  shorthand test ./scenarios
  shorthand test ./scenarios --filter "order_*"
  shorthand test ./scenarios --update
  shorthand test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "scenarios run at once (default from config)")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory (default from config)")
	cmd.Flags().StringVar(&opts.LogDB, "log-db", "", "record passing renders in this SQLite database")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	fsys := opts.fs()

	if exists, _ := afero.Exists(fsys, scenariosDir); !exists {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	paths, err := harness.Discover(fsys, scenariosDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	paths, err = filterScenarios(paths, opts.Filter)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	if len(paths) == 0 {
		if formatter.Format == "json" {
			return outputTestJSON(formatter, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	hopts := harness.Options{
		Limits: opts.statementOptions().Limits,
		Logger: opts.log(),
	}
	if logDB := opts.logDB(); logDB != "" {
		st, err := store.Open(logDB, store.WithLogger(opts.log()))
		if err != nil {
			return outputCompileError(formatter, ErrCodeStoreFailed, fmt.Sprintf("open render log: %v", err), nil)
		}
		defer st.Close()
		hopts.Store = st
	}

	formatter.VerboseLog("Running %d scenario(s) from %s", len(paths), scenariosDir)
	outcomes, err := harness.RunAll(ctx, fsys, paths, hopts, opts.parallel())
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario run interrupted", err)
	}

	goldenDir := opts.goldenDir()
	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(outcomes)),
		Total:     len(outcomes),
	}
	for _, o := range outcomes {
		sr := scenarioResult(fsys, o, goldenDir, opts.Update)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if formatter.Format != "json" {
			printScenario(formatter, sr, opts.Update)
		}
	}

	if formatter.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// scenarioResult folds the golden comparison into one outcome. A scenario
// without a golden file is judged on its expectations alone.
func scenarioResult(fsys afero.Fs, o harness.Outcome, goldenDir string, update bool) ScenarioResult {
	if o.Err != nil {
		return ScenarioResult{
			Name:   strings.TrimSuffix(filepath.Base(o.Path), filepath.Ext(o.Path)),
			Path:   o.Path,
			Errors: []string{o.Err.Error()},
		}
	}

	r := o.Result
	sr := ScenarioResult{
		Name:        r.Name,
		Path:        o.Path,
		Pass:        r.Pass,
		Fingerprint: r.Fingerprint,
		Errors:      r.Errors,
	}

	// Only passing scenarios become golden files.
	if update && !r.Pass {
		return sr
	}
	if !update {
		if exists, _ := afero.Exists(fsys, harness.GoldenPath(goldenDir, r.Name)); !exists {
			return sr
		}
	}

	match, err := harness.CompareGolden(fsys, goldenDir, r, update)
	switch {
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("golden comparison failed: %v", err))
	case !match:
		sr.Pass = false
		sr.Errors = append(sr.Errors, "rendering does not match golden file (run with --update to regenerate)")
	}
	return sr
}

// filterScenarios keeps the paths whose file name, without extension,
// matches pattern.
func filterScenarios(paths []string, pattern string) ([]string, error) {
	if pattern == "" {
		return paths, nil
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid filter pattern %q: %v", pattern, err)
	}
	var kept []string
	for _, p := range paths {
		base := filepath.Base(p)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if ok, _ := filepath.Match(pattern, name); ok {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func (o *TestOptions) parallel() int {
	if o.Parallel > 0 {
		return o.Parallel
	}
	if o.Config != nil && o.Config.Parallel > 0 {
		return o.Config.Parallel
	}
	return 4
}

func (o *TestOptions) goldenDir() string {
	if o.GoldenDir != "" {
		return o.GoldenDir
	}
	if o.Config != nil && o.Config.GoldenDir != "" {
		return o.Config.GoldenDir
	}
	return filepath.Join("testdata", "golden")
}

func (o *TestOptions) logDB() string {
	if o.LogDB != "" {
		return o.LogDB
	}
	if o.Config != nil {
		return o.Config.LogDB
	}
	return ""
}

func printScenario(formatter *OutputFormatter, sr ScenarioResult, update bool) {
	w := formatter.Writer
	if sr.Pass {
		if update {
			fmt.Fprintln(w, formatter.Pass(sr.Name+" (golden updated)"))
		} else {
			fmt.Fprintln(w, formatter.Pass(sr.Name))
		}
		return
	}
	fmt.Fprintln(w, formatter.Fail(sr.Name))
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := formatter.Respond(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, formatter.Pass("All scenarios passed"))
	return nil
}
