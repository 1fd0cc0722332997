package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/shorthand/internal/config"
	"github.com/roach88/shorthand/internal/statement"
	"github.com/roach88/shorthand/internal/tokenizer"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	MaxDepth   int
	MaxLength  int

	// Fs is the filesystem for scenarios, golden files and -o output. CUE
	// itself always reads catalogs from the OS. Nil means the OS filesystem.
	Fs afero.Fs

	// Config is resolved before any subcommand runs. Commands built directly,
	// as in tests, see nil and fall back to the flag values.
	Config *config.Config

	// Color enables colored ✓/✗ marks in text output.
	Color bool

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the shorthand CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "shorthand",
		Short: "shorthand - compact SQL shorthand compiler",
		Long: `Compile shorthand WHERE expressions and join chains into SQL.

  name*='ann',age>18            name LIKE '%ann%' AND age > 18
  orders.o-customers.c[id]      orders AS o JOIN customers AS c ON o.id = c.id`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./shorthand.yaml)")
	flags.IntVar(&opts.MaxDepth, "max-depth", tokenizer.DefaultLimits.MaxDepth, "deepest bracket nesting accepted")
	flags.IntVar(&opts.MaxLength, "max-length", tokenizer.DefaultLimits.MaxLength, "longest clause accepted, in bytes")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve layers the changed flags over the config file and environment.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	loader := config.NewLoader(o.fs())
	flags := cmd.Flags()
	if flags.Changed("format") {
		loader.Set(config.KeyFormat, o.Format)
	}
	if flags.Changed("verbose") {
		loader.Set(config.KeyVerbose, o.Verbose)
	}
	if flags.Changed("max-depth") {
		loader.Set(config.KeyMaxDepth, o.MaxDepth)
	}
	if flags.Changed("max-length") {
		loader.Set(config.KeyMaxLength, o.MaxLength)
	}

	cfg, err := loader.Load(o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.Config = cfg
	o.Format = cfg.Format
	o.Verbose = cfg.Verbose
	o.MaxDepth = cfg.Limits.MaxDepth
	o.MaxLength = cfg.Limits.MaxLength
	o.logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if out, ok := cmd.OutOrStdout().(*os.File); ok && out == os.Stdout {
		o.Color = !color.NoColor
	}
	if cfg.File != "" {
		o.logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

func (o *RootOptions) fs() afero.Fs {
	if o.Fs == nil {
		return afero.NewOsFs()
	}
	return o.Fs
}

func (o *RootOptions) statementOptions() statement.Options {
	return statement.Options{
		Limits: tokenizer.Limits{MaxDepth: o.MaxDepth, MaxLength: o.MaxLength},
		Logger: o.log(),
	}
}

func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.logger
}

// newLogger returns a text logger on w at Debug level when verbose and one
// that only reports warnings otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
		Color:     o.Color,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// checkFormat rejects an unknown --format on commands built without the root.
func checkFormat(format string) error {
	if !isValidFormat(format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", format, ValidFormats))
	}
	return nil
}
