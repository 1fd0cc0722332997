// Package config loads CLI settings from shorthand.yaml, SHORTHAND_*
// environment variables and a .env file.
//
// Precedence, highest first: values set explicitly on the Loader (flags),
// environment, config file, defaults. A .env file in the working directory
// is loaded into the environment first and never overrides variables that
// are already set; .env.local does override them.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/roach88/shorthand/internal/tokenizer"
)

// Keys understood in shorthand.yaml and, upper-cased with a SHORTHAND_
// prefix, in the environment.
const (
	KeyFormat    = "format"
	KeyVerbose   = "verbose"
	KeyMaxDepth  = "max_depth"
	KeyMaxLength = "max_length"
	KeyParallel  = "parallel"
	KeyGoldenDir = "golden_dir"
	KeyLogDB     = "log_db"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "SHORTHAND"

// FileName is the config file searched for in the working directory.
const FileName = "shorthand"

// Config holds the resolved settings.
type Config struct {
	Format    string
	Verbose   bool
	Limits    tokenizer.Limits
	Parallel  int
	GoldenDir string

	// LogDB is the SQLite render log path. Empty disables the log.
	LogDB string

	// File is the config file that was read, or "".
	File string
}

// Loader reads configuration. Create one per command invocation.
type Loader struct {
	fs afero.Fs
	v  *viper.Viper
}

// NewLoader creates a Loader reading files from fs.
func NewLoader(fs afero.Fs) *Loader {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyMaxDepth, tokenizer.DefaultLimits.MaxDepth)
	v.SetDefault(KeyMaxLength, tokenizer.DefaultLimits.MaxLength)
	v.SetDefault(KeyParallel, 4)
	v.SetDefault(KeyGoldenDir, "testdata/golden")
	v.SetDefault(KeyLogDB, "")

	return &Loader{fs: fs, v: v}
}

// Set overrides key, as a command-line flag does.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Load resolves the configuration. path names an explicit config file; when
// empty, shorthand.yaml is looked up in the working directory and its
// absence is not an error.
func (l *Loader) Load(path string) (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	if path != "" {
		l.v.SetConfigFile(path)
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Format:  l.v.GetString(KeyFormat),
		Verbose: l.v.GetBool(KeyVerbose),
		Limits: tokenizer.Limits{
			MaxDepth:  l.v.GetInt(KeyMaxDepth),
			MaxLength: l.v.GetInt(KeyMaxLength),
		},
		Parallel:  l.v.GetInt(KeyParallel),
		GoldenDir: l.v.GetString(KeyGoldenDir),
		LogDB:     l.v.GetString(KeyLogDB),
		File:      l.v.ConfigFileUsed(),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadDotEnv() error {
	load := func(name string, apply func(map[string]string) error) error {
		exists, err := afero.Exists(l.fs, name)
		if err != nil || !exists {
			return err
		}
		f, err := l.fs.Open(name)
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer f.Close()
		env, err := godotenv.Parse(f)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		return apply(env)
	}

	if err := load(".env", func(env map[string]string) error { return setEnv(env, false) }); err != nil {
		return err
	}
	return load(".env.local", func(env map[string]string) error { return setEnv(env, true) })
}

func (c *Config) validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q: must be one of [text json]", c.Format)
	}
	if c.Limits.MaxDepth <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyMaxDepth, c.Limits.MaxDepth)
	}
	if c.Limits.MaxLength <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyMaxLength, c.Limits.MaxLength)
	}
	if c.Parallel <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyParallel, c.Parallel)
	}
	return nil
}
