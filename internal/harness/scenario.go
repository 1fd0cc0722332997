package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roach88/shorthand/internal/statement"
)

// Scenario defines a conformance test scenario: one statement, its parameter
// values and what it must compile to.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Query holds the shorthand clauses.
	Query statement.Definition `yaml:"query"`

	// Forks replaces tables of the join chain with nested statements, keyed
	// by table name. A fork without from selects from its table.
	Forks map[string]statement.Definition `yaml:"forks,omitempty"`

	// Params are assigned after compilation, in key order.
	Params map[string]any `yaml:"params,omitempty"`

	// Expect is what the statement must compile to.
	Expect Expect `yaml:"expect"`

	// Check optionally prepares the statement against SQLite.
	Check *Check `yaml:"check,omitempty"`

	// Assertions are extra checks on the result.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// Expect specifies the expected outcome. Exactly one of SQL and Error is set.
type Expect struct {
	// SQL is the spliced rendering.
	SQL string `yaml:"sql,omitempty"`

	// Template is the rendering with :name parameters. Optional.
	Template string `yaml:"template,omitempty"`

	// Bind is the placeholder rendering and its arguments. Optional.
	Bind *BindExpect `yaml:"bind,omitempty"`

	// Error is the SyntaxError or ValueError code compilation, assignment or
	// rendering must fail with.
	Error string `yaml:"error,omitempty"`
}

// BindExpect is the expected output of Statement.Bind.
type BindExpect struct {
	SQL  string `yaml:"sql"`
	Args []any  `yaml:"args"`
}

// Check describes the SQLite prepare check.
type Check struct {
	// Schema statements create the tables the statement reads.
	Schema []string `yaml:"schema"`
}

// Assertion validates one property of the result.
type Assertion struct {
	// Type is one of contains, not_contains, arg_count, unassigned.
	Type string `yaml:"type"`

	// Text is the substring for contains and not_contains.
	Text string `yaml:"text,omitempty"`

	// Count is the argument count for arg_count.
	Count int `yaml:"count,omitempty"`

	// Names are the unassigned parameter names for unassigned.
	Names []string `yaml:"names,omitempty"`
}

// Assertion type constants.
const (
	AssertContains    = "contains"
	AssertNotContains = "not_contains"
	AssertArgCount    = "arg_count"
	AssertUnassigned  = "unassigned"
)

// LoadScenario reads and parses a scenario YAML file from fs.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(fs afero.Fs, path string) (*Scenario, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Expect.SQL == "" && s.Expect.Error == "":
		return fmt.Errorf("expect: one of sql or error is required")
	case s.Expect.SQL != "" && s.Expect.Error != "":
		return fmt.Errorf("expect: sql and error are mutually exclusive")
	case s.Expect.Error != "" && (s.Expect.Template != "" || s.Expect.Bind != nil):
		return fmt.Errorf("expect: template and bind need sql, not error")
	}

	if s.Check != nil {
		if s.Expect.Error != "" {
			return fmt.Errorf("check: a failing scenario cannot be checked")
		}
		if len(s.Check.Schema) == 0 {
			return fmt.Errorf("check: schema is required")
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertContains, AssertNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertArgCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for arg_count", index)
		}
	case AssertUnassigned:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
