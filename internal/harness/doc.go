// Package harness runs shorthand conformance scenarios.
//
// A scenario compiles one statement, assigns parameter values and compares
// the result with expectations. Scenarios are YAML files:
//
//	name: contains_keyword
//	description: contains operator wraps the keyword
//	query:
//	  from: users
//	  where: "name*=:kw"
//	forks:                 # optional, table -> nested statement
//	  latest: {from: orders, group: customer_id}
//	params: {kw: ann}
//	expect:
//	  sql: "SELECT * FROM users WHERE name LIKE '%ann%'"
//	  template: "SELECT * FROM users WHERE name LIKE :kw"   # optional
//	  bind:                                                 # optional
//	    sql: "SELECT * FROM users WHERE name LIKE ?"
//	    args: ["%ann%"]
//	check:                 # optional SQLite prepare check
//	  schema: ["CREATE TABLE users (id INTEGER, name TEXT)"]
//	assertions:            # optional
//	  - type: contains
//	    text: "LIKE"
//
// A scenario that expects compilation to fail names the error code instead of
// the SQL:
//
//	expect:
//	  error: UNKNOWN_OPERATOR
//
// # Assertion Types
//
//   - contains: the rendered SQL contains text
//   - not_contains: the rendered SQL does not contain text
//   - arg_count: Bind produced exactly count arguments
//   - unassigned: the parameters left without a value are exactly names
//
// # Checks
//
// The prepare check prepares the Bind form of the statement against an
// in-memory SQLite database built from check.schema (see store.Check). Nothing
// is executed. Using placeholders keeps MySQL string escapes out of SQLite's
// way.
//
// # Golden Files
//
// Snapshot renders a result as text; RunWithGolden compares it with
// testdata/golden/<name>.golden through goldie, and CompareGolden does the
// same on an afero filesystem for the CLI.
//
// # Usage
//
//	paths, err := harness.Discover(afero.NewOsFs(), "scenarios")
//	results, err := harness.RunAll(ctx, afero.NewOsFs(), paths, harness.Options{}, 4)
package harness
