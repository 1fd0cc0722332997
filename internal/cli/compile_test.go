package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shorthand/internal/store"
)

const validCatalog = `
query: by_name: {
	from:  "users"
	where: "name*=:kw"
	params: {kw: "ann"}
}

query: customer_orders: {
	select: "o.id, c.name"
	from:   "orders.o-customers.c[customer_id]"
	where:  "o.status=:status"
	order:  ">o.created_at"
	limit: {start: 0, length: 10}
	params: {status: "open"}
}
`

// writeCatalog writes src as the only CUE file of a new directory.
func writeCatalog(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte("package test\n"+src), 0o644))
	return dir
}

func runCompileCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

type compileResponse struct {
	Status string            `json:"status"`
	Data   CompilationResult `json:"data"`
	Error  *CLIError         `json:"error"`
}

func TestCompileValidCatalog(t *testing.T) {
	dir := writeCatalog(t, validCatalog)

	output, err := runCompileCmd(t, &RootOptions{Format: "text"}, dir)
	require.NoError(t, err)

	assert.Contains(t, output, "✓ Compiled 2 query(s)")
	assert.Contains(t, output, "by_name:\n  SELECT * FROM users WHERE name LIKE '%ann%'")
	assert.Contains(t, output, "customer_orders:")
}

func TestCompileValidCatalogJSON(t *testing.T) {
	dir := writeCatalog(t, validCatalog)

	output, err := runCompileCmd(t, &RootOptions{Format: "json"}, dir)
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Queries, 2)

	q := resp.Data.Queries[0]
	assert.Equal(t, "by_name", q.Name)
	assert.Equal(t, "SELECT * FROM users WHERE name LIKE '%ann%'", q.SQL)
	assert.Equal(t, "SELECT * FROM users WHERE name LIKE :kw", q.Template)
	assert.Len(t, q.Fingerprint, 64)
	assert.Empty(t, q.BindSQL)
}

func TestCompileBind(t *testing.T) {
	dir := writeCatalog(t, `query: q: {from: "users", where: "name*=:kw", params: {kw: "ann"}}`)

	output, err := runCompileCmd(t, &RootOptions{Format: "json"}, dir, "--bind")
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Queries, 1)
	assert.Equal(t, "SELECT * FROM users WHERE name LIKE ?", resp.Data.Queries[0].BindSQL)
	assert.Equal(t, []any{"%ann%"}, resp.Data.Queries[0].Args)
}

func TestCompileUnassignedWarning(t *testing.T) {
	dir := writeCatalog(t, `query: q: {from: "users", where: "id=:id"}`)

	output, err := runCompileCmd(t, &RootOptions{Format: "text"}, dir)
	require.NoError(t, err)
	assert.Contains(t, output, "! unassigned: [id]")
}

func TestCompileOutputToFile(t *testing.T) {
	dir := writeCatalog(t, validCatalog)
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	output, err := runCompileCmd(t, &RootOptions{Format: "text"}, dir, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote compiled queries to")

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Queries, 2)
}

func TestCompileNonExistentDirectory(t *testing.T) {
	output, err := runCompileCmd(t, &RootOptions{Format: "text"}, "/nonexistent/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error [E005]")
}

func TestCompileEmptyDirectory(t *testing.T) {
	output, err := runCompileCmd(t, &RootOptions{Format: "text"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, output, "no CUE files found")
}

func TestCompileNoQueries(t *testing.T) {
	dir := writeCatalog(t, `other: 1`)

	output, err := runCompileCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, output, ErrCodeNoQueries)
}

func TestCompileInvalidQuery(t *testing.T) {
	dir := writeCatalog(t, `
query: good: {from: "users"}
query: bad: {select: "id"}
`)

	output, err := runCompileCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "✗ Compilation failed")
	assert.Contains(t, output, "E101")
	assert.Contains(t, output, "query.bad.from")
}

func TestCompileInvalidQueryJSON(t *testing.T) {
	dir := writeCatalog(t, `query: bad: {select: "id"}`)

	output, err := runCompileCmd(t, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E101", resp.Error.Code)
}

func TestCompileClauseSyntaxError(t *testing.T) {
	dir := writeCatalog(t, `query: q: {from: "users", where: "a==1"}`)

	output, err := runCompileCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, output, ErrCodeRenderFailed)
	assert.Contains(t, output, "query.q:")
}

func TestCompileVerboseOutput(t *testing.T) {
	dir := writeCatalog(t, validCatalog)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "Found 1 CUE file(s)")
	assert.Contains(t, stderr.String(), "Compiling query: by_name")
	assert.NotContains(t, stdout.String(), "Compiling query")
}

func TestCompileLogDB(t *testing.T) {
	dir := writeCatalog(t, validCatalog)
	dbPath := filepath.Join(t.TempDir(), "renders.db")

	output, err := runCompileCmd(t, &RootOptions{Format: "json"}, dir, "--log-db", dbPath)
	require.NoError(t, err)

	var first compileResponse
	require.NoError(t, json.Unmarshal([]byte(output), &first))
	require.Len(t, first.Data.Queries, 2)
	assert.Equal(t, int64(1), first.Data.Queries[0].Seq)
	assert.Equal(t, int64(2), first.Data.Queries[1].Seq)

	// Compiling the same catalog again records nothing new.
	output, err = runCompileCmd(t, &RootOptions{Format: "json"}, dir, "--log-db", dbPath)
	require.NoError(t, err)

	var second compileResponse
	require.NoError(t, json.Unmarshal([]byte(output), &second))
	assert.Equal(t, first.Data.Queries[0].Seq, second.Data.Queries[0].Seq)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	renders, err := st.ReadRenders(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, renders, 2)
	assert.Equal(t, "by_name", renders[0].Query)
	assert.Equal(t, "SELECT * FROM users WHERE name LIKE '%ann%'", renders[0].SQL)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package test"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("#"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.cue"), []byte("package test"), 0o644))

	files, err := FindCUEFiles(afero.NewOsFs(), dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"from", "E101"},
		{"limit", "E103"},
		{"limit.length", "E103"},
		{"cue", ErrCodeBuildFailed},
		{"where", ErrCodeInvalidField},
		{"params", ErrCodeInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
