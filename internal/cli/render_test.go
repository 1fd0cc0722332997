package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shorthand/internal/statement"
)

func runRenderCmd(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRenderCommand(opts)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRenderText(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			"plain table",
			[]string{"--from", "users"},
			"SELECT * FROM users\n",
		},
		{
			"contains with param",
			[]string{"--from", "users", "--where", "name*=:kw", "--param", "kw=ann"},
			"SELECT * FROM users WHERE name LIKE '%ann%'\n",
		},
		{
			"json number param",
			[]string{"--from", "users", "--where", "age>:age", "--param", "age=18"},
			"SELECT * FROM users WHERE age > 18\n",
		},
		{
			"limit",
			[]string{"--from", "users", "--limit", "20,10"},
			"SELECT * FROM users LIMIT 20, 10\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := runRenderCmd(t, &RootOptions{Format: "text"}, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestRenderBind(t *testing.T) {
	stdout, _, err := runRenderCmd(t, &RootOptions{Format: "text"},
		"--from", "users", "--where", "name*=:kw", "--param", "kw=ann", "--bind")
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM users WHERE name LIKE '%ann%'\nSELECT * FROM users WHERE name LIKE ?\nargs: [\"%ann%\"]\n",
		stdout)
}

func TestRenderJSON(t *testing.T) {
	stdout, _, err := runRenderCmd(t, &RootOptions{Format: "json"},
		"--from", "users", "--where", "name*=:kw,id=:id", "--param", "kw=ann")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "SELECT * FROM users WHERE name LIKE :kw AND id = :id", resp.Data.Template)
	assert.Equal(t, []string{"id"}, resp.Data.Unassigned)
	assert.Len(t, resp.Data.Fingerprint, 64)
}

func TestRenderUnassignedWarning(t *testing.T) {
	_, stderr, err := runRenderCmd(t, &RootOptions{Format: "text"}, "--from", "users", "--where", "id=:id")
	require.NoError(t, err)
	assert.Contains(t, stderr, "! unassigned: id")
}

func TestRenderSyntaxError(t *testing.T) {
	stdout, _, err := runRenderCmd(t, &RootOptions{Format: "json"}, "--from", "users", "--where", "a==1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRenderFailed, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "syntax", details["kind"])
}

func TestRenderMissingFrom(t *testing.T) {
	_, _, err := runRenderCmd(t, &RootOptions{Format: "text"}, "--where", "id=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from")
}

func TestRenderBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"limit not a number", []string{"--from", "t", "--limit", "a,b"}},
		{"param without value", []string{"--from", "t", "--param", "kw"}},
		{"param given twice", []string{"--from", "t", "--param", "a=1", "--param", "a=2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := runRenderCmd(t, &RootOptions{Format: "text"}, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, ErrCodeInvalidFlag)
		})
	}
}

func TestParseLimitFlag(t *testing.T) {
	tests := []struct {
		in   string
		want statement.Limit
	}{
		{"10", statement.Limit{Start: 0, Length: 10}},
		{"5,10", statement.Limit{Start: 5, Length: 10}},
		{" 5 , 10 ", statement.Limit{Start: 5, Length: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLimitFlag(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseParamValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"ann", "ann"},
		{`"quoted"`, "quoted"},
		{"18", json.Number("18")},
		{"true", true},
		{"null", nil},
		{"[1,2]", []any{json.Number("1"), json.Number("2")}},
		{"1 2", "1 2"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseParamValue(tt.raw))
		})
	}
}
