package harness

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memScenarios(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	files := map[string]string{
		"s/b.yaml":        "name: b\ndescription: d\nquery: {from: users}\nexpect: {sql: \"SELECT * FROM users\"}\n",
		"s/a.yml":         "name: a\ndescription: d\nquery: {from: users, where: \"a==1\"}\nexpect: {error: UNKNOWN_OPERATOR}\n",
		"s/nested/c.yaml": "name: c\ndescription: d\nquery: {from: users}\nexpect: {sql: \"SELECT 1\"}\n",
		"s/broken.yaml":   "name: broken\nexpect: {}\n",
		"s/notes.txt":     "not a scenario",
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
	}
	return fsys
}

func TestDiscover(t *testing.T) {
	fsys := memScenarios(t)

	paths, err := Discover(fsys, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"s/a.yml", "s/b.yaml", "s/broken.yaml", "s/nested/c.yaml"}, paths)

	paths, err = Discover(fsys, "s/b.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"s/b.yaml"}, paths)

	_, err = Discover(fsys, "missing")
	assert.Error(t, err)
}

func TestRunAll(t *testing.T) {
	fsys := memScenarios(t)
	paths, err := Discover(fsys, "s")
	require.NoError(t, err)

	for _, parallel := range []int{0, 1, 4} {
		outcomes, err := RunAll(context.Background(), fsys, paths, Options{}, parallel)
		require.NoError(t, err)
		require.Len(t, outcomes, 4)

		for i, o := range outcomes {
			assert.Equal(t, paths[i], o.Path, "outcomes keep input order")
		}

		assert.True(t, outcomes[0].Result.Pass)
		assert.True(t, outcomes[1].Result.Pass)
		assert.Nil(t, outcomes[2].Result)
		assert.ErrorContains(t, outcomes[2].Err, "invalid scenario")
		assert.False(t, outcomes[3].Result.Pass)
	}
}

func TestRunAll_Cancelled(t *testing.T) {
	fsys := memScenarios(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunAll(ctx, fsys, []string{"s/b.yaml"}, Options{}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
