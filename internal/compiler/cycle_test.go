package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shorthand/internal/statement"
)

func catalogOf(froms map[string]string) *Catalog {
	c := &Catalog{}
	for _, name := range sortedKeys(froms) {
		c.Add(&Query{Name: name, Definition: statement.Definition{From: froms[name]}})
	}
	return c
}

func TestAnalyzeCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(nil))
	assert.Empty(t, AnalyzeCycles(&Catalog{}))
}

func TestAnalyzeCycles_DAG(t *testing.T) {
	c := catalogOf(map[string]string{
		"a": "t-x.{$b}[id]-y.{$c}[id]",
		"b": "u-z.{$c}[id]",
		"c": "v",
	})
	assert.Empty(t, AnalyzeCycles(c))
}

func TestAnalyzeCycles_SelfReference(t *testing.T) {
	c := catalogOf(map[string]string{"a": "t-x.{$a}[id]"})

	cycles := AnalyzeCycles(c)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "a"}, cycles[0].Path)
	assert.Contains(t, cycles[0].Message, "uses itself")
}

func TestAnalyzeCycles_ThreeQueries(t *testing.T) {
	c := catalogOf(map[string]string{
		"a": "t-x.{$b}[id]",
		"b": "t-x.{$c}[id]",
		"c": "t-x.{$a}[id]",
		"d": "t-x.{$a}[id]",
	})

	cycles := AnalyzeCycles(c)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0].Path)
	assert.Equal(t, "queries use each other as tables: a -> b -> c -> a", cycles[0].Message)
}

func TestAnalyzeCycles_ThroughFork(t *testing.T) {
	c := &Catalog{}
	c.Add(&Query{
		Name:       "a",
		Definition: statement.Definition{From: "t-f[id]"},
		Forks:      map[string]statement.Definition{"f": {From: "u-x.{$b}[id]"}},
	})
	c.Add(&Query{Name: "b", Definition: statement.Definition{From: "v-y.{$a}[id]"}})

	cycles := AnalyzeCycles(c)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "a"}, cycles[0].Path)
}

func TestAnalyzeCycles_IgnoresBrokenChains(t *testing.T) {
	c := catalogOf(map[string]string{"a": "t-", "b": "u"})
	assert.Empty(t, AnalyzeCycles(c))
}

func TestAnalyzeCycles_IgnoresUnknownKeys(t *testing.T) {
	c := catalogOf(map[string]string{"a": "t-x.{$elsewhere}[id]"})
	assert.Empty(t, AnalyzeCycles(c))
}
