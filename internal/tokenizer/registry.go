package tokenizer

import (
	"fmt"
	"regexp"
	"sync"
)

// patterns maps a regular expression source to its compiled form.
// Entries are added lazily and never replaced.
var patterns sync.Map

// CompilePattern returns the compiled form of expr, compiling and caching it
// on first use.
func CompilePattern(expr string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	actual, _ := patterns.LoadOrStore(expr, re)
	return actual.(*regexp.Regexp), nil
}

// Pattern is like CompilePattern but panics on an invalid expression.
// Use it for expressions that are constants in the calling package.
func Pattern(expr string) *regexp.Regexp {
	re, err := CompilePattern(expr)
	if err != nil {
		panic(err)
	}
	return re
}

// anchored returns the registry entry for expr anchored at the start of input.
func anchored(expr string) (*regexp.Regexp, error) {
	return CompilePattern(`^(?:` + expr + `)`)
}
