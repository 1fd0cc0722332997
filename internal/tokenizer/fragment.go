package tokenizer

import "strings"

// Fragment is a node in a parenthesis tree.
// Sealed: only Leaf and Group implement it.
type Fragment interface {
	fragmentNode()
}

// Leaf is a run of text outside any group parentheses.
type Leaf string

func (Leaf) fragmentNode() {}

// Group is the content of one pair of group parentheses.
// The parentheses themselves are not part of the group.
type Group []Fragment

func (Group) fragmentNode() {}

// Flatten concatenates every leaf in pre-order. For a tree built by ParseTree
// this is the input with the group parentheses removed.
func Flatten(frags []Fragment) string {
	var b strings.Builder
	flattenInto(&b, frags)
	return b.String()
}

func flattenInto(b *strings.Builder, frags []Fragment) {
	for _, f := range frags {
		switch f := f.(type) {
		case Leaf:
			b.WriteString(string(f))
		case Group:
			flattenInto(b, f)
		}
	}
}

// Depth returns the maximum group nesting in frags. A tree with no groups has
// depth 0.
func Depth(frags []Fragment) int {
	deepest := 0
	for _, f := range frags {
		if g, ok := f.(Group); ok {
			deepest = max(deepest, 1+Depth(g))
		}
	}
	return deepest
}
