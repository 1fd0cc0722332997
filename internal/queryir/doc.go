// Package queryir provides the intermediate representation shared by the
// shorthand compilers and the SQL backend.
//
// The where-clause and join compilers parse shorthand text into the trees
// defined here; package querysql renders those trees to SQL:
//
//	[where shorthand] → ConditionTree ┐
//	                                  ├→ [querysql] → SQL text
//	[join shorthand]  → JoinTree     ┘
//
// Trees are built once at construction and never mutated afterwards.
// Parameter values are not part of the IR; a Parameter operand only names a
// slot that the owning compiler fills in later.
//
// SEALED INTERFACES:
//
// Operand, Term and JoinNode are sealed interfaces using the marker method
// pattern. Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch op := operand.(type) {
//	case *Column:
//	    // table.name->'$.path'
//	case *Literal:
//	    // 'text'
//	case *Parameter:
//	    // :name
//	...
//	}
//
// INVARIANTS:
//
//   - A Condition without a right operand has a Column on the left.
//   - A ConditionTree has exactly one connector between adjacent terms.
//   - The first step of a JoinTree has no edge.
//   - A CROSS join edge never carries a condition.
//   - USING columns are bare identifiers.
//
// CheckCondition and CheckJoin verify these; the compilers call them on every
// tree they build.
package queryir
