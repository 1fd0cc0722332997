// Package statement assembles SELECT statements from shorthand clauses.
//
// A Statement owns one join chain (package join), up to two conditions
// (package where, for WHERE and HAVING) and the plain column lists for
// SELECT, GROUP BY and ORDER BY. Every clause is parsed once, when the
// statement is created or when its setter is called. Rendering re-derives the
// SQL every time, so values assigned between renders are picked up.
//
// Output order:
//
//	SELECT <cols> FROM <join> [WHERE ..] [GROUP BY ..] [HAVING ..]
//	[ORDER BY ..] [LIMIT start, length]
//
// Absent clauses are left out. An empty column list selects *.
//
// Statements nest: Fork(table) returns a new Statement that replaces table
// in the owner's join chain, rendered as (SELECT ...) AS table. Assign on the
// owner reaches the parameters of its forks.
package statement
