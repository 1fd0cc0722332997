// Package join compiles shorthand join chains into SQL FROM clauses.
//
// A chain is a sequence of tables separated by join symbols:
//
//	<<  LEFT OUTER JOIN      >>  RIGHT OUTER JOIN
//	<   LEFT JOIN            >   RIGHT JOIN
//	-   JOIN                 *   CROSS JOIN
//
// Each table may carry an alias (orders.o), an override key
// (recent.{$latest}) and, except for the first, a condition in brackets:
//
//	[?expr]        ON expr, compiled by package where
//	[:a,b]         USING(a, b)
//	[a,b]          ON prev.a = t.a AND prev.b = t.b
//	[<x>a,b]       ON x.a = t.a AND x.b = t.b
//
// A join without a condition is NATURAL. Cross joins never take a condition.
// Parentheses group a sub-chain, which renders in parentheses:
//
//	a-(b<c[:id])[?a.b_id=b.id]
//	a JOIN (b LEFT JOIN c USING(id)) ON a.b_id = b.id
//
// Tables can be replaced by subqueries with Override; the table then renders
// as (subquery) AS alias.
package join
