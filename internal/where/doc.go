// Package where compiles shorthand boolean expressions into SQL conditions.
//
// GRAMMAR:
//
//	expr := term (("," | "|") term)*
//	term := ["!"] operand [operator operand]
//	      | ["!"] "(" expr ")"
//
// "," is AND and "|" is OR. Connectors apply strictly left to right with no
// precedence between them; parentheses are the only way to group. A lone
// operand must be a column and tests truthiness (col = 1).
//
// OPERATORS:
//
//	=   is                      col = x
//	!=  is not                  col <> x
//	|=  in                      col IN(x)
//	*=  contains                col LIKE '%x%'
//	^=  start with              col LIKE 'x%'
//	$=  end with                col LIKE '%x'
//	<  >  <=  >=                unchanged
//	:=  json path exists        JSON_EXTRACT(col, path) IS NOT NULL
//	~=  json object contains    JSON_CONTAINS(col, obj) = 1
//	&=  json search value in    JSON_SEARCH(col, "one", val) IS NOT NULL
//
// PARAMETERS:
//
// :name declares a parameter slot. A ? compared with a column declares a slot
// named after that column (id=? is id = :id). The operator a parameter first
// appears with fixes how its value is escaped: *= makes it a LIKE pattern,
// |= a set, := a JSON path, ~= a JSON document. Values are assigned after
// compilation and escaped only when rendering, so one compiled expression can
// be rendered many times with different values.
//
// OUTPUT:
//
// Render splices escaped values into the SQL; unassigned parameters become ''.
// Template keeps :name markers. Bind emits ? placeholders and returns the
// driver arguments separately.
package where
