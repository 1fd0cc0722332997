package queryir

// Operand is one side of a comparison.
//
// This is a sealed interface - only types in this package implement it.
//
// Operand kinds, in the order the where compiler tries them:
//   - Column: bare or backtick-quoted identifier, optional table qualifier
//     and JSON accessor
//   - Literal: quoted string
//   - Parameter: :name slot, filled in at render time
//   - Command: raw SQL written as {?...}
//   - Number: numeric literal
//   - Function: name(args...)
//   - List: (a, b, ...) value list, used with IN
//   - Raw: anything else the compiler accepts verbatim
type Operand interface {
	operandNode() // Marker method - seals interface to this package
}

// Column references a column, optionally qualified and with a JSON accessor.
//
// Example:
//
//	o.meta->>'$.tags'
//	Column{Table: "o", Name: "meta", Path: "'$.tags'", Unquote: true}
//
// Table and Name keep backticks when the source had them, so rendering
// reproduces the identifier exactly as written.
type Column struct {
	Table   string // Qualifier ("" when unqualified)
	Name    string // Column name
	Path    string // Quoted JSON path after -> or ->> ("" when absent)
	Unquote bool   // true for ->>, false for ->
}

func (*Column) operandNode() {}

// Ref returns the qualified column reference without the JSON accessor.
func (c *Column) Ref() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// BareName returns Name without backticks. It names the parameter created by
// a ? reference against this column.
func (c *Column) BareName() string {
	return unquoteIdent(c.Name)
}

// Literal is a quoted string with its quotes and escapes removed.
type Literal struct {
	Value string // Unescaped text
	Quote byte   // Quote character used in the source (' or ")
}

func (*Literal) operandNode() {}

// Parameter names a parameter slot.
type Parameter struct {
	Name string // Without the leading colon
}

func (*Parameter) operandNode() {}

// Command is raw SQL written as {?...}. It is rendered verbatim.
type Command struct {
	SQL string // Text between {? and }
}

func (*Command) operandNode() {}

// Number is a numeric literal kept as written.
type Number struct {
	Text string
}

func (*Number) operandNode() {}

// Function is a function call. Arguments are operands in their own right, so
// count(o.id) holds a Column and lower(:name) holds a Parameter.
type Function struct {
	Name string
	Args []Operand
}

func (*Function) operandNode() {}

// List is a parenthesized value list, e.g. the right side of status|=('a','b').
type List struct {
	Items []Operand
}

func (*List) operandNode() {}

// Raw is operand text passed through unchanged: keywords such as NULL and
// simple arithmetic such as price*2.
type Raw struct {
	Text string
}

func (*Raw) operandNode() {}

// unquoteIdent strips one pair of surrounding backticks.
func unquoteIdent(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}
