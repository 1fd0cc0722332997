package queryir

// Operator is a comparison operator from the shorthand operator table.
type Operator int

const (
	// OpTruthy is the implicit operator of a lone column: col = 1.
	OpTruthy Operator = iota
	OpEqual
	OpNotEqual
	OpIn
	OpContains
	OpStartsWith
	OpEndsWith
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpJSONPathExists
	OpJSONContains
	OpJSONSearch
)

var operatorInfo = map[Operator]struct {
	symbol string
	word   string
}{
	OpTruthy:         {"", "is true"},
	OpEqual:          {"=", "is"},
	OpNotEqual:       {"!=", "is not"},
	OpIn:             {"|=", "in"},
	OpContains:       {"*=", "contains"},
	OpStartsWith:     {"^=", "start with"},
	OpEndsWith:       {"$=", "end with"},
	OpLess:           {"<", "less than"},
	OpGreater:        {">", "greater than"},
	OpLessEqual:      {"<=", "less than and equal to"},
	OpGreaterEqual:   {">=", "greater than and equal to"},
	OpJSONPathExists: {":=", "json path exists"},
	OpJSONContains:   {"~=", "json object contains"},
	OpJSONSearch:     {"&=", "json search value in"},
}

// Symbols lists every operator symbol, longest first, so a scanner that
// tries them in order never mistakes "<=" for "<".
var Symbols = []string{"!=", "|=", "*=", "^=", "$=", "<=", ">=", ":=", "~=", "&=", "=", "<", ">"}

// LookupOperator returns the operator for a shorthand symbol.
func LookupOperator(symbol string) (Operator, bool) {
	for op, info := range operatorInfo {
		if info.symbol != "" && info.symbol == symbol {
			return op, true
		}
	}
	return 0, false
}

// Symbol returns the shorthand symbol, "" for OpTruthy.
func (o Operator) Symbol() string {
	return operatorInfo[o].symbol
}

// String returns the word form, e.g. "start with".
func (o Operator) String() string {
	if info, ok := operatorInfo[o]; ok {
		return info.word
	}
	return "unknown"
}

// IsWildcard reports whether the operator renders as LIKE.
func (o Operator) IsWildcard() bool {
	return o == OpContains || o == OpStartsWith || o == OpEndsWith
}

// Connector joins adjacent terms of a ConditionTree.
type Connector int

const (
	And Connector = iota // written ","
	Or                   // written "|"
)

// String returns the SQL keyword.
func (c Connector) String() string {
	if c == Or {
		return "OR"
	}
	return "AND"
}

// Term is one element of a ConditionTree.
//
// This is a sealed interface - only *Condition and *Group implement it.
type Term interface {
	termNode() // Marker method - seals interface to this package
}

// Condition is a single comparison.
//
// Semantics:
//
//	[NOT] <left> <operator> <right>
//
// Right is nil only for OpTruthy, which requires a Column on the left and
// renders col = 1 (col = 0 when negated).
//
// Example:
//
//	!status|=:states
//	Condition{Negated: true, Operator: OpIn,
//	          Left: &Column{Name: "status"}, Right: &Parameter{Name: "states"}}
type Condition struct {
	Negated  bool
	Operator Operator
	Left     Operand
	Right    Operand
}

func (*Condition) termNode() {}

// Group is a parenthesized sub-expression.
type Group struct {
	Negated bool
	Tree    *ConditionTree
}

func (*Group) termNode() {}

// ConditionTree is a flat sequence of terms joined by connectors and
// evaluated strictly left to right: a|b,c means (a OR b) AND c. Groups are
// the only precedence override.
//
// len(Connectors) == len(Terms)-1; Connectors[i] joins Terms[i] and Terms[i+1].
type ConditionTree struct {
	Terms      []Term
	Connectors []Connector
}

// Walk calls fn for every Condition in the tree, depth first, in textual order.
func (t *ConditionTree) Walk(fn func(*Condition)) {
	if t == nil {
		return
	}
	for _, term := range t.Terms {
		switch term := term.(type) {
		case *Condition:
			fn(term)
		case *Group:
			term.Tree.Walk(fn)
		}
	}
}

// WalkOperands calls fn for every operand in op, descending into function
// arguments and list items.
func WalkOperands(op Operand, fn func(Operand)) {
	if op == nil {
		return
	}
	fn(op)
	switch op := op.(type) {
	case *Function:
		for _, arg := range op.Args {
			WalkOperands(arg, fn)
		}
	case *List:
		for _, item := range op.Items {
			WalkOperands(item, fn)
		}
	}
}
