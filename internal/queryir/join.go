package queryir

// JoinType is the kind of join a symbol in a join chain stands for.
type JoinType int

const (
	Inner      JoinType = iota // -
	LeftOuter                  // <<
	RightOuter                 // >>
	Left                       // <
	Right                      // >
	Cross                      // *
)

var joinInfo = map[JoinType]struct {
	symbol  string
	keyword string
}{
	Inner:      {"-", "JOIN"},
	LeftOuter:  {"<<", "LEFT OUTER JOIN"},
	RightOuter: {">>", "RIGHT OUTER JOIN"},
	Left:       {"<", "LEFT JOIN"},
	Right:      {">", "RIGHT JOIN"},
	Cross:      {"*", "CROSS JOIN"},
}

// JoinSymbols lists every join symbol, longest first.
var JoinSymbols = []string{"<<", ">>", "<", ">", "-", "*"}

// LookupJoin returns the join type for a symbol.
func LookupJoin(symbol string) (JoinType, bool) {
	for jt, info := range joinInfo {
		if info.symbol == symbol {
			return jt, true
		}
	}
	return 0, false
}

// Keyword returns the SQL keyword, e.g. "LEFT OUTER JOIN". Inner joins render
// as plain "JOIN".
func (j JoinType) Keyword() string {
	return joinInfo[j].keyword
}

// Symbol returns the shorthand symbol.
func (j JoinType) Symbol() string {
	return joinInfo[j].symbol
}

// JoinCondition is the condition attached to a join edge.
//
// This is a sealed interface - only *On, *Using and *Equality implement it.
// A nil JoinCondition means the join is NATURAL.
type JoinCondition interface {
	joinConditionNode() // Marker method - seals interface to this package
}

// On is a full boolean condition written [?expr].
type On struct {
	Tree *ConditionTree
}

func (*On) joinConditionNode() {}

// Using lists shared columns written [:a,b].
type Using struct {
	Columns []string
}

func (*Using) joinConditionNode() {}

// Equality is the shorthand [a,b] or [<alias>a,b]: every column must be equal
// between the joined table and Against.
//
// Semantics:
//
//	ON <against>.a = <table>.a AND <against>.b = <table>.b
//
// Against is the preceding table's alias unless the source named one.
type Equality struct {
	Columns []string
	Against string
}

func (*Equality) joinConditionNode() {}

// JoinEdge describes how a step attaches to everything before it.
type JoinEdge struct {
	Type      JoinType
	Condition JoinCondition // nil = NATURAL
}

// JoinNode is what a step joins in.
//
// This is a sealed interface - only *TableRef and *JoinTree implement it.
type JoinNode interface {
	joinNode() // Marker method - seals interface to this package
}

// TableRef is one table in a join chain.
//
// Example:
//
//	orders.o          TableRef{Name: "orders", Alias: "o"}
//	recent.{$latest}  TableRef{Name: "recent", Override: "latest"}
//
// When a replacement source is registered under Override (or, when Override
// is empty, under Name) the table renders as (replacement) AS <alias>.
type TableRef struct {
	Name     string
	Alias    string
	Override string
}

func (*TableRef) joinNode() {}

// RefName returns the name other parts of the statement use to refer to the
// table: the alias when there is one, the name otherwise.
func (t *TableRef) RefName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// JoinStep is one element of a join chain.
type JoinStep struct {
	Edge *JoinEdge // nil for the first step
	Node JoinNode
}

// JoinTree is a join chain. Nested parenthesized chains appear as JoinTree
// nodes and render wrapped in parentheses.
//
// Example:
//
//	orders.o-customers.c[customer_id]<<(items-products[sku])
//
// is a three-step tree whose last node is itself a two-step tree.
type JoinTree struct {
	Steps []JoinStep
}

func (*JoinTree) joinNode() {}

// Tables returns every TableRef in the tree in textual order.
func (t *JoinTree) Tables() []*TableRef {
	var out []*TableRef
	for _, step := range t.Steps {
		switch node := step.Node.(type) {
		case *TableRef:
			out = append(out, node)
		case *JoinTree:
			out = append(out, node.Tables()...)
		}
	}
	return out
}

// Conditions returns every ON condition tree in textual order, nested chains
// included.
func (t *JoinTree) Conditions() []*ConditionTree {
	var out []*ConditionTree
	for _, step := range t.Steps {
		if sub, ok := step.Node.(*JoinTree); ok {
			out = append(out, sub.Conditions()...)
		}
		if step.Edge != nil {
			if on, ok := step.Edge.Condition.(*On); ok {
				out = append(out, on.Tree)
			}
		}
	}
	return out
}
