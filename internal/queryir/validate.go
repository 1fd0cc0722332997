package queryir

import (
	"fmt"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/tokenizer"
)

const bareIdentExpr = `^[A-Za-z_][A-Za-z0-9_]*$`

var bareIdent = tokenizer.Pattern(bareIdentExpr)

// IsBareIdent reports whether s is an unquoted identifier.
func IsBareIdent(s string) bool {
	return bareIdent.MatchString(s)
}

// CheckCondition verifies the structural invariants of a condition tree.
// It returns a SyntaxError describing the first violation.
func CheckCondition(tree *ConditionTree) error {
	if tree == nil || len(tree.Terms) == 0 {
		return ir.NewSyntaxError(ir.ErrCodeEmptyExpression, "", -1, "empty condition")
	}
	if len(tree.Connectors) != len(tree.Terms)-1 {
		return ir.NewSyntaxError(ir.ErrCodeEmptyExpression, "", -1,
			"%d terms need %d connectors, have %d",
			len(tree.Terms), len(tree.Terms)-1, len(tree.Connectors))
	}

	for _, term := range tree.Terms {
		switch term := term.(type) {
		case *Condition:
			if term.Left == nil {
				return ir.NewSyntaxError(ir.ErrCodeInvalidOperand, "", -1, "condition has no left operand")
			}
			if term.Right == nil {
				if term.Operator != OpTruthy {
					return ir.NewSyntaxError(ir.ErrCodeInvalidOperand, term.Operator.Symbol(), -1,
						"operator %q needs a right operand", term.Operator)
				}
				if _, ok := term.Left.(*Column); !ok {
					return ir.NewSyntaxError(ir.ErrCodeInvalidOperand, "", -1,
						"a lone operand must be a column")
				}
			}
		case *Group:
			if err := CheckCondition(term.Tree); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown term type %T", term)
		}
	}
	return nil
}

// CheckJoin verifies the structural invariants of a join tree.
// It returns a SyntaxError describing the first violation.
func CheckJoin(tree *JoinTree) error {
	if tree == nil || len(tree.Steps) == 0 {
		return ir.NewSyntaxError(ir.ErrCodeMissingTable, "", -1, "empty join chain")
	}

	for i, step := range tree.Steps {
		if i == 0 && step.Edge != nil {
			return ir.NewSyntaxError(ir.ErrCodeForbiddenCondition, "", -1,
				"the first element of a join chain cannot be joined")
		}
		if i > 0 && step.Edge == nil {
			return ir.NewSyntaxError(ir.ErrCodeMissingTable, "", -1,
				"step %d has no join symbol", i)
		}

		switch node := step.Node.(type) {
		case *TableRef:
			if node.Name == "" {
				return ir.NewSyntaxError(ir.ErrCodeInvalidTable, "", -1, "table without a name")
			}
		case *JoinTree:
			if err := CheckJoin(node); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown join node type %T", node)
		}

		if step.Edge == nil {
			continue
		}
		switch cond := step.Edge.Condition.(type) {
		case nil:
		case *On:
			if step.Edge.Type == Cross {
				return forbiddenCross()
			}
			if err := CheckCondition(cond.Tree); err != nil {
				return err
			}
		case *Using:
			if step.Edge.Type == Cross {
				return forbiddenCross()
			}
			for _, col := range cond.Columns {
				if !IsBareIdent(col) {
					return ir.NewSyntaxError(ir.ErrCodeInvalidColumn, col, -1,
						"USING accepts bare identifiers only")
				}
			}
		case *Equality:
			if step.Edge.Type == Cross {
				return forbiddenCross()
			}
			if len(cond.Columns) == 0 || cond.Against == "" {
				return ir.NewSyntaxError(ir.ErrCodeInvalidColumn, "", -1,
					"equality condition needs columns and a table to compare against")
			}
		default:
			return fmt.Errorf("unknown join condition type %T", cond)
		}
	}
	return nil
}

func forbiddenCross() error {
	return ir.NewSyntaxError(ir.ErrCodeForbiddenCondition, "*", -1,
		"a cross join cannot carry a condition")
}

// ValidationResult contains the portability analysis of a tree.
//
// The shorthand renders MySQL-flavored SQL. Constructs that other engines
// (SQLite in particular, which the conformance harness checks against) may
// reject are reported as warnings. They are not errors: the SQL is still
// correct for MySQL.
type ValidationResult struct {
	// IsPortable is true when no MySQL-specific construct was found.
	IsPortable bool

	// Warnings lists the constructs found. Empty when IsPortable is true.
	Warnings []string
}

// Validate reports MySQL-specific constructs used by a condition tree, a join
// tree, or both (either may be nil).
//
// Validate is a pure function with no side effects.
func Validate(cond *ConditionTree, join *JoinTree) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateCondition(cond)
	v.validateJoin(join)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateCondition(tree *ConditionTree) {
	tree.Walk(func(c *Condition) {
		switch c.Operator {
		case OpJSONPathExists, OpJSONContains, OpJSONSearch:
			v.addWarning("operator %q renders a MySQL JSON function", c.Operator)
		}
		for _, side := range []Operand{c.Left, c.Right} {
			WalkOperands(side, v.validateOperand)
		}
	})
}

func (v *validator) validateOperand(op Operand) {
	switch op := op.(type) {
	case *Column:
		if op.Path != "" {
			v.addWarning("JSON accessor on column %s", op.Ref())
		}
	case *Command:
		v.addWarning("raw command {?%s} is passed through unchecked", op.SQL)
	}
}

func (v *validator) validateJoin(tree *JoinTree) {
	if tree == nil {
		return
	}
	for _, step := range tree.Steps {
		if sub, ok := step.Node.(*JoinTree); ok {
			v.validateJoin(sub)
		}
		if step.Edge == nil {
			continue
		}
		switch step.Edge.Type {
		case Right, RightOuter:
			v.addWarning("%s needs SQLite 3.39 or later", step.Edge.Type.Keyword())
		}
		if on, ok := step.Edge.Condition.(*On); ok {
			v.validateCondition(on.Tree)
		}
	}
}
