package where

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/queryir"
	"github.com/roach88/shorthand/internal/querysql"
	"github.com/roach88/shorthand/internal/tokenizer"
)

func mustCompile(t *testing.T, expr string) *Where {
	t.Helper()
	w, err := Compile(expr, Options{})
	require.NoError(t, err, "compile %q", expr)
	return w
}

func render(t *testing.T, w *Where) string {
	t.Helper()
	sql, err := w.Render()
	require.NoError(t, err)
	return sql
}

func TestRender_Operators(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"greater than", "age > 18", "age > 18"},
		{"string literal", "name = 'Bob'", "name = 'Bob'"},
		{"double quoted literal", `name="Bob"`, "name = 'Bob'"},
		{"escaped quote", `name='O\'Brien'`, `name = 'O\'Brien'`},
		{"not equal", "a!=1", "a <> 1"},
		{"less or equal", "a<=1", "a <= 1"},
		{"greater or equal with negative", "a>=-1.5", "a >= -1.5"},
		{"in list", "status|=('open','paid')", "status IN('open', 'paid')"},
		{"contains literal", "name*='an_n'", `name LIKE '%an\\_n%'`},
		{"starts with", "name^='Bo'", "name LIKE 'Bo%'"},
		{"ends with", "name$='b'", "name LIKE '%b'"},
		{"contains column", "a*=b", "a LIKE CONCAT('%', b, '%')"},
		{"starts with column", "a^=b", "a LIKE CONCAT(b, '%')"},
		{"json path exists", "meta:='$.a'", "JSON_EXTRACT(meta, '$.a') IS NOT NULL"},
		{"json contains", "tags~='[1]'", "JSON_CONTAINS(tags, '[1]') = 1"},
		{"json search", "tags&='x'", `JSON_SEARCH(tags, "one", 'x') IS NOT NULL`},
		{"json accessor", "o.meta->>'$.name'='x'", "o.meta->>'$.name' = 'x'"},
		{"function", "lower(name)='bob'", "lower(name) = 'bob'"},
		{"count star", "count(*)>1", "count(*) > 1"},
		{"raw command", "created_at<{?NOW()}", "created_at < NOW()"},
		{"null", "deleted_at=NULL", "deleted_at IS NULL"},
		{"not null", "deleted_at!=null", "deleted_at IS NOT NULL"},
		{"arithmetic", "price*2>10", "price*2 > 10"},
		{"quoted identifiers", "`order`.`id`=1", "`order`.`id` = 1"},
		{"truthy", "active", "active = 1"},
		{"qualified column equality", "a.id=b.id", "a.id = b.id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, mustCompile(t, tt.expr)))
		})
	}
}

func TestRender_Negation(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"!active", "active = 0"},
		{"!a=1", "NOT (a = 1)"},
		{"!status|=('open')", "status NOT IN('open')"},
		{"!name*='x'", "name NOT LIKE '%x%'"},
		{"!meta:='$.a'", "JSON_EXTRACT(meta, '$.a') IS NULL"},
		{"!tags~='[1]'", "JSON_CONTAINS(tags, '[1]') = 0"},
		{"!tags&='x'", `JSON_SEARCH(tags, "one", 'x') IS NULL`},
		{"!deleted_at=NULL", "deleted_at IS NOT NULL"},
		{"!(a=1|b=2)", "NOT (a = 1 OR b = 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, mustCompile(t, tt.expr)))
		})
	}
}

func TestRender_Connectors(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"a=1,b=2", "a = 1 AND b = 2"},
		{"a=1|b=2", "a = 1 OR b = 2"},
		{"a=1,b=2,c=3", "a = 1 AND b = 2 AND c = 3"},
		{"(a=1,b=2)|c=3", "(a = 1 AND b = 2) OR c = 3"},
		{"a=1|b=2,c=3", "(a = 1 OR b = 2) AND c = 3"},
		{"a=1|b=2,c=3|d=4", "((a = 1 OR b = 2) AND c = 3) OR d = 4"},
		{"a=1,(b=2|c=3)", "a = 1 AND (b = 2 OR c = 3)"},
		{" a = 1 , b = 2 ", "a = 1 AND b = 2"},
		{"((a=1))", "((a = 1))"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, mustCompile(t, tt.expr)))
		})
	}
}

func TestCompile_Tree(t *testing.T) {
	w := mustCompile(t, "a=1|b=:x")

	want := &queryir.ConditionTree{
		Terms: []queryir.Term{
			&queryir.Condition{
				Operator: queryir.OpEqual,
				Left:     &queryir.Column{Name: "a"},
				Right:    &queryir.Number{Text: "1"},
			},
			&queryir.Condition{
				Operator: queryir.OpEqual,
				Left:     &queryir.Column{Name: "b"},
				Right:    &queryir.Parameter{Name: "x"},
			},
		},
		Connectors: []queryir.Connector{queryir.Or},
	}
	assert.Equal(t, want, w.Tree())
	assert.Equal(t, "a=1|b=:x", w.String())
}

func TestCompile_NestingDepthMatchesParentheses(t *testing.T) {
	for depth := 1; depth <= 5; depth++ {
		expr := "a=1"
		for i := 0; i < depth; i++ {
			expr = "(" + expr + ")"
		}
		w := mustCompile(t, expr)

		got := 0
		tree := w.Tree()
		for {
			g, ok := tree.Terms[0].(*queryir.Group)
			if !ok {
				break
			}
			got++
			tree = g.Tree
		}
		assert.Equal(t, depth, got, "expr %q", expr)
	}
}

func TestParameters_Contains(t *testing.T) {
	w := mustCompile(t, "name *= :kw")
	require.NoError(t, w.Assign("kw", "ann"))
	assert.Equal(t, "name LIKE '%ann%'", render(t, w))

	require.NoError(t, w.Assign("kw", "50%"))
	assert.Equal(t, `name LIKE '%50\\%%'`, render(t, w))
}

func TestParameters_Reference(t *testing.T) {
	w := mustCompile(t, "id=?")

	tmpl, err := w.Template()
	require.NoError(t, err)
	assert.Equal(t, "id = :id", tmpl)

	assert.Equal(t, "id = ''", render(t, w), "unassigned renders as empty string")

	require.NoError(t, w.Assign("id", 7))
	assert.Equal(t, "id = 7", render(t, w))
}

func TestParameters_ReferenceUsesBareColumnName(t *testing.T) {
	w := mustCompile(t, "o.`user_id`=?")
	assert.True(t, w.Has("user_id"))
}

func TestParameters_InSet(t *testing.T) {
	w := mustCompile(t, "id|=:ids")
	require.NoError(t, w.Assign("ids", []int{1, 2, 3}))
	assert.Equal(t, "id IN(1, 2, 3)", render(t, w))

	require.NoError(t, w.Assign("ids", []string{}))
	assert.Equal(t, "id IN(NULL)", render(t, w))
}

func TestParameters_JSON(t *testing.T) {
	w := mustCompile(t, "tags~=:doc")
	require.NoError(t, w.Assign("doc", map[string]any{"b": 1, "a": []any{1}}))
	assert.Equal(t, `JSON_CONTAINS(tags, '{"a":[1],"b":1}') = 1`, render(t, w))

	p := mustCompile(t, "meta:=:path")
	require.NoError(t, p.Assign("path", "$.a"))
	assert.Equal(t, "JSON_EXTRACT(meta, '$.a') IS NOT NULL", render(t, p))

	require.NoError(t, p.Assign("path", "a.b"))
	_, err := p.Render()
	require.Error(t, err)
	assert.Equal(t, ir.CodeIncompatibleValue, ir.ValueCode(err))

	require.NoError(t, p.Assign("path", 5))
	_, err = p.Render()
	assert.Equal(t, ir.CodeIncompatibleValue, ir.ValueCode(err))
}

func TestParameters_FirstAppearanceWins(t *testing.T) {
	w := mustCompile(t, "name*=:q|title=:q")

	slots := w.Params().Slots()
	require.Len(t, slots, 1)
	assert.Equal(t, querysql.Wildcard, slots[0].Strategy)
}

func TestParameters_DeclarationOrder(t *testing.T) {
	w := mustCompile(t, "lower(:a)=:b,c|=:d,e=?")
	assert.Equal(t, []string{"a", "b", "d", "e"}, w.Params().Names())

	strategies := map[string]querysql.Strategy{}
	for _, s := range w.Params().Slots() {
		strategies[s.Name] = s.Strategy
	}
	assert.Equal(t, querysql.PlainString, strategies["a"])
	assert.Equal(t, querysql.InSet, strategies["d"])
}

func TestAssign_Unknown(t *testing.T) {
	w := mustCompile(t, "a=:x")
	err := w.Assign("y", 1)
	require.Error(t, err)
	assert.Equal(t, ir.CodeUnknownParameter, ir.ValueCode(err))
}

func TestAssignAll(t *testing.T) {
	w := mustCompile(t, "a=:x,b=:y")
	require.NoError(t, w.AssignAll(map[string]any{"x": "one", "y": 2}))
	assert.Equal(t, "a = 'one' AND b = 2", render(t, w))

	err := w.AssignAll(map[string]any{"x": "two", "z": 3})
	assert.True(t, ir.IsValueError(err))
}

func TestRender_Idempotent(t *testing.T) {
	w := mustCompile(t, "name*=:kw,(id|=:ids|!active)")
	require.NoError(t, w.AssignAll(map[string]any{"kw": "x", "ids": []int{1, 2}}))

	first := render(t, w)
	second := render(t, w)
	assert.Equal(t, first, second)
}

func TestBind(t *testing.T) {
	w := mustCompile(t, "a=:x,b|=:ids,c*=:kw")
	require.NoError(t, w.AssignAll(map[string]any{
		"x":   "v",
		"ids": []string{"p", "q"},
		"kw":  "k",
	}))

	sql, args, err := w.Bind()
	require.NoError(t, err)
	assert.Equal(t, "a = ? AND b IN(?, ?) AND c LIKE ?", sql)
	assert.Equal(t, []any{"v", "p", "q", "%k%"}, args)
}

func TestBind_Unassigned(t *testing.T) {
	w := mustCompile(t, "a=:x")
	sql, args, err := w.Bind()
	require.NoError(t, err)
	assert.Equal(t, "a = ?", sql)
	assert.Equal(t, []any{""}, args)
}

func TestCompile_SharedParams(t *testing.T) {
	pool := querysql.NewParams()
	first, err := Compile("a=:x", Options{Params: pool})
	require.NoError(t, err)
	second, err := Compile("b=:x,c=:y", Options{Params: pool})
	require.NoError(t, err)

	require.NoError(t, first.Assign("x", 1))
	assert.Equal(t, "b = 1 AND c = ''", render(t, second))
	assert.Equal(t, []string{"x", "y"}, pool.Names())
}

func TestCompile_FailureLeavesSharedParamsUntouched(t *testing.T) {
	pool := querysql.NewParams()
	_, err := Compile("a=:x,b=", Options{Params: pool})
	require.Error(t, err)
	assert.False(t, pool.Has("x"))
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		code ir.SyntaxErrorCode
	}{
		{"repeated reference", "id=?,id=?", ir.ErrCodeAmbiguousReference},
		{"both sides reference", "?=?", ir.ErrCodeAmbiguousReference},
		{"reference against literal", "'a'=?", ir.ErrCodeAmbiguousReference},
		{"reference against spaced column", "`my col`=?", ir.ErrCodeAmbiguousReference},
		{"empty", "", ir.ErrCodeEmptyExpression},
		{"blank", "   ", ir.ErrCodeEmptyExpression},
		{"trailing connector", "a=1,", ir.ErrCodeEmptyExpression},
		{"double connector", "a=1,,b=2", ir.ErrCodeEmptyExpression},
		{"empty group", "()", ir.ErrCodeEmptyExpression},
		{"lone literal", "'abc'", ir.ErrCodeInvalidOperand},
		{"lone number", "1", ir.ErrCodeInvalidOperand},
		{"missing right operand", "a=", ir.ErrCodeInvalidOperand},
		{"unknown operator", "a==1", ir.ErrCodeUnknownOperator},
		{"reversed operator", "a=>1", ir.ErrCodeUnknownOperator},
		{"unclosed bracket", "a=(1", ir.ErrCodeUnbalanced},
		{"unmatched close", "a=1)", ir.ErrCodeUnbalanced},
		{"unterminated quote", "name='bob", ir.ErrCodeUnterminatedQuote},
		{"garbage operand", "a=@@", ir.ErrCodeInvalidOperand},
		{"json path without dollar", "meta:='a.b'", ir.ErrCodeInvalidOperand},
		{"text after group", "(a=1)b", ir.ErrCodeInvalidOperand},
		{"leading arithmetic parentheses", "(a+b)*2>3", ir.ErrCodeInvalidOperand},
		{"text before group", "x!(a=1)", ir.ErrCodeInvalidOperand},
		{"condition inside function", "x(a=1)", ir.ErrCodeInvalidOperand},
		{"empty list", "a|=()", ir.ErrCodeInvalidOperand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Compile(tt.expr, Options{})
			require.Error(t, err)
			assert.Nil(t, w)
			assert.True(t, ir.IsSyntaxError(err), "want SyntaxError, got %T: %v", err, err)
			assert.Equal(t, tt.code, ir.SyntaxCode(err), "error: %v", err)
		})
	}
}

func TestCompile_ErrorPosition(t *testing.T) {
	_, err := Compile("a=1,b==2", Options{})
	require.Error(t, err)

	var se *ir.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ir.ErrCodeUnknownOperator, se.Code)
	assert.Equal(t, 5, se.Pos)
}

func TestCompile_Limits(t *testing.T) {
	_, err := Compile("(((a=1)))", Options{Limits: tokenizer.Limits{MaxDepth: 2}})
	assert.Equal(t, ir.ErrCodeNestingTooDeep, ir.SyntaxCode(err))

	_, err = Compile("a=1,b=2", Options{Limits: tokenizer.Limits{MaxLength: 5}})
	assert.Equal(t, ir.ErrCodeInputTooLong, ir.SyntaxCode(err))
}
