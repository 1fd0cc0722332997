package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var values []IRValue = []IRValue{
		IRNull{}, IRString("x"), IRInt(1), IRDecimal("1.5"),
		IRBool(true), IRArray{}, IRObject{},
	}
	assert.Len(t, values, 7)
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"": IRInt(1),
		"𐀀":      IRInt(2),
		"a":      IRInt(3),
	}

	// UTF-16: 'a' (0x61) < 0xD800 (surrogate of U+10000) < 0xE000
	assert.Equal(t, []string{"a", "𐀀", ""}, obj.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"a", "ab", -1},
		{"", "a", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, compareKeysRFC8785(tt.a, tt.b))
		})
	}
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  IRValue
	}{
		{"nil", nil, IRNull{}},
		{"string", "ann", IRString("ann")},
		{"bool", true, IRBool(true)},
		{"int", 42, IRInt(42)},
		{"int32", int32(-7), IRInt(-7)},
		{"uint16", uint16(9), IRInt(9)},
		{"whole float", 18.0, IRInt(18)},
		{"fraction", 9.99, IRDecimal("9.99")},
		{"json int", json.Number("12"), IRInt(12)},
		{"json decimal", json.Number("1.50"), IRDecimal("1.50")},
		{"ir passthrough", IRString("x"), IRString("x")},
		{"any slice", []any{"a", 1}, IRArray{IRString("a"), IRInt(1)}},
		{"typed slice", []string{"a", "b"}, IRArray{IRString("a"), IRString("b")}},
		{"int slice", []int{1, 2}, IRArray{IRInt(1), IRInt(2)}},
		{"map", map[string]any{"k": "v"}, IRObject{"k": IRString("v")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGoRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"struct", struct{ A int }{1}},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"uint64 overflow", uint64(math.MaxUint64)},
		{"nested struct", []any{struct{}{}}},
		{"channel", make(chan int)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGo(tt.input)
			require.Error(t, err)
			assert.True(t, IsValueError(err))
			assert.Equal(t, CodeUnsupportedType, ValueCode(err))
		})
	}
}

func TestUnmarshalIRValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  IRValue
	}{
		{"object", `{"tag":"red","n":2}`, IRObject{"tag": IRString("red"), "n": IRInt(2)}},
		{"array", `[1,"a",null]`, IRArray{IRInt(1), IRString("a"), IRNull{}}},
		{"decimal keeps text", `2.50`, IRDecimal("2.50")},
		{"exponent", `1e3`, IRDecimal("1e3")},
		{"bool", `false`, IRBool(false)},
		{"null", `null`, IRNull{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalIRValue([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalIRValueInvalid(t *testing.T) {
	for _, input := range []string{``, `{`, `[1,]`, `{} {}`, `12345678901234567890`} {
		t.Run(input, func(t *testing.T) {
			_, err := UnmarshalIRValue([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestNewIRDecimal(t *testing.T) {
	d, err := NewIRDecimal(0.1)
	require.NoError(t, err)
	assert.Equal(t, IRDecimal("0.1"), d)

	_, err = NewIRDecimal(math.Inf(-1))
	assert.Error(t, err)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(IRNull{}))
	assert.Equal(t, "string", TypeName(IRString("")))
	assert.Equal(t, "int", TypeName(IRInt(0)))
	assert.Equal(t, "decimal", TypeName(IRDecimal("0.5")))
	assert.Equal(t, "bool", TypeName(IRBool(false)))
	assert.Equal(t, "array", TypeName(IRArray{}))
	assert.Equal(t, "object", TypeName(IRObject{}))
}

func TestHelperConstructors(t *testing.T) {
	obj := NewIRObjectFromPairs(O("tag", NewIRString("red")), O("size", NewIRInt(5)))
	assert.Equal(t, IRObject{"tag": IRString("red"), "size": IRInt(5)}, obj)
	assert.Equal(t, IRArray{IRBool(true)}, NewIRArray(NewIRBool(true)))
}
