package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = MustIRDecimal("1.5")
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+FF61 (one UTF-16 unit, 0xFF61) sorts after U+1F600 (surrogate pair, 0xD83D...)
	// in UTF-16 order, but before it in UTF-8 byte order.
	obj := IRObject{
		"\uff61":     IRInt(1),
		"\U0001F600": IRInt(2),
	}
	assert.Equal(t, []string{"\U0001F600", "\uff61"}, obj.SortedKeys())
}

func TestNewIRDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.50", "12.5"},
		{"100", "100"},
		{"1E+2", "100"},
		{"-0.010", "-0.01"},
		{" 3.25 ", "3.25"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := NewIRDecimal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestNewIRDecimalRejectsInvalid(t *testing.T) {
	for _, in := range []string{"abc", "", "NaN", "Infinity"} {
		t.Run(in, func(t *testing.T) {
			_, err := NewIRDecimal(in)
			assert.Error(t, err)
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b IRValue
		want bool
	}{
		{"same string", IRString("x"), IRString("x"), true},
		{"different string", IRString("x"), IRString("y"), false},
		{"int vs string", IRInt(1), IRString("1"), false},
		{"decimal scale ignored", MustIRDecimal("1.50"), MustIRDecimal("1.5"), true},
		{"decimal vs int", MustIRDecimal("1"), IRInt(1), false},
		{"arrays", IRArray{IRInt(1), IRBool(true)}, IRArray{IRInt(1), IRBool(true)}, true},
		{"array length", IRArray{IRInt(1)}, IRArray{IRInt(1), IRInt(2)}, false},
		{"objects", IRObject{"a": IRInt(1)}, IRObject{"a": IRInt(1)}, true},
		{"object keys", IRObject{"a": IRInt(1)}, IRObject{"b": IRInt(1)}, false},
		{"nil", nil, nil, true},
		{"nil vs value", nil, IRInt(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want IRValue
	}{
		{"string", "west", IRString("west")},
		{"bool", true, IRBool(true)},
		{"int", 7, IRInt(7)},
		{"int64", int64(-3), IRInt(-3)},
		{"float becomes decimal", 12.5, MustIRDecimal("12.5")},
		{"whole float", 2.0, MustIRDecimal("2")},
		{"array", []any{"a", 1}, IRArray{IRString("a"), IRInt(1)}},
		{"object", map[string]any{"k": false}, IRObject{"k": IRBool(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %s, got %s", Format(tt.want), Format(got))
		})
	}
}

func TestFromAnyRejectsNull(t *testing.T) {
	_, err := FromAny(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "isnull")

	_, err = FromAny([]any{"a", nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")
}

func TestToParam(t *testing.T) {
	p, err := ToParam(IRString("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", p)

	p, err = ToParam(IRInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), p)

	p, err = ToParam(MustIRDecimal("2.5"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, p)

	_, err = ToParam(IRArray{})
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "'it''s'", Format(IRString("it's")))
	assert.Equal(t, "42", Format(IRInt(42)))
	assert.Equal(t, "false", Format(IRBool(false)))
	assert.Equal(t, "0.5", Format(MustIRDecimal("0.50")))
	assert.Equal(t, "['a', 1]", Format(IRArray{IRString("a"), IRInt(1)}))
	assert.Equal(t, "{a: 1, b: 2}", Format(IRObject{"b": IRInt(2), "a": IRInt(1)}))
}
