package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beentity/internal/ir"
)

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		in   ir.IRValue
		want bool
	}{
		{ir.IRBool(true), true},
		{ir.IRString("yes"), true},
		{ir.IRString("YES"), true},
		{ir.IRString(" On "), true},
		{ir.IRString("y"), true},
		{ir.IRString("1"), true},
		{ir.IRInt(1), true},
		{ir.IRString("no"), false},
		{ir.IRString("False"), false},
		{ir.IRString("off"), false},
		{ir.IRString("0"), false},
		{ir.IRInt(0), false},
	}
	for _, tt := range tests {
		got, err := CoerceBool(tt.in)
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, ir.IRBool(tt.want), got, "input %v", tt.in)
	}

	for _, bad := range []ir.IRValue{ir.IRString("maybe"), ir.IRInt(2), ir.IRNull{}} {
		_, err := CoerceBool(bad)
		assert.Error(t, err, "input %v", bad)
	}
}

func TestCoerceInt(t *testing.T) {
	got, err := CoerceInt(ir.IRString(" 42 "))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(42), got)

	got, err = CoerceInt(ir.IRString("-7"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(-7), got)

	for _, bad := range []ir.IRValue{ir.IRString("1.5"), ir.IRString("0x10"), ir.IRBool(true)} {
		_, err := CoerceInt(bad)
		assert.Error(t, err, "input %v", bad)
	}
}

func TestCoerceString(t *testing.T) {
	got, err := CoerceString(ir.IRInt(5))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("5"), got)

	got, err = CoerceString(ir.IRBool(false))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("false"), got)

	got, err = CoerceString(ir.IRString("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("caf\u00e9"), got, "strings are NFC normalized")

	_, err = CoerceString(ir.IRArray{})
	assert.Error(t, err)
}

func TestCoerceFor(t *testing.T) {
	for _, typ := range []string{"string", "int", "bool"} {
		fn, err := CoerceFor(typ)
		require.NoError(t, err)
		assert.NotNil(t, fn)
	}
	_, err := CoerceFor("float")
	assert.Error(t, err)
}

func TestFields_Ordered(t *testing.T) {
	fs := Fields("b", "1", "a", 2, "c", true)

	assert.Equal(t, []string{"b", "a", "c"}, fs.Names())
	v, ok := fs.Get("a")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(2), v)

	_, ok = fs.Get("z")
	assert.False(t, ok)
}

func TestFields_OddArgsPanics(t *testing.T) {
	assert.Panics(t, func() { Fields("a") })
}

func TestFieldSet_Without(t *testing.T) {
	fs := Fields("title", "T1", "active", "yes")

	rest := fs.Without("title")
	assert.Equal(t, []string{"active"}, rest.Names())
	assert.Len(t, fs, 2, "original untouched")
}

func TestFieldSetFromMap_SortedByName(t *testing.T) {
	fs, err := FieldSetFromMap(map[string]any{"rank": 3, "active": true, "bar_field": "x"})
	require.NoError(t, err)

	assert.Equal(t, FieldSet{
		{Name: "active", Value: ir.IRBool(true)},
		{Name: "bar_field", Value: ir.IRString("x")},
		{Name: "rank", Value: ir.IRInt(3)},
	}, fs)
}

func TestFieldSetFromMap_RejectsFloat(t *testing.T) {
	_, err := FieldSetFromMap(map[string]any{"rank": 1.5})
	assert.ErrorContains(t, err, "rank")
}

func TestAccessor_WrongEntityType(t *testing.T) {
	acc := StringField(func(e *example) string { return e.FooField }, func(e *example, v string) { e.FooField = v })

	_, err := acc.Get(&otherEntity{})
	assert.Error(t, err)
}

func TestAccessors_Names(t *testing.T) {
	f, _ := newTestFactory()
	assert.Equal(t, []string{"active", "bar_field", "foo_field", "rank"}, f.Fields().Names())
}

func TestDiff_FieldsSorted(t *testing.T) {
	d := Diff{"z": {}, "a": {}, "m": {}}
	assert.Equal(t, []string{"a", "m", "z"}, d.Fields())
}

func TestMatchState_String(t *testing.T) {
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "matched", Matched.String())
	assert.Equal(t, "mismatched", Mismatched.String())
}

type otherEntity struct {
	example
}

func (o *otherEntity) Kind() string { return "other" }
