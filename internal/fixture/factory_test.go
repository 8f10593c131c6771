package fixture

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beentity/internal/ir"
)

func TestLocate_ExistingEntity(t *testing.T) {
	ctx := context.Background()
	f, gw := newTestFactory()
	existing := &example{FooField: "foo"}
	gw.entities = append(gw.entities, existing)

	e, err := Locate(ctx, f, "foo", true)
	require.NoError(t, err)
	assert.Same(t, existing, e)
}

func TestLocate_MissingNotRequired(t *testing.T) {
	f, _ := newTestFactory()

	e, err := Locate(context.Background(), f, "nope", false)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestLocate_MissingRequired(t *testing.T) {
	f, _ := newTestFactory()

	_, err := Locate(context.Background(), f, "nope", true)

	var missing *MissingEntityError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Example", missing.Factory)
	assert.Equal(t, "nope", missing.Identifier)
	assert.ErrorIs(t, err, ErrMissingEntity)
}

func TestLocate_GatewayError(t *testing.T) {
	f, gw := newTestFactory()
	gw.findErr = errors.New("disk on fire")

	_, err := Locate(context.Background(), f, "foo", false)
	assert.ErrorContains(t, err, "disk on fire")
	assert.Empty(t, Kind(err))
}

func TestCreate_SetsIdentifierAndStages(t *testing.T) {
	f, gw := newTestFactory()

	e, err := Create(context.Background(), f, gw, "foo", nil)
	require.NoError(t, err)

	ex := e.(*example)
	assert.Equal(t, "foo", ex.FooField)
	assert.True(t, ex.Active, "identifier defaults applied by New")
	assert.Equal(t, []string{"persist"}, gw.calls, "create stages but never flushes")
}

func TestCreate_SetsOptionalFields(t *testing.T) {
	f, gw := newTestFactory()

	e, err := Create(context.Background(), f, gw, "foo", Fields("bar_field", "bar", "rank", "7"))
	require.NoError(t, err)

	ex := e.(*example)
	assert.Equal(t, "bar", ex.BarField)
	assert.Equal(t, int64(7), ex.Rank)
}

func TestCreate_UnknownField(t *testing.T) {
	f, gw := newTestFactory()

	_, err := Create(context.Background(), f, gw, "foo", Fields("colour", "red"))

	var unknown *UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "colour", unknown.Field)
	assert.Empty(t, gw.entities, "nothing staged on failure")
}

func TestCreate_BadFieldValue(t *testing.T) {
	f, gw := newTestFactory()

	_, err := Create(context.Background(), f, gw, "foo", Fields("rank", "lots"))

	var bad *FieldValueError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "rank", bad.Field)
	assert.Contains(t, err.Error(), `"lots"`)
}

func TestProvide_ExistingEntityOnlyListedFields(t *testing.T) {
	ctx := context.Background()
	f, gw := newTestFactory()
	existing := &example{FooField: "foo", BarField: "old", Rank: 3}
	existing.SetKey("k")
	gw.entities = append(gw.entities, existing)

	e, err := Provide(ctx, f, gw, "foo", Fields("bar_field", "new"))
	require.NoError(t, err)

	assert.Same(t, existing, e)
	assert.Equal(t, "new", existing.BarField)
	assert.Equal(t, int64(3), existing.Rank, "unlisted fields untouched")
	assert.Equal(t, []string{"find", "persist"}, gw.calls)
}

func TestProvide_NewEntity(t *testing.T) {
	f, gw := newTestFactory()

	e, err := Provide(context.Background(), f, gw, "foo", Fields("bar_field", "bar"))
	require.NoError(t, err)

	ex := e.(*example)
	assert.Equal(t, "foo", ex.FooField)
	assert.Equal(t, "bar", ex.BarField)
	assert.Len(t, gw.entities, 1)
}

func TestProvide_Idempotent(t *testing.T) {
	ctx := context.Background()
	f, gw := newTestFactory()

	first, err := Provide(ctx, f, gw, "T1", Fields("foo_field", "T1", "active", true))
	require.NoError(t, err)
	second, err := Provide(ctx, f, gw, "T1", Fields("foo_field", "T1", "active", false))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, gw.entities, 1)
	assert.False(t, second.(*example).Active)
}

func TestMatches_NotFound(t *testing.T) {
	f, _ := newTestFactory()

	m, err := Matches(context.Background(), f, "ghost", Fields("bar_field", "x"))
	require.NoError(t, err)
	assert.Equal(t, NotFound, m.State)
	assert.Empty(t, m.Diff)
}

func TestMatches_AllFieldsEqual(t *testing.T) {
	f, gw := newTestFactory()
	gw.entities = append(gw.entities, &example{FooField: "foo", BarField: "bar", Active: true, Rank: 2})

	m, err := Matches(context.Background(), f, "foo", Fields("bar_field", "bar", "active", "yes", "rank", "2"))
	require.NoError(t, err)
	assert.Equal(t, Matched, m.State)
}

func TestMatches_DiffOnlyListsMismatches(t *testing.T) {
	f, gw := newTestFactory()
	gw.entities = append(gw.entities, &example{FooField: "foo", BarField: "bar", Active: true, Rank: 9})

	m, err := Matches(context.Background(), f, "foo", Fields("bar_field", "baz", "active", "true"))
	require.NoError(t, err)

	assert.Equal(t, Mismatched, m.State)
	assert.Equal(t, Diff{
		"bar_field": {Expected: ir.IRString("baz"), Actual: ir.IRString("bar")},
	}, m.Diff)
	assert.NotContains(t, m.Diff, "rank", "unlisted fields never appear")
}

func TestMatches_UncoercibleIsMismatch(t *testing.T) {
	f, gw := newTestFactory()
	gw.entities = append(gw.entities, &example{FooField: "foo", Active: true})

	m, err := Matches(context.Background(), f, "foo", Fields("active", "maybe"))
	require.NoError(t, err)

	assert.Equal(t, Mismatched, m.State)
	assert.Equal(t, Mismatch{Expected: ir.IRString("maybe"), Actual: ir.IRBool(true)}, m.Diff["active"])
}

func TestMatches_CustomEquality(t *testing.T) {
	gw := &fakeGateway{}
	f := &customEqualFactory{exampleFactory: exampleFactory{Base: Base{Deps: Deps{Gateway: gw, Type: "Example"}}}}
	gw.entities = append(gw.entities, &example{FooField: "foo", BarField: "BAR"})

	m, err := Matches(context.Background(), f, "foo", Fields("bar_field", "bar"))
	require.NoError(t, err)
	assert.Equal(t, Matched, m.State)
}

func TestMatches_UnknownField(t *testing.T) {
	f, gw := newTestFactory()
	gw.entities = append(gw.entities, &example{FooField: "foo"})

	_, err := Matches(context.Background(), f, "foo", Fields("colour", "red"))
	var unknown *UnknownFieldError
	assert.ErrorAs(t, err, &unknown)
}

func TestTypeName_FallsBackToGoType(t *testing.T) {
	f := &exampleFactory{}
	assert.Equal(t, "*fixture.exampleFactory", TypeName(f))
}

// customEqualFactory compares bar_field case-insensitively.
type customEqualFactory struct {
	exampleFactory
}

func (f *customEqualFactory) Fields() Accessors {
	acc := f.exampleFactory.Fields()
	bar := acc["bar_field"]
	bar.Equal = func(expected, actual ir.IRValue) bool {
		return strings.EqualFold(ir.Text(expected), ir.Text(actual))
	}
	acc["bar_field"] = bar
	return acc
}
