package fixture

import (
	"context"
	"fmt"

	"github.com/roach88/beentity/internal/ir"
	"github.com/roach88/beentity/internal/store"
)

// Gateway is the persistence contract factories work against.
// *store.Store implements it.
type Gateway interface {
	FindOne(ctx context.Context, kind store.Kind, criteria ir.IRObject) (store.Entity, error)
	Persist(e store.Entity) error
	Remove(e store.Entity) error
	DeleteKind(ctx context.Context, kind string) (int64, error)
	Flush(ctx context.Context) error
	Clear()
}

var _ Gateway = (*store.Store)(nil)

// Factory is the per-type policy for finding, creating and purging entities.
//
// Find and New receive the scenario identifier and map it to whatever
// uniqueness criterion the type uses. New returns an unpersisted entity with
// the identifier-derived defaults applied. The shared reconciliation logic
// lives in the package functions Locate, Create, Provide and Matches.
type Factory interface {
	Find(ctx context.Context, identifier string) (store.Entity, error)
	New(ctx context.Context, identifier string) (store.Entity, error)
	Purge(ctx context.Context) error
	Fields() Accessors
}

// Named is implemented by factories that know the type name they were
// registered under. Base implements it.
type Named interface {
	TypeName() string
}

// TypeName returns the registered name of f, or its Go type when f is not Named.
func TypeName(f Factory) string {
	if n, ok := f.(Named); ok && n.TypeName() != "" {
		return n.TypeName()
	}
	return fmt.Sprintf("%T", f)
}

// Locate finds the entity for identifier. When required is true a missing
// entity is a *MissingEntityError; otherwise it is a nil entity and nil error.
func Locate(ctx context.Context, f Factory, identifier string, required bool) (store.Entity, error) {
	e, err := f.Find(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("locate %s %q: %w", TypeName(f), identifier, err)
	}
	if e == nil && required {
		return nil, &MissingEntityError{Factory: TypeName(f), Identifier: identifier}
	}
	return e, nil
}

// Create builds a new entity for identifier, applies fields and stages it.
// Nothing is committed.
func Create(ctx context.Context, f Factory, gw Gateway, identifier string, fields FieldSet) (store.Entity, error) {
	e, err := f.New(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("create %s %q: %w", TypeName(f), identifier, err)
	}
	if err := Apply(ctx, f, gw, e, fields); err != nil {
		return nil, err
	}
	return e, nil
}

// Provide guarantees an entity exists for identifier with the listed fields set.
// An existing entity has only the listed fields changed; a missing one is
// created. Repeated calls never create duplicates. Nothing is committed.
func Provide(ctx context.Context, f Factory, gw Gateway, identifier string, fields FieldSet) (store.Entity, error) {
	e, err := Locate(ctx, f, identifier, false)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return Create(ctx, f, gw, identifier, fields)
	}
	if err := Apply(ctx, f, gw, e, fields); err != nil {
		return nil, err
	}
	return e, nil
}

// Apply sets every listed field through its accessor, then stages the entity.
func Apply(ctx context.Context, f Factory, gw Gateway, e store.Entity, fields FieldSet) error {
	accessors := f.Fields()
	for _, field := range fields {
		acc, ok := accessors[field.Name]
		if !ok {
			return &UnknownFieldError{Type: TypeName(f), Field: field.Name}
		}
		v, err := acc.Coerce(field.Value)
		if err == nil {
			err = acc.Set(ctx, e, v)
		}
		if err != nil {
			return &FieldValueError{Type: TypeName(f), Field: field.Name, Value: field.Value, Err: err}
		}
	}
	if err := gw.Persist(e); err != nil {
		return fmt.Errorf("persist %s: %w", TypeName(f), err)
	}
	return nil
}

// Matches compares the listed fields of the entity for identifier.
//
// Each expected value is coerced through the field's accessor and compared
// with the accessor's Equal, or ir.Equal when it has none. A value that cannot
// be coerced is a mismatch. Unlisted fields never appear in the diff.
func Matches(ctx context.Context, f Factory, identifier string, fields FieldSet) (Match, error) {
	e, err := Locate(ctx, f, identifier, false)
	if err != nil {
		return Match{}, err
	}
	if e == nil {
		return Match{State: NotFound}, nil
	}

	accessors := f.Fields()
	diff := Diff{}
	for _, field := range fields {
		acc, ok := accessors[field.Name]
		if !ok {
			return Match{}, &UnknownFieldError{Type: TypeName(f), Field: field.Name}
		}
		actual, err := acc.Get(e)
		if err != nil {
			return Match{}, fmt.Errorf("read %s.%s: %w", TypeName(f), field.Name, err)
		}
		if !fieldEqual(acc, field.Value, actual) {
			diff[field.Name] = Mismatch{Expected: field.Value, Actual: actual}
		}
	}

	if len(diff) > 0 {
		return Match{State: Mismatched, Diff: diff}, nil
	}
	return Match{State: Matched}, nil
}

func fieldEqual(acc Accessor, expected, actual ir.IRValue) bool {
	want, err := acc.Coerce(expected)
	if err != nil {
		return false
	}
	if acc.Equal != nil {
		return acc.Equal(want, actual)
	}
	return ir.Equal(want, ir.NormalizeNFC(actual))
}
