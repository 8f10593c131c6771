package entities

import (
	"context"
	"fmt"
	"maps"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/ir"
	"github.com/roach88/beentity/internal/schema"
	"github.com/roach88/beentity/internal/store"
)

// Record is the entity behind declared types. Its fields live in a value map
// keyed by the declared field names.
type Record struct {
	store.Model
	kind   string
	values ir.IRObject
}

func (r *Record) Kind() string { return r.kind }

// Value returns a field value, or nil when unset.
func (r *Record) Value(name string) ir.IRValue {
	return r.values[name]
}

// Attributes implements store.Entity.
func (r *Record) Attributes() (ir.IRObject, error) {
	return maps.Clone(r.values), nil
}

// Restore implements store.Entity.
func (r *Record) Restore(attrs ir.IRObject) error {
	maps.Copy(r.values, attrs)
	return nil
}

// DeclaredFactory provisions entities described by a schema.EntityDef.
type DeclaredFactory struct {
	fixture.Base
	def  schema.EntityDef
	kind store.Kind
}

// DeclaredConstructor returns the fixture.Constructor for def.
func DeclaredConstructor(def schema.EntityDef) fixture.Constructor {
	kind := store.Kind{Name: def.Kind, New: func() store.Entity { return newRecord(def) }}
	return func(d fixture.Deps) fixture.Factory {
		return &DeclaredFactory{Base: fixture.Base{Deps: d}, def: def, kind: kind}
	}
}

// newRecord builds an empty record with every declared field at its default,
// or the type's zero value.
func newRecord(def schema.EntityDef) *Record {
	values := make(ir.IRObject, len(def.Fields))
	for _, field := range def.Fields {
		if field.Default != nil {
			values[field.Name] = field.Default
			continue
		}
		values[field.Name] = zeroValue(field.Type)
	}
	return &Record{kind: def.Kind, values: values}
}

func zeroValue(typ string) ir.IRValue {
	switch typ {
	case "int":
		return ir.IRInt(0)
	case "bool":
		return ir.IRBool(false)
	default:
		return ir.IRString("")
	}
}

// Definition returns the declaration the factory was built from.
func (f *DeclaredFactory) Definition() schema.EntityDef {
	return f.def
}

func (f *DeclaredFactory) Find(ctx context.Context, identifier string) (store.Entity, error) {
	return f.FindBy(ctx, f.kind, f.def.Identifier, identifier)
}

func (f *DeclaredFactory) New(_ context.Context, identifier string) (store.Entity, error) {
	r := newRecord(f.def)
	r.values[f.def.Identifier] = ir.IRString(identifier)
	return r, nil
}

func (f *DeclaredFactory) Purge(ctx context.Context) error {
	return f.PurgeKind(ctx, f.kind.Name)
}

func (f *DeclaredFactory) Fields() fixture.Accessors {
	accessors := make(fixture.Accessors, len(f.def.Fields))
	for _, field := range f.def.Fields {
		coerce, err := fixture.CoerceFor(field.Type)
		if err != nil {
			continue
		}
		name := field.Name
		accessors[name] = fixture.Accessor{
			Type:   field.Type,
			Coerce: coerce,
			Get: func(e store.Entity) (ir.IRValue, error) {
				r, ok := e.(*Record)
				if !ok {
					return nil, fmt.Errorf("%s accessor used on %T", name, e)
				}
				if v, ok := r.values[name]; ok {
					return v, nil
				}
				return zeroValue(field.Type), nil
			},
			Set: func(_ context.Context, e store.Entity, v ir.IRValue) error {
				r, ok := e.(*Record)
				if !ok {
					return fmt.Errorf("%s accessor used on %T", name, e)
				}
				r.values[name] = v
				return nil
			},
		}
	}
	return accessors
}

// restore copies typed attributes into struct fields. Absent attributes leave
// the field unchanged; a type mismatch is an error.
func restore(attrs ir.IRObject, targets map[string]any) error {
	for name, target := range targets {
		v, ok := attrs[name]
		if !ok {
			continue
		}
		switch dst := target.(type) {
		case *string:
			s, ok := v.(ir.IRString)
			if !ok {
				return fmt.Errorf("restore %s: expected string, got %s", name, ir.KindName(v))
			}
			*dst = string(s)
		case *int64:
			n, ok := v.(ir.IRInt)
			if !ok {
				return fmt.Errorf("restore %s: expected int, got %s", name, ir.KindName(v))
			}
			*dst = int64(n)
		case *bool:
			b, ok := v.(ir.IRBool)
			if !ok {
				return fmt.Errorf("restore %s: expected bool, got %s", name, ir.KindName(v))
			}
			*dst = bool(b)
		default:
			return fmt.Errorf("restore %s: unsupported target %T", name, target)
		}
	}
	return nil
}
