package fixture

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/beentity/internal/ir"
	"github.com/roach88/beentity/internal/store"
)

// Field is one named value in a FieldSet.
type Field struct {
	Name  string
	Value ir.IRValue
}

// FieldSet is an ordered list of fields to set or to check.
// Fields not listed are never touched.
type FieldSet []Field

// Fields builds a FieldSet from alternating name/value pairs.
// Values are converted with ir.From; it panics on an odd argument count or an
// unsupported value, so it is meant for literals in code and tests.
func Fields(pairs ...any) FieldSet {
	if len(pairs)%2 != 0 {
		panic("fixture.Fields: odd number of arguments")
	}
	fs := make(FieldSet, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("fixture.Fields: field name %v is not a string", pairs[i]))
		}
		v, err := ir.From(pairs[i+1])
		if err != nil {
			panic(fmt.Sprintf("fixture.Fields: %s: %v", name, err))
		}
		fs = append(fs, Field{Name: name, Value: v})
	}
	return fs
}

// FieldSetFromMap converts a decoded YAML/JSON map, sorted by key.
func FieldSetFromMap(m map[string]any) (FieldSet, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	fs := make(FieldSet, 0, len(names))
	for _, name := range names {
		v, err := ir.From(m[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fs = append(fs, Field{Name: name, Value: v})
	}
	return fs, nil
}

// Get returns the value of the named field.
func (fs FieldSet) Get(name string) (ir.IRValue, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Without returns a copy of fs with the named field removed.
func (fs FieldSet) Without(name string) FieldSet {
	out := make(FieldSet, 0, len(fs))
	for _, f := range fs {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return out
}

// Names returns field names in order.
func (fs FieldSet) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// Accessor binds a field name to an entity's getter and setter.
//
// Coerce converts incoming values to the field's type. Set receives the
// coerced value. Equal, when set, replaces ir.Equal for Matches and also
// receives the coerced expected value.
type Accessor struct {
	Type   string // "string", "int" or "bool"; informational
	Coerce func(v ir.IRValue) (ir.IRValue, error)
	Get    func(e store.Entity) (ir.IRValue, error)
	Set    func(ctx context.Context, e store.Entity, v ir.IRValue) error
	Equal  func(expected, actual ir.IRValue) bool
}

// Accessors maps field names to accessors for one entity type.
type Accessors map[string]Accessor

// Names returns the field names, sorted.
func (a Accessors) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// StringField builds an accessor for a string field on entities of type E.
func StringField[E store.Entity](get func(E) string, set func(E, string)) Accessor {
	return Accessor{
		Type:   "string",
		Coerce: CoerceString,
		Get: func(e store.Entity) (ir.IRValue, error) {
			typed, err := as[E](e)
			if err != nil {
				return nil, err
			}
			return ir.IRString(get(typed)), nil
		},
		Set: func(_ context.Context, e store.Entity, v ir.IRValue) error {
			typed, err := as[E](e)
			if err != nil {
				return err
			}
			set(typed, string(v.(ir.IRString)))
			return nil
		},
	}
}

// IntField builds an accessor for an integer field on entities of type E.
func IntField[E store.Entity](get func(E) int64, set func(E, int64)) Accessor {
	return Accessor{
		Type:   "int",
		Coerce: CoerceInt,
		Get: func(e store.Entity) (ir.IRValue, error) {
			typed, err := as[E](e)
			if err != nil {
				return nil, err
			}
			return ir.IRInt(get(typed)), nil
		},
		Set: func(_ context.Context, e store.Entity, v ir.IRValue) error {
			typed, err := as[E](e)
			if err != nil {
				return err
			}
			set(typed, int64(v.(ir.IRInt)))
			return nil
		},
	}
}

// BoolField builds an accessor for a boolean field on entities of type E.
func BoolField[E store.Entity](get func(E) bool, set func(E, bool)) Accessor {
	return Accessor{
		Type:   "bool",
		Coerce: CoerceBool,
		Get: func(e store.Entity) (ir.IRValue, error) {
			typed, err := as[E](e)
			if err != nil {
				return nil, err
			}
			return ir.IRBool(get(typed)), nil
		},
		Set: func(_ context.Context, e store.Entity, v ir.IRValue) error {
			typed, err := as[E](e)
			if err != nil {
				return err
			}
			set(typed, bool(v.(ir.IRBool)))
			return nil
		},
	}
}

func as[E store.Entity](e store.Entity) (E, error) {
	typed, ok := e.(E)
	if !ok {
		var zero E
		return zero, fmt.Errorf("accessor for %T used on %T", zero, e)
	}
	return typed, nil
}

// CoerceFor returns the coercion function for a field type name.
func CoerceFor(typ string) (func(ir.IRValue) (ir.IRValue, error), error) {
	switch typ {
	case "string":
		return CoerceString, nil
	case "int":
		return CoerceInt, nil
	case "bool":
		return CoerceBool, nil
	default:
		return nil, fmt.Errorf("unsupported field type %q", typ)
	}
}

// CoerceString accepts any scalar and returns its text form, NFC normalized.
func CoerceString(v ir.IRValue) (ir.IRValue, error) {
	switch val := v.(type) {
	case ir.IRString:
		return ir.NormalizeNFC(val), nil
	case ir.IRInt, ir.IRBool:
		return ir.IRString(ir.Text(val)), nil
	default:
		return nil, fmt.Errorf("expected a string, got %s", ir.KindName(v))
	}
}

// CoerceInt accepts integers and base-10 integer text.
func CoerceInt(v ir.IRValue) (ir.IRValue, error) {
	switch val := v.(type) {
	case ir.IRInt:
		return val, nil
	case ir.IRString:
		n, err := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", string(val))
		}
		return ir.IRInt(n), nil
	default:
		return nil, fmt.Errorf("expected an integer, got %s", ir.KindName(v))
	}
}

var boolWords = map[string]bool{
	"true": true, "yes": true, "y": true, "on": true, "1": true,
	"false": false, "no": false, "n": false, "off": false, "0": false,
}

// CoerceBool accepts booleans, 1 and 0, and the case-folded words
// true/yes/y/on and false/no/n/off.
func CoerceBool(v ir.IRValue) (ir.IRValue, error) {
	switch val := v.(type) {
	case ir.IRBool:
		return val, nil
	case ir.IRInt:
		switch val {
		case 1:
			return ir.IRBool(true), nil
		case 0:
			return ir.IRBool(false), nil
		}
		return nil, fmt.Errorf("expected a boolean, got %d", int64(val))
	case ir.IRString:
		b, ok := boolWords[cases.Fold().String(strings.TrimSpace(string(val)))]
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %q", string(val))
		}
		return ir.IRBool(b), nil
	default:
		return nil, fmt.Errorf("expected a boolean, got %s", ir.KindName(v))
	}
}

// Mismatch records one differing field. Expected is the value as written in
// the scenario, before coercion.
type Mismatch struct {
	Expected ir.IRValue
	Actual   ir.IRValue
}

// Diff maps mismatching field names to their expected and actual values.
// Fields that match are never present.
type Diff map[string]Mismatch

// Fields returns the mismatching field names, sorted.
func (d Diff) Fields() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MatchState is the outcome of Matches.
type MatchState int

const (
	NotFound MatchState = iota
	Matched
	Mismatched
)

// String implements fmt.Stringer.
func (s MatchState) String() string {
	switch s {
	case NotFound:
		return "not_found"
	case Matched:
		return "matched"
	case Mismatched:
		return "mismatched"
	default:
		return fmt.Sprintf("MatchState(%d)", int(s))
	}
}

// Match is the result of comparing a FieldSet against a located entity.
// Diff is non-empty only when State is Mismatched.
type Match struct {
	State MatchState
	Diff  Diff
}
