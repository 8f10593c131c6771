package schema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/beentity/internal/ir"
)

// EntityDef is a compiled entity declaration.
type EntityDef struct {
	Name       string     // Type name used in scenarios, e.g. "Dummy"
	Kind       string     // Stored kind, defaults to the lowercased name
	Identifier string     // Field the scenario identifier maps to
	Fields     []FieldDef // Declaration order
	Pos        token.Pos
}

// FieldDef is one declared field.
type FieldDef struct {
	Name    string
	Type    string     // "string", "int" or "bool"
	Default ir.IRValue // nil when the field has no default
}

// Field returns the named field definition.
func (d *EntityDef) Field(name string) (FieldDef, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Compile parses a CUE value into an EntityDef.
//
// The CUE value should be the entity struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: Dummy: { identifier: "title", fields: { title: string } }`)
//	def, err := Compile(v.LookupPath(cue.ParsePath("entity.Dummy")))
func Compile(v cue.Value) (*EntityDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &EntityDef{Pos: v.Pos()}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}
	def.Kind = strings.ToLower(def.Name)

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if kindVal.Exists() {
		kind, err := kindVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if kind == "" {
			return nil, &CompileError{Field: "kind", Message: "kind must not be empty", Pos: kindVal.Pos()}
		}
		def.Kind = kind
	}

	fields, err := parseFields(v)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, &CompileError{
			Field:   "fields",
			Message: "at least one field is required",
			Pos:     v.Pos(),
		}
	}
	def.Fields = fields

	idVal := v.LookupPath(cue.ParsePath("identifier"))
	if !idVal.Exists() {
		return nil, &CompileError{
			Field:   "identifier",
			Message: "identifier is required",
			Pos:     v.Pos(),
		}
	}
	identifier, err := idVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	field, ok := def.Field(identifier)
	if !ok {
		return nil, &CompileError{
			Field:   "identifier",
			Message: fmt.Sprintf("identifier %q is not a declared field", identifier),
			Pos:     idVal.Pos(),
		}
	}
	if field.Type != "string" {
		return nil, &CompileError{
			Field:   "identifier",
			Message: fmt.Sprintf("identifier %q must be a string field, got %s", identifier, field.Type),
			Pos:     idVal.Pos(),
		}
	}
	def.Identifier = identifier

	return def, nil
}

// parseFields extracts field declarations in declaration order.
func parseFields(v cue.Value) ([]FieldDef, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []FieldDef
	for iter.Next() {
		fieldVal := iter.Value()
		typ, err := extractTypeName(fieldVal)
		if err != nil {
			return nil, err
		}

		field := FieldDef{Name: iter.Label(), Type: typ}
		field.Default, err = extractDefault(fieldVal, typ)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// extractTypeName converts a CUE type to a field type name.
// Floats are forbidden; lists and structs cannot be set from a table cell.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	case cue.ListKind, cue.StructKind:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("%v fields are not supported - use string, int or bool", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// extractDefault returns the field's default (`bool | *true`) or its concrete
// value, or nil when the field is only a type.
func extractDefault(v cue.Value, typ string) (ir.IRValue, error) {
	d, ok := v.Default()
	if !ok {
		if !v.IsConcrete() {
			return nil, nil
		}
		d = v
	}

	switch typ {
	case "string":
		s, err := d.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case "int":
		n, err := d.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case "bool":
		b, err := d.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	default:
		return nil, &CompileError{Field: "default", Message: "unsupported default", Pos: v.Pos()}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
