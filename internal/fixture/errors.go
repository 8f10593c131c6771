package fixture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/beentity/internal/ir"
)

// Sentinels matched by the typed errors through Is.
// Callers that only care about the category can use errors.Is.
var (
	ErrMissingFactory   = errors.New("missing entity factory")
	ErrMissingEntity    = errors.New("missing entity")
	ErrUnexpectedEntity = errors.New("unexpected entity")
	ErrExpectation      = errors.New("expectation failed")
)

// Error kinds reported by Kind, used by scenario files to name expected failures.
const (
	KindMissingFactory   = "missing_factory"
	KindMissingEntity    = "missing_entity"
	KindUnexpectedEntity = "unexpected_entity"
	KindExpectation      = "expectation"
)

// MissingFactoryError is returned when a type name has no registered factory.
type MissingFactoryError struct {
	Type string // The type name that was requested
}

// Error implements the error interface.
func (e *MissingFactoryError) Error() string {
	return fmt.Sprintf("no entity factory is registered for type %q", e.Type)
}

// Is reports whether target is ErrMissingFactory.
func (e *MissingFactoryError) Is(target error) bool {
	return target == ErrMissingFactory
}

// MissingEntityError is returned by a required Locate that finds nothing.
type MissingEntityError struct {
	Factory    string // Type name of the factory that searched
	Identifier string
}

// Error implements the error interface.
func (e *MissingEntityError) Error() string {
	return fmt.Sprintf("%s factory could not locate an entity for %q", e.Factory, e.Identifier)
}

// Is reports whether target is ErrMissingEntity.
func (e *MissingEntityError) Is(target error) bool {
	return target == ErrMissingEntity
}

// UnexpectedEntityError is returned when an entity exists that a scenario said must not.
type UnexpectedEntityError struct {
	Type       string
	Identifier string
}

// Error implements the error interface.
func (e *UnexpectedEntityError) Error() string {
	return fmt.Sprintf("did not expect to find a %q entity for %q", e.Type, e.Identifier)
}

// Is reports whether target is ErrUnexpectedEntity.
func (e *UnexpectedEntityError) Is(target error) bool {
	return target == ErrUnexpectedEntity
}

// ExpectationError is returned when stored state diverges from a scenario table.
//
// Missing is true when the entity does not exist at all; otherwise Diff holds
// every mismatching field of the first failing row. Failed counts every failing
// row of the table, including the one described.
type ExpectationError struct {
	Type       string
	Identifier string
	Row        int // 1-based table row of the reported failure
	Missing    bool
	Diff       Diff
	Failed     int
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder

	if e.Missing {
		fmt.Fprintf(&buf, "expected a %q entity for %q but none exists", e.Type, e.Identifier)
	} else {
		fmt.Fprintf(&buf, "%q entity %q does not match:", e.Type, e.Identifier)
		for _, name := range e.Diff.Fields() {
			m := e.Diff[name]
			fmt.Fprintf(&buf, "\n  %s: expected %s, got %s", name, quoteValue(m.Expected), quoteValue(m.Actual))
		}
	}

	if e.Row > 0 {
		fmt.Fprintf(&buf, "\n(row %d", e.Row)
		if e.Failed > 1 {
			fmt.Fprintf(&buf, "; %d rows failed", e.Failed)
		}
		buf.WriteByte(')')
	}
	return buf.String()
}

// Is reports whether target is ErrExpectation.
func (e *ExpectationError) Is(target error) bool {
	return target == ErrExpectation
}

// UnknownFieldError is returned when a field set names a field the entity
// type has no accessor for.
type UnknownFieldError struct {
	Type  string
	Field string
}

// Error implements the error interface.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s has no field %q", e.Type, e.Field)
}

// FieldValueError is returned when a value cannot be applied to a field.
type FieldValueError struct {
	Type  string
	Field string
	Value ir.IRValue
	Err   error
}

// Error implements the error interface.
func (e *FieldValueError) Error() string {
	return fmt.Sprintf("%s.%s: cannot set %s: %v", e.Type, e.Field, quoteValue(e.Value), e.Err)
}

// Unwrap returns the underlying cause.
func (e *FieldValueError) Unwrap() error {
	return e.Err
}

// Kind returns the scenario-facing kind of err, or "" when err is not one of
// the four caller-facing fixture errors. Wrapped errors are inspected.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingFactory):
		return KindMissingFactory
	case errors.Is(err, ErrMissingEntity):
		return KindMissingEntity
	case errors.Is(err, ErrUnexpectedEntity):
		return KindUnexpectedEntity
	case errors.Is(err, ErrExpectation):
		return KindExpectation
	default:
		return ""
	}
}

// quoteValue renders strings quoted and other values in their text form.
func quoteValue(v ir.IRValue) string {
	if s, ok := v.(ir.IRString); ok {
		return fmt.Sprintf("%q", string(s))
	}
	return ir.Text(v)
}
