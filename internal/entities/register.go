package entities

import (
	"errors"
	"fmt"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/schema"
)

// Built-in type names.
const (
	UserType    = "User"
	ArticleType = "Article"
)

// ErrDuplicateKind is returned when two types would share a stored kind.
var ErrDuplicateKind = errors.New("stored kind already registered")

// Register adds the built-in factories and one factory per declaration.
// Every type must have its own stored kind; built-in kinds are reserved.
func Register(m *fixture.Manager, defs ...schema.EntityDef) error {
	if err := m.Register(UserType, NewUserFactory); err != nil {
		return err
	}
	if err := m.Register(ArticleType, NewArticleFactory); err != nil {
		return err
	}

	owners := map[string]string{UserKind.Name: UserType, ArticleKind.Name: ArticleType}
	for _, def := range defs {
		if owner, ok := owners[def.Kind]; ok {
			if owner == UserType || owner == ArticleType {
				return fmt.Errorf("entity %s: kind %q is reserved by %s: %w", def.Name, def.Kind, owner, ErrDuplicateKind)
			}
			return fmt.Errorf("entity %s: kind %q is used by %s: %w", def.Name, def.Kind, owner, ErrDuplicateKind)
		}
		if err := m.Register(def.Name, DeclaredConstructor(def)); err != nil {
			return fmt.Errorf("entity %s: %w", def.Name, err)
		}
		owners[def.Kind] = def.Name
	}
	return nil
}

// Registrar returns a function that registers the built-ins and defs on a
// manager, for use as a steps.Registrar.
func Registrar(defs ...schema.EntityDef) func(*fixture.Manager) error {
	return func(m *fixture.Manager) error {
		return Register(m, defs...)
	}
}
