package store

import (
	"github.com/roach88/beentity/internal/ir"
)

// Entity is a record the store can stage, flush and reload.
//
// Implementations are typed Go values; the store only sees their kind, key
// and attribute snapshot. Embed Model to get Key and SetKey.
type Entity interface {
	// Kind names the entity type as stored, e.g. "user".
	Kind() string

	// Key returns the store-assigned key, or "" before the first Persist.
	Key() string

	// SetKey is called by the store on first Persist and on reload.
	SetKey(key string)

	// Attributes snapshots the entity's fields for storage and criteria matching.
	Attributes() (ir.IRObject, error)

	// Restore loads a stored attribute snapshot into a fresh entity.
	Restore(attrs ir.IRObject) error
}

// Kind describes an entity type the store can load.
// New must return an empty entity whose Kind() equals Name.
type Kind struct {
	Name string
	New  func() Entity
}

// Model carries the store key. Embed it in entity structs.
type Model struct {
	ID string
}

// Key returns the store-assigned key.
func (m *Model) Key() string {
	return m.ID
}

// SetKey records the store-assigned key.
func (m *Model) SetKey(key string) {
	m.ID = key
}
