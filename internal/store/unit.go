package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/beentity/internal/ir"
)

var (
	// ErrNilEntity is returned when a nil entity is persisted or removed.
	ErrNilEntity = errors.New("store: nil entity")
	// ErrNotManaged is returned when removing an entity that was never persisted or loaded.
	ErrNotManaged = errors.New("store: entity is not managed")
)

// unitOfWork tracks managed entities and staged changes between flushes.
// Slices keep insertion order so scans and flushes are deterministic.
type unitOfWork struct {
	identity map[string]Entity
	order    []string

	dirty      map[string]bool
	dirtyOrder []string

	removed      map[string]bool
	removedOrder []string
}

func newUnitOfWork() *unitOfWork {
	return &unitOfWork{
		identity: make(map[string]Entity),
		dirty:    make(map[string]bool),
		removed:  make(map[string]bool),
	}
}

func (u *unitOfWork) manage(e Entity) {
	key := e.Key()
	if _, ok := u.identity[key]; !ok {
		u.order = append(u.order, key)
	}
	u.identity[key] = e
}

func (u *unitOfWork) detach(key string) {
	delete(u.identity, key)
	u.order = without(u.order, key)
	if u.dirty[key] {
		delete(u.dirty, key)
		u.dirtyOrder = without(u.dirtyOrder, key)
	}
}

func (u *unitOfWork) markDirty(key string) {
	if u.removed[key] {
		delete(u.removed, key)
		u.removedOrder = without(u.removedOrder, key)
	}
	if !u.dirty[key] {
		u.dirty[key] = true
		u.dirtyOrder = append(u.dirtyOrder, key)
	}
}

func (u *unitOfWork) markRemoved(key string) {
	u.detach(key)
	if !u.removed[key] {
		u.removed[key] = true
		u.removedOrder = append(u.removedOrder, key)
	}
}

func (u *unitOfWork) pending() int {
	return len(u.dirtyOrder) + len(u.removedOrder)
}

func without(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i:i], keys[i+1:]...)
		}
	}
	return keys
}

// Persist stages an entity for insert or update on the next Flush.
// A key is assigned on first persist. Persisting an already staged entity is a no-op.
func (s *Store) Persist(e Entity) error {
	if e == nil {
		return ErrNilEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Key() == "" {
		e.SetKey(s.keys.Generate())
	}
	s.unit.manage(e)
	s.unit.markDirty(e.Key())
	return nil
}

// Remove stages a deletion for the next Flush and detaches the entity.
func (s *Store) Remove(e Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	if e.Key() == "" {
		return fmt.Errorf("remove %s: %w", e.Kind(), ErrNotManaged)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unit.markRemoved(e.Key())
	return nil
}

// Pending returns the number of staged inserts, updates and deletions.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unit.pending()
}

// Clear detaches every managed entity and discards unflushed changes.
// The next FindOne reloads committed state from the database.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unit = newUnitOfWork()
}

// Flush writes every staged change in one transaction.
// Upserts are applied in staging order, then deletions.
// On failure nothing is committed and the staged changes are kept.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unit.pending() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("flush: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, key := range s.unit.dirtyOrder {
		e := s.unit.identity[key]
		if err := s.writeEntity(ctx, tx, e); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}

	for _, key := range s.unit.removedOrder {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", key); err != nil {
			return fmt.Errorf("flush: delete %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flush: commit: %w", err)
	}

	s.unit.dirty = make(map[string]bool)
	s.unit.dirtyOrder = nil
	s.unit.removed = make(map[string]bool)
	s.unit.removedOrder = nil
	return nil
}

// DeleteKind deletes every committed entity of a kind immediately, outside the
// unit of work, and detaches managed entities of that kind.
// Returns the number of committed rows deleted.
func (s *Store) DeleteKind(ctx context.Context, kind string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM entities WHERE kind = ?", kind)
	if err != nil {
		return 0, fmt.Errorf("delete kind %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete kind %s: %w", kind, err)
	}

	for _, key := range append([]string(nil), s.unit.order...) {
		if s.unit.identity[key].Kind() == kind {
			s.unit.detach(key)
		}
	}
	return n, nil
}

// FindOne returns the first entity of the kind whose attributes equal every
// criteria value, or nil when none matches.
//
// Managed entities are checked first using their in-memory state, so staged
// inserts and updates are visible before Flush. Committed rows are checked
// next, skipping rows that are managed or staged for removal.
func (s *Store) FindOne(ctx context.Context, kind Kind, criteria ir.IRObject) (Entity, error) {
	if kind.New == nil {
		return nil, fmt.Errorf("find %s: kind has no constructor", kind.Name)
	}

	// Stored strings are NFC normalized, so criteria are too.
	criteria, _ = ir.NormalizeNFC(criteria).(ir.IRObject)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.unit.order {
		e := s.unit.identity[key]
		if e.Kind() != kind.Name {
			continue
		}
		attrs, err := e.Attributes()
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", kind.Name, err)
		}
		if matchCriteria(attrs, criteria) {
			return e, nil
		}
	}

	rows, err := s.queryKind(ctx, kind.Name, criteria)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", kind.Name, err)
	}

	for _, row := range rows {
		if _, managed := s.unit.identity[row.id]; managed || s.unit.removed[row.id] {
			continue
		}
		e := kind.New()
		if e.Kind() != kind.Name {
			return nil, fmt.Errorf("find %s: constructor returned kind %q", kind.Name, e.Kind())
		}
		if err := e.Restore(row.attrs); err != nil {
			return nil, fmt.Errorf("find %s: restore %s: %w", kind.Name, row.id, err)
		}
		e.SetKey(row.id)
		s.unit.manage(e)
		return e, nil
	}

	return nil, nil
}

// matchCriteria reports whether attrs holds every criteria value exactly.
// Attribute strings are compared in NFC form; criteria must already be normalized.
func matchCriteria(attrs, criteria ir.IRObject) bool {
	for key, want := range criteria {
		got, ok := attrs[key]
		if !ok || !ir.Equal(want, ir.NormalizeNFC(got)) {
			return false
		}
	}
	return true
}
