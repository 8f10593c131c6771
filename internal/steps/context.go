// Package steps binds scenario step sentences and tables to fixture operations.
package steps

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/store"
)

// CommitMode controls when bulk provisioning flushes the gateway.
type CommitMode int

const (
	// CommitPerBatch flushes once after every row of a table is staged.
	// A failing row leaves earlier rows staged but uncommitted. A purge
	// requested with the table has already been committed by then.
	CommitPerBatch CommitMode = iota

	// CommitPerRow flushes after each row. A failing row leaves earlier
	// rows committed.
	CommitPerRow
)

// String implements fmt.Stringer.
func (m CommitMode) String() string {
	switch m {
	case CommitPerBatch:
		return "batch"
	case CommitPerRow:
		return "row"
	default:
		return fmt.Sprintf("CommitMode(%d)", int(m))
	}
}

// ParseCommitMode parses "batch" or "row". Empty means batch.
func ParseCommitMode(s string) (CommitMode, error) {
	switch s {
	case "", "batch":
		return CommitPerBatch, nil
	case "row":
		return CommitPerRow, nil
	default:
		return 0, fmt.Errorf("invalid commit mode %q: must be batch or row", s)
	}
}

// Registrar populates a freshly built default manager.
type Registrar func(*fixture.Manager) error

// Context is the surface scenario steps call. It resolves factories, runs the
// fixture operations and owns flush and clear timing.
//
// Context is not safe for concurrent use; one step runs at a time.
type Context struct {
	gateway   fixture.Gateway
	manager   *fixture.Manager
	registrar Registrar
	mode      CommitMode
	logger    *slog.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithManager injects a factory manager instead of the lazily built default.
func WithManager(m *fixture.Manager) Option {
	return func(c *Context) {
		c.manager = m
	}
}

// WithRegistrar sets the function that registers factories on the default manager.
func WithRegistrar(r Registrar) Option {
	return func(c *Context) {
		c.registrar = r
	}
}

// WithCommitMode sets the bulk commit mode. Defaults to CommitPerBatch.
func WithCommitMode(mode CommitMode) Option {
	return func(c *Context) {
		c.mode = mode
	}
}

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Context over gw.
func New(gw fixture.Gateway, opts ...Option) *Context {
	c := &Context{
		gateway: gw,
		mode:    CommitPerBatch,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Manager returns the factory manager, building the default one bound to the
// same gateway on first use.
func (c *Context) Manager() (*fixture.Manager, error) {
	if c.manager != nil {
		return c.manager, nil
	}

	m := fixture.NewManager(c.gateway, fixture.WithManagerLogger(c.logger))
	if c.registrar != nil {
		if err := c.registrar(m); err != nil {
			return nil, fmt.Errorf("register factories: %w", err)
		}
	}
	c.manager = m
	return m, nil
}

// SetManager replaces the factory manager.
func (c *Context) SetManager(m *fixture.Manager) {
	c.manager = m
}

// CommitMode returns the bulk commit mode.
func (c *Context) CommitMode() CommitMode {
	return c.mode
}

// Factory resolves a factory for typeName.
func (c *Context) Factory(typeName string) (fixture.Factory, error) {
	m, err := c.Manager()
	if err != nil {
		return nil, err
	}
	return m.CreateFactory(typeName)
}

// EnsureEntity provides one entity and commits it.
func (c *Context) EnsureEntity(ctx context.Context, typeName, identifier string, fields fixture.FieldSet) (store.Entity, error) {
	f, err := c.Factory(typeName)
	if err != nil {
		return nil, err
	}

	e, err := fixture.Provide(ctx, f, c.gateway, identifier, fields)
	if err != nil {
		return nil, err
	}
	if err := c.gateway.Flush(ctx); err != nil {
		return nil, fmt.Errorf("commit %s %q: %w", typeName, identifier, err)
	}

	c.logger.Info("entity ensured", "type", typeName, "identifier", identifier, "fields", len(fields))
	return e, nil
}

// EnsureEntities provides one entity per table row. The first cell of each row
// is the identifier and the whole row is the field set. With purgeFirst every
// existing entity of the type is removed before any row is processed.
//
// The factory is resolved once. Commits follow the Context's CommitMode; an
// empty table still commits.
func (c *Context) EnsureEntities(ctx context.Context, typeName string, table *Table, purgeFirst bool) ([]store.Entity, error) {
	f, err := c.Factory(typeName)
	if err != nil {
		return nil, err
	}

	if purgeFirst {
		if err := f.Purge(ctx); err != nil {
			return nil, fmt.Errorf("purge %s: %w", typeName, err)
		}
		c.logger.Debug("entities purged", "type", typeName)
	}

	entities := make([]store.Entity, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		identifier := table.Identifier(i)
		e, err := fixture.Provide(ctx, f, c.gateway, identifier, table.Row(i))
		if err != nil {
			return entities, &RowError{Row: i + 1, Err: err}
		}
		entities = append(entities, e)

		if c.mode == CommitPerRow {
			if err := c.gateway.Flush(ctx); err != nil {
				return entities, &RowError{Row: i + 1, Err: fmt.Errorf("commit %s %q: %w", typeName, identifier, err)}
			}
		}
	}

	if c.mode == CommitPerBatch || table.Len() == 0 {
		if err := c.gateway.Flush(ctx); err != nil {
			return entities, fmt.Errorf("commit %s: %w", typeName, err)
		}
	}

	c.logger.Info("entities ensured", "type", typeName, "rows", table.Len(), "purge", purgeFirst, "commit", c.mode.String())
	return entities, nil
}

// EnsureNoEntity fails with *fixture.UnexpectedEntityError when an entity
// exists for identifier. Unflushed state is discarded first so only committed
// entities count.
func (c *Context) EnsureNoEntity(ctx context.Context, typeName, identifier string) error {
	f, err := c.Factory(typeName)
	if err != nil {
		return err
	}

	c.gateway.Clear()
	e, err := fixture.Locate(ctx, f, identifier, false)
	if err != nil {
		return err
	}
	if e != nil {
		return &fixture.UnexpectedEntityError{Type: typeName, Identifier: identifier}
	}

	c.logger.Debug("entity absent", "type", typeName, "identifier", identifier)
	return nil
}

// AssertEntities checks that every table row names an existing entity whose
// listed fields match. The identifier column locates the entity and the
// remaining columns are compared.
//
// Every row is checked. The first failing row is reported as a
// *fixture.ExpectationError carrying the number of failing rows.
func (c *Context) AssertEntities(ctx context.Context, typeName string, table *Table) error {
	f, err := c.Factory(typeName)
	if err != nil {
		return err
	}

	c.gateway.Clear()

	var first *fixture.ExpectationError
	failed := 0
	for i := 0; i < table.Len(); i++ {
		identifier := table.Identifier(i)
		m, err := fixture.Matches(ctx, f, identifier, table.Expected(i))
		if err != nil {
			return &RowError{Row: i + 1, Err: err}
		}
		if m.State == fixture.Matched {
			continue
		}

		failed++
		if first == nil {
			first = &fixture.ExpectationError{
				Type:       typeName,
				Identifier: identifier,
				Row:        i + 1,
				Missing:    m.State == fixture.NotFound,
				Diff:       m.Diff,
			}
		}
	}

	if first != nil {
		first.Failed = failed
		c.logger.Debug("entities mismatched", "type", typeName, "rows", table.Len(), "failed", failed)
		return first
	}

	c.logger.Debug("entities matched", "type", typeName, "rows", table.Len())
	return nil
}
