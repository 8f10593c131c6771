package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/roach88/beentity/internal/ir"
	"github.com/roach88/beentity/internal/store"
)

var (
	ErrDuplicateFactory = errors.New("factory already registered")
	ErrEmptyTypeName    = errors.New("empty type name")
	ErrNilConstructor   = errors.New("nil factory constructor")
)

// Deps are injected into every factory the Manager builds.
type Deps struct {
	Gateway Gateway
	Manager *Manager
	Type    string // Name the factory was registered under
}

// Constructor builds a factory from its dependencies.
type Constructor func(Deps) Factory

// Base carries a factory's dependencies. Embed it in concrete factories.
type Base struct {
	Deps
}

// TypeName returns the name the factory was registered under.
func (b Base) TypeName() string {
	return b.Type
}

// Related resolves another factory through the same manager, for factories
// that provision or look up related entities.
func (b Base) Related(typeName string) (Factory, error) {
	if b.Manager == nil {
		return nil, &MissingFactoryError{Type: typeName}
	}
	return b.Manager.CreateFactory(typeName)
}

// FindBy looks up an entity of kind whose field equals value.
func (b Base) FindBy(ctx context.Context, kind store.Kind, field, value string) (store.Entity, error) {
	return b.Gateway.FindOne(ctx, kind, ir.IRObject{field: ir.IRString(value)})
}

// PurgeKind deletes every stored entity of kind.
func (b Base) PurgeKind(ctx context.Context, kind string) error {
	if _, err := b.Gateway.DeleteKind(ctx, kind); err != nil {
		return fmt.Errorf("purge %s: %w", kind, err)
	}
	return nil
}

// Manager resolves type names to factories.
//
// Registration usually happens once at start-up. Every CreateFactory call
// builds a new factory instance; instances are never cached.
type Manager struct {
	gateway Gateway
	logger  *slog.Logger

	mu           sync.RWMutex
	constructors map[string]Constructor
	folded       map[string]string // normalized name -> registered name
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger. Defaults to a discard logger.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates an empty manager bound to gw.
func NewManager(gw Gateway, opts ...ManagerOption) *Manager {
	m := &Manager{
		gateway:      gw,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		constructors: make(map[string]Constructor),
		folded:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Gateway returns the gateway injected into factories.
func (m *Manager) Gateway() Gateway {
	return m.gateway
}

// Register maps typeName to a constructor.
func (m *Manager) Register(typeName string, c Constructor) error {
	if strings.TrimSpace(typeName) == "" {
		return ErrEmptyTypeName
	}
	if c == nil {
		return fmt.Errorf("register %q: %w", typeName, ErrNilConstructor)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.constructors[typeName]; exists {
		return fmt.Errorf("register %q: %w", typeName, ErrDuplicateFactory)
	}
	m.constructors[typeName] = c
	if key := normalizeTypeName(typeName); m.folded[key] == "" {
		m.folded[key] = typeName
	}
	return nil
}

// Types returns the registered type names, sorted.
func (m *Manager) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.constructors))
	for name := range m.constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve returns the registered name for typeName, matching exactly first
// and then ignoring case and spaces ("blog post" finds "BlogPost").
func (m *Manager) Resolve(typeName string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.constructors[typeName]; ok {
		return typeName, true
	}
	name, ok := m.folded[normalizeTypeName(typeName)]
	return name, ok
}

// CreateFactory builds a new factory for typeName.
// An unknown name is a *MissingFactoryError.
func (m *Manager) CreateFactory(typeName string) (Factory, error) {
	name, ok := m.Resolve(typeName)
	if !ok {
		return nil, &MissingFactoryError{Type: typeName}
	}

	m.mu.RLock()
	c := m.constructors[name]
	m.mu.RUnlock()

	m.logger.Debug("create factory", "type", name, "requested", typeName)
	return c(Deps{Gateway: m.gateway, Manager: m, Type: name}), nil
}

func normalizeTypeName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), ""))
}
