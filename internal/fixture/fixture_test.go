package fixture

import (
	"context"
	"errors"

	"github.com/roach88/beentity/internal/ir"
	"github.com/roach88/beentity/internal/store"
)

// example is the entity used throughout these tests.
type example struct {
	store.Model
	FooField string
	BarField string
	Active   bool
	Rank     int64
}

var exampleKind = store.Kind{Name: "example", New: func() store.Entity { return &example{} }}

func (e *example) Kind() string { return "example" }

func (e *example) Attributes() (ir.IRObject, error) {
	return ir.IRObject{
		"foo_field": ir.IRString(e.FooField),
		"bar_field": ir.IRString(e.BarField),
		"active":    ir.IRBool(e.Active),
		"rank":      ir.IRInt(e.Rank),
	}, nil
}

func (e *example) Restore(attrs ir.IRObject) error {
	e.FooField = ir.Text(attrs["foo_field"])
	e.BarField = ir.Text(attrs["bar_field"])
	if b, ok := attrs["active"].(ir.IRBool); ok {
		e.Active = bool(b)
	}
	if n, ok := attrs["rank"].(ir.IRInt); ok {
		e.Rank = int64(n)
	}
	return nil
}

// exampleFactory locates examples by foo_field.
type exampleFactory struct {
	Base
	finds int
}

func newExampleFactory(d Deps) Factory {
	return &exampleFactory{Base: Base{Deps: d}}
}

func (f *exampleFactory) Find(ctx context.Context, identifier string) (store.Entity, error) {
	f.finds++
	return f.FindBy(ctx, exampleKind, "foo_field", identifier)
}

func (f *exampleFactory) New(_ context.Context, identifier string) (store.Entity, error) {
	return &example{FooField: identifier, Active: true}, nil
}

func (f *exampleFactory) Purge(ctx context.Context) error {
	return f.PurgeKind(ctx, exampleKind.Name)
}

func (f *exampleFactory) Fields() Accessors {
	return Accessors{
		"foo_field": StringField(func(e *example) string { return e.FooField }, func(e *example, v string) { e.FooField = v }),
		"bar_field": StringField(func(e *example) string { return e.BarField }, func(e *example, v string) { e.BarField = v }),
		"active":    BoolField(func(e *example) bool { return e.Active }, func(e *example, v bool) { e.Active = v }),
		"rank":      IntField(func(e *example) int64 { return e.Rank }, func(e *example, v int64) { e.Rank = v }),
	}
}

// fakeGateway is an in-memory Gateway that records calls.
type fakeGateway struct {
	entities []store.Entity
	calls    []string
	findErr  error
	nextKey  int
}

func (g *fakeGateway) FindOne(_ context.Context, kind store.Kind, criteria ir.IRObject) (store.Entity, error) {
	g.calls = append(g.calls, "find")
	if g.findErr != nil {
		return nil, g.findErr
	}
	for _, e := range g.entities {
		if e.Kind() != kind.Name {
			continue
		}
		attrs, err := e.Attributes()
		if err != nil {
			return nil, err
		}
		ok := true
		for k, v := range criteria {
			if !ir.Equal(attrs[k], v) {
				ok = false
			}
		}
		if ok {
			return e, nil
		}
	}
	return nil, nil
}

func (g *fakeGateway) Persist(e store.Entity) error {
	g.calls = append(g.calls, "persist")
	if e.Key() == "" {
		g.nextKey++
		e.SetKey(string(rune('a' + g.nextKey - 1)))
		g.entities = append(g.entities, e)
	}
	return nil
}

func (g *fakeGateway) Remove(e store.Entity) error {
	g.calls = append(g.calls, "remove")
	for i, other := range g.entities {
		if other == e {
			g.entities = append(g.entities[:i], g.entities[i+1:]...)
			return nil
		}
	}
	return errors.New("not managed")
}

func (g *fakeGateway) DeleteKind(_ context.Context, kind string) (int64, error) {
	g.calls = append(g.calls, "delete_kind")
	var kept []store.Entity
	var n int64
	for _, e := range g.entities {
		if e.Kind() == kind {
			n++
			continue
		}
		kept = append(kept, e)
	}
	g.entities = kept
	return n, nil
}

func (g *fakeGateway) Flush(context.Context) error {
	g.calls = append(g.calls, "flush")
	return nil
}

func (g *fakeGateway) Clear() {
	g.calls = append(g.calls, "clear")
}

func newTestFactory() (*exampleFactory, *fakeGateway) {
	gw := &fakeGateway{}
	m := NewManager(gw)
	f := newExampleFactory(Deps{Gateway: gw, Manager: m, Type: "Example"}).(*exampleFactory)
	return f, gw
}
