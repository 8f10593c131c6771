package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/ir"
	"github.com/roach88/beentity/internal/store"
	"github.com/roach88/beentity/internal/testutil"
)

// dummy is a titled record with an active flag.
type dummy struct {
	store.Model
	Title  string
	Active bool
	Rank   int64
}

var dummyKind = store.Kind{Name: "dummy", New: func() store.Entity { return &dummy{} }}

func (d *dummy) Kind() string { return "dummy" }

func (d *dummy) Attributes() (ir.IRObject, error) {
	return ir.IRObject{
		"title":  ir.IRString(d.Title),
		"active": ir.IRBool(d.Active),
		"rank":   ir.IRInt(d.Rank),
	}, nil
}

func (d *dummy) Restore(attrs ir.IRObject) error {
	d.Title = ir.Text(attrs["title"])
	if b, ok := attrs["active"].(ir.IRBool); ok {
		d.Active = bool(b)
	}
	if n, ok := attrs["rank"].(ir.IRInt); ok {
		d.Rank = int64(n)
	}
	return nil
}

type dummyFactory struct {
	fixture.Base
}

func newDummyFactory(d fixture.Deps) fixture.Factory {
	return &dummyFactory{Base: fixture.Base{Deps: d}}
}

func (f *dummyFactory) Find(ctx context.Context, identifier string) (store.Entity, error) {
	return f.FindBy(ctx, dummyKind, "title", identifier)
}

func (f *dummyFactory) New(_ context.Context, identifier string) (store.Entity, error) {
	return &dummy{Title: identifier, Active: true}, nil
}

func (f *dummyFactory) Purge(ctx context.Context) error {
	return f.PurgeKind(ctx, dummyKind.Name)
}

func (f *dummyFactory) Fields() fixture.Accessors {
	return fixture.Accessors{
		"title":  fixture.StringField(func(d *dummy) string { return d.Title }, func(d *dummy, v string) { d.Title = v }),
		"active": fixture.BoolField(func(d *dummy) bool { return d.Active }, func(d *dummy, v bool) { d.Active = v }),
		"rank":   fixture.IntField(func(d *dummy) int64 { return d.Rank }, func(d *dummy, v int64) { d.Rank = v }),
	}
}

// recordingGateway wraps a real store and records the calls that change
// commit or cache state.
type recordingGateway struct {
	*store.Store
	calls   []string
	failOn  string
	failErr error
}

func (g *recordingGateway) DeleteKind(ctx context.Context, kind string) (int64, error) {
	g.calls = append(g.calls, "purge")
	return g.Store.DeleteKind(ctx, kind)
}

func (g *recordingGateway) Persist(e store.Entity) error {
	g.calls = append(g.calls, "persist")
	return g.Store.Persist(e)
}

func (g *recordingGateway) Flush(ctx context.Context) error {
	g.calls = append(g.calls, "flush")
	if g.failOn == "flush" {
		return g.failErr
	}
	return g.Store.Flush(ctx)
}

func (g *recordingGateway) Clear() {
	g.calls = append(g.calls, "clear")
	g.Store.Clear()
}

func (g *recordingGateway) count(call string) int {
	n := 0
	for _, c := range g.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (g *recordingGateway) reset() {
	g.calls = nil
}

func registerDummy(m *fixture.Manager) error {
	return m.Register("Dummy", newDummyFactory)
}

func newTestContext(t *testing.T, opts ...Option) (*Context, *recordingGateway) {
	t.Helper()
	gw := &recordingGateway{Store: testutil.OpenStore(t)}
	opts = append([]Option{WithRegistrar(registerDummy)}, opts...)
	return New(gw, opts...), gw
}

func mustTable(t *testing.T, rows ...[]string) *Table {
	t.Helper()
	table, err := TableFromRows(rows)
	require.NoError(t, err)
	return table
}

func committedCount(t *testing.T, gw *recordingGateway) int {
	t.Helper()
	n, err := gw.Store.Count(context.Background(), dummyKind.Name)
	require.NoError(t, err)
	return n
}
