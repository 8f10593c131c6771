package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/beentity/internal/ir"
)

// createTestStore creates a new store in a temp dir with sequential keys.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithKeyGenerator(&seqKeys{}))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type seqKeys struct{ n int }

func (g *seqKeys) Generate() string {
	g.n++
	return fmt.Sprintf("key-%04d", g.n)
}

// widget is a minimal entity used to exercise the store.
type widget struct {
	Model
	Name   string
	Size   int64
	Active bool
	Tags   []string
}

var widgetKind = Kind{Name: "widget", New: func() Entity { return &widget{} }}

func (w *widget) Kind() string { return "widget" }

func (w *widget) Attributes() (ir.IRObject, error) {
	tags := make(ir.IRArray, len(w.Tags))
	for i, tag := range w.Tags {
		tags[i] = ir.IRString(tag)
	}
	return ir.IRObject{
		"name":   ir.IRString(w.Name),
		"size":   ir.IRInt(w.Size),
		"active": ir.IRBool(w.Active),
		"tags":   tags,
	}, nil
}

func (w *widget) Restore(attrs ir.IRObject) error {
	name, ok := attrs["name"].(ir.IRString)
	if !ok {
		return fmt.Errorf("name: expected string, got %s", ir.KindName(attrs["name"]))
	}
	w.Name = string(name)
	if size, ok := attrs["size"].(ir.IRInt); ok {
		w.Size = int64(size)
	}
	if active, ok := attrs["active"].(ir.IRBool); ok {
		w.Active = bool(active)
	}
	w.Tags = nil
	if tags, ok := attrs["tags"].(ir.IRArray); ok {
		for _, tag := range tags {
			w.Tags = append(w.Tags, ir.Text(tag))
		}
	}
	return nil
}

// gadget shares attribute names with widget but is a different kind.
type gadget struct {
	Model
	Name string
}

var gadgetKind = Kind{Name: "gadget", New: func() Entity { return &gadget{} }}

func (g *gadget) Kind() string { return "gadget" }

func (g *gadget) Attributes() (ir.IRObject, error) {
	return ir.IRObject{"name": ir.IRString(g.Name)}, nil
}

func (g *gadget) Restore(attrs ir.IRObject) error {
	g.Name = ir.Text(attrs["name"])
	return nil
}
