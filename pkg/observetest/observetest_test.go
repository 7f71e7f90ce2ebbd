package observetest

import (
	"testing"

	"github.com/vango-dev/pathwatch/pkg/observe"
)

func TestDocBuilder(t *testing.T) {
	g := observe.New()
	root, ch := NewDoc(t).
		With("a", "hello").
		With("b", map[string]any{"c": 1}).
		WithGraph(g).
		Build()

	if root.Channel() != ch {
		t.Error("Build should return the root's channel")
	}
	if g.Len() != 2 {
		t.Errorf("graph tracks %d nodes, want 2", g.Len())
	}
	if v, _ := root.GetPath("b", "c"); v != 1 {
		t.Errorf("b.c = %v, want 1", v)
	}
}

func TestRecorder(t *testing.T) {
	root, ch := Wrap(t, map[string]any{"b": map[string]any{"c": 1}})
	rec := Record(ch)

	Child(t, root, "b").Set("c", 2)
	ExpectEvents(t, rec.Events(), Read("b"), Write("b", "c"))

	rec.Reset()
	ExpectEvents(t, rec.Events())

	rec.Stop()
	root.Set("a", 1)
	ExpectEvents(t, rec.Events())
	if ch.Len() != 0 {
		t.Errorf("listeners after Stop = %d, want 0", ch.Len())
	}
}
