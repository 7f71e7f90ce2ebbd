package observe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recorder collects events from a channel.
type recorder struct {
	events []AccessEvent
}

func record(ch *Channel) *recorder {
	r := &recorder{}
	ch.Subscribe(func(e AccessEvent) {
		r.events = append(r.events, e)
	})
	return r
}

func read(path ...string) AccessEvent {
	return AccessEvent{Kind: Read, Path: path}
}

func write(path ...string) AccessEvent {
	return AccessEvent{Kind: Write, Path: path}
}

func assertEvents(t *testing.T, got []AccessEvent, want ...AccessEvent) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func sample() map[string]any {
	return map[string]any{
		"a": "hello",
		"b": map[string]any{"c": "world"},
	}
}

func mustWrap(t *testing.T, g *Graph, target any) (*Node, *Channel) {
	t.Helper()
	n, ch, err := g.Wrap(target)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	return n, ch
}

func child(t *testing.T, n *Node, key string) *Node {
	t.Helper()
	c, ok := n.Get(key).(*Node)
	if !ok {
		t.Fatalf("%q is %T, want *Node", key, n.Peek(key))
	}
	return c
}
