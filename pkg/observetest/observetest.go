package observetest

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/pathwatch/pkg/observe"
)

// DocBuilder builds an instrumented document for a test.
type DocBuilder struct {
	t     testing.TB
	graph *observe.Graph
	doc   map[string]any
}

// NewDoc creates a builder for an empty object document on a fresh graph.
func NewDoc(t testing.TB) *DocBuilder {
	return &DocBuilder{
		t:     t,
		graph: observe.New(),
		doc:   make(map[string]any),
	}
}

// With sets a top-level key before the document is instrumented.
//
// Example:
//
//	root, _ := observetest.NewDoc(t).With("b", map[string]any{"c": 1}).Build()
func (b *DocBuilder) With(key string, value any) *DocBuilder {
	b.doc[key] = value
	return b
}

// WithGraph instruments the document on g instead of a fresh graph.
func (b *DocBuilder) WithGraph(g *observe.Graph) *DocBuilder {
	b.graph = g
	return b
}

// Build instruments the document and returns its root and channel.
func (b *DocBuilder) Build() (*observe.Node, *observe.Channel) {
	b.t.Helper()
	root, ch, err := b.graph.Wrap(b.doc)
	if err != nil {
		b.t.Fatalf("observetest: wrap: %v", err)
	}
	return root, ch
}

// Wrap instruments doc on a fresh graph, failing the test on error.
func Wrap(t testing.TB, doc any) (*observe.Node, *observe.Channel) {
	t.Helper()
	root, ch, err := observe.New().Wrap(doc)
	if err != nil {
		t.Fatalf("observetest: wrap: %v", err)
	}
	return root, ch
}

// Child returns n.Get(key) as a node, failing the test if it is not one.
// The Get emits a Read like any other access.
func Child(t testing.TB, n *observe.Node, key string) *observe.Node {
	t.Helper()
	c, ok := n.Get(key).(*observe.Node)
	if !ok {
		t.Fatalf("observetest: %q is %T, want *observe.Node", key, n.Peek(key))
	}
	return c
}

// Recorder collects the events delivered on a channel.
type Recorder struct {
	mu     sync.Mutex
	events []observe.AccessEvent
	sub    *observe.Subscription
}

// Record subscribes a new recorder to ch.
func Record(ch *observe.Channel) *Recorder {
	r := &Recorder{}
	r.sub = ch.Subscribe(func(e observe.AccessEvent) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []observe.AccessEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]observe.AccessEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Stop unsubscribes the recorder. Events already recorded are kept.
func (r *Recorder) Stop() {
	r.sub.Unsubscribe()
}

// Read builds a Read event.
func Read(path ...string) observe.AccessEvent {
	return observe.AccessEvent{Kind: observe.Read, Path: path}
}

// Write builds a Write event.
func Write(path ...string) observe.AccessEvent {
	return observe.AccessEvent{Kind: observe.Write, Path: path}
}

// ExpectEvents asserts that got equals want, in order.
func ExpectEvents(t testing.TB, got []observe.AccessEvent, want ...observe.AccessEvent) {
	t.Helper()
	if len(want) == 0 {
		want = nil
	}
	if len(got) == 0 {
		got = nil
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}
