package observe

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/vango-dev/pathwatch/internal/telemetry"
)

// Option configures a Graph.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// WithLogger sets the logger used for link lifecycle debug output.
// If nil, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records events and link changes on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// Graph owns the instrumentation records for every node it wraps.
//
// The side table maps the identity of an instrumented map to its Node, so
// assigning a map that is already part of a graph reuses its Node instead of
// instrumenting it twice. Entries are dropped when a node loses its last
// parent link, or when a root is released.
//
// Node operations are not safe for concurrent use; callers that share a
// graph across goroutines must serialize access themselves.
type Graph struct {
	logger  *slog.Logger
	metrics *telemetry.Metrics

	// mu protects nodes.
	mu    sync.Mutex
	nodes map[uintptr]*Node
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return &Graph{
		logger:  c.logger,
		metrics: c.metrics,
		nodes:   make(map[uintptr]*Node),
	}
}

var defaultGraph = New()

// Wrap instruments target in the package default graph.
// See Graph.Wrap.
func Wrap(target any) (*Node, *Channel, error) {
	return defaultGraph.Wrap(target)
}

// ChannelOf looks v up in the package default graph.
// See Graph.ChannelOf.
func ChannelOf(v any) (*Channel, bool) {
	return defaultGraph.ChannelOf(v)
}

// CanObserve reports whether v can carry instrumentation: a non-nil
// map[string]any, []any, or *Node. Everything else is stored as a leaf.
func CanObserve(v any) bool {
	switch t := v.(type) {
	case *Node:
		return t != nil
	case map[string]any:
		return t != nil
	case []any:
		return t != nil
	default:
		return false
	}
}

// Wrap instruments target and every observable value reachable from it.
// Object-valued properties are replaced in place by their *Node, without
// emitting events. Wrapping a *Node, or a map this graph already tracks,
// returns the existing node.
//
// If Wrap fails, target may already be partly rewritten and should not be
// used again.
func (g *Graph) Wrap(target any) (*Node, *Channel, error) {
	if !CanObserve(target) {
		return nil, nil, ErrNotObservable
	}
	b := &build{}
	n, err := g.wrap(target, b)
	if err != nil {
		b.undo()
		return nil, nil, err
	}
	n.pinned = true
	g.track(n)
	return n, n.ch, nil
}

// ChannelOf returns the channel attached to v if v is an instrumented node,
// or a map this graph tracks. It returns false for plain values.
func (g *Graph) ChannelOf(v any) (*Channel, bool) {
	switch t := v.(type) {
	case *Node:
		if t == nil {
			return nil, false
		}
		return t.ch, true
	case map[string]any:
		if n := g.lookup(t); n != nil {
			return n.ch, true
		}
	}
	return nil, false
}

// Len returns the number of nodes in the side table.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Release drops a root that the caller no longer uses. Its channel listeners
// are removed and it, plus every descendant reachable only through it, is
// removed from the side table. Nodes that still have a parent are left alone.
func (g *Graph) Release(n *Node) {
	if n == nil || n.g != g || len(n.parents) > 0 {
		return
	}
	n.pinned = false
	n.ch.RemoveAll()
	g.releaseSubtree(n)
}

// build records what one top-level wrap instruments, so a failure can be
// rolled back without leaving links into nodes the caller already holds.
type build struct {
	// visiting holds slices under construction, so a slice that contains
	// itself fails with ErrCycle instead of recursing forever.
	visiting map[uintptr]bool
	created  []*Node
	revived  []*Node
}

// undo unlinks every node the build created, newest first, and drops
// revived nodes that are still parentless back out of the side table.
func (b *build) undo() {
	for i := len(b.created) - 1; i >= 0; i-- {
		b.created[i].discard()
	}
	for _, n := range b.revived {
		if len(n.parents) == 0 {
			n.g.releaseSubtree(n)
		}
	}
}

// wrap returns the node for v, instrumenting it if needed.
func (g *Graph) wrap(v any, b *build) (*Node, error) {
	switch t := v.(type) {
	case *Node:
		if t.g == g && !t.tracked {
			b.revived = append(b.revived, t)
		}
		g.track(t)
		return t, nil

	case map[string]any:
		if n := g.lookup(t); n != nil {
			return n, nil
		}
		n := g.newNode()
		n.obj = t
		g.track(n)
		b.created = append(b.created, n)
		for _, key := range n.Keys() {
			if err := n.initChild(key, t[key], b); err != nil {
				return nil, err
			}
		}
		return n, nil

	case []any:
		if len(t) > 0 {
			ptr := reflect.ValueOf(t).Pointer()
			if b.visiting[ptr] {
				return nil, ErrCycle
			}
			if b.visiting == nil {
				b.visiting = make(map[uintptr]bool)
			}
			b.visiting[ptr] = true
			defer delete(b.visiting, ptr)
		}
		n := g.newNode()
		n.arr = t
		n.isArray = true
		g.track(n)
		b.created = append(b.created, n)
		for i, item := range t {
			if err := n.initChild(indexKey(i), item, b); err != nil {
				return nil, err
			}
		}
		return n, nil
	}
	return nil, ErrNotObservable
}

func (g *Graph) newNode() *Node {
	return &Node{
		g:       g,
		id:      nextID(),
		ch:      NewChannel(),
		links:   make(map[string]*link),
		parents: make(map[*Node]int),
	}
}

// identity returns the side-table key for a map node, or false for arrays.
func identity(n *Node) (uintptr, bool) {
	if n.isArray || n.obj == nil {
		return 0, false
	}
	return reflect.ValueOf(n.obj).Pointer(), true
}

func (g *Graph) lookup(m map[string]any) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[reflect.ValueOf(m).Pointer()]
}

// track adds n and any released descendants back to the side table.
// Arrays are counted but not keyed, since a slice header has no stable
// identity.
func (g *Graph) track(n *Node) {
	if n.g != g || n.tracked {
		return
	}
	n.tracked = true
	if key, ok := identity(n); ok {
		g.mu.Lock()
		g.nodes[key] = n
		g.mu.Unlock()
	}
	g.metrics.NodeTracked(1)

	for _, l := range n.links {
		g.track(l.child)
	}
}

func (g *Graph) untrack(n *Node) {
	if n.g != g || !n.tracked {
		return
	}
	n.tracked = false
	if key, ok := identity(n); ok {
		g.mu.Lock()
		if g.nodes[key] == n {
			delete(g.nodes, key)
		}
		g.mu.Unlock()
	}
	g.metrics.NodeTracked(-1)
}

// releaseSubtree untracks root and every descendant whose parents are all
// being released. Pinned roots stay. Forwarding links inside the subtree are
// left in place.
func (g *Graph) releaseSubtree(root *Node) {
	if root.pinned {
		return
	}
	released := map[*Node]bool{root: true}
	queue := []*Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		g.untrack(n)
		for _, l := range n.links {
			c := l.child
			if released[c] || c.pinned {
				continue
			}
			orphan := true
			for p := range c.parents {
				if !released[p] {
					orphan = false
					break
				}
			}
			if orphan {
				released[c] = true
				queue = append(queue, c)
			}
		}
	}
}
