package observe

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// link is a forwarding subscription from a child's channel into its parent.
type link struct {
	child *Node
	sub   *Subscription
}

// Node is the instrumented view of one object or array in a graph.
//
// Reads through Get emit a Read event and writes through Set emit a Write
// event, both on the node's own channel with a one-segment path. Every
// parent forwards its children's events with the connecting key prepended,
// so a listener on the root sees full paths.
type Node struct {
	g  *Graph
	id uint64
	ch *Channel

	// obj or arr holds the data, with observable children stored as *Node.
	obj     map[string]any
	arr     []any
	isArray bool

	// links are the forwarding subscriptions from children, by key.
	// A key has at most one link at a time.
	links map[string]*link

	// parents counts the links from this node into each parent.
	parents map[*Node]int

	// tracked reports whether the node is in its graph's side table.
	tracked bool

	// pinned roots returned by Graph.Wrap stay tracked until Release.
	pinned bool
}

// ID returns the unique identifier for this node.
func (n *Node) ID() uint64 {
	return n.id
}

// Channel returns the node's own event channel. Paths on it are relative
// to this node.
func (n *Node) Channel() *Channel {
	return n.ch
}

// IsArray reports whether the node wraps a []any.
func (n *Node) IsArray() bool {
	return n.isArray
}

// Len returns the number of properties or elements. It emits no event.
func (n *Node) Len() int {
	if n.isArray {
		return len(n.arr)
	}
	return len(n.obj)
}

// Keys returns the property keys in sorted order, or the indices of an
// array. It emits no event.
func (n *Node) Keys() []string {
	if n.isArray {
		keys := make([]string, len(n.arr))
		for i := range n.arr {
			keys[i] = indexKey(i)
		}
		return keys
	}
	keys := make([]string, 0, len(n.obj))
	for k := range n.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value at key and emits Read([key]).
// Observable children are returned as *Node. Function values are returned
// without an event, since calling a method is not a data access.
func (n *Node) Get(key string) any {
	v, _ := n.Lookup(key)
	return v
}

// Lookup is Get that also reports whether key is present.
// A missing key still emits a Read: the caller depended on its absence.
func (n *Node) Lookup(key string) (any, bool) {
	v, ok := n.raw(key)
	if !isFunc(v) {
		n.emit(Read, key)
	}
	return v, ok
}

// Peek returns the value at key without emitting an event.
func (n *Node) Peek(key string) any {
	v, _ := n.raw(key)
	return v
}

// GetPath reads each segment in turn, like evaluating root.b.c, so every
// dereference emits its own Read. It returns false if an intermediate value
// is not a node or the final key is absent. The empty path returns n.
func (n *Node) GetPath(path ...string) (any, bool) {
	if len(path) == 0 {
		return n, true
	}
	parent, ok := n.walk(path[:len(path)-1])
	if !ok {
		return nil, false
	}
	return parent.Lookup(path[len(path)-1])
}

// SetPath reads down to the parent of the last segment and sets it there.
func (n *Node) SetPath(path Path, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("set empty path: %w", ErrNoPath)
	}
	parent, ok := n.walk(path[:len(path)-1])
	if !ok {
		return fmt.Errorf("set %s: %w", path, ErrNoPath)
	}
	return parent.Set(path[len(path)-1], value)
}

// DeletePath reads down to the parent of the last segment and deletes there.
func (n *Node) DeletePath(path Path) error {
	if len(path) == 0 {
		return fmt.Errorf("delete empty path: %w", ErrNoPath)
	}
	parent, ok := n.walk(path[:len(path)-1])
	if !ok {
		return fmt.Errorf("delete %s: %w", path, ErrNoPath)
	}
	return parent.Delete(path[len(path)-1])
}

func (n *Node) walk(path []string) (*Node, bool) {
	cur := n
	for _, seg := range path {
		next, ok := cur.Get(seg).(*Node)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Set assigns value at key and emits Write([key]).
//
// Assigning the value already stored (the same *Node, the same map, or an
// equal scalar) is a no-op and emits nothing. A missing key is never equal
// to anything, so storing nil under a new key is still a write. Otherwise
// the link from the previous child is removed, an observable value is
// instrumented (or reused if it already is) and linked under key, and the
// Write is emitted.
//
// Only the link under this key is removed. The previous value keeps its
// other parents, and listeners subscribed directly on its channel stay
// subscribed.
//
// If Set fails, nothing is linked or emitted, but a map or slice passed as
// value may already be partly rewritten and should not be used again.
func (n *Node) Set(key string, value any) error {
	idx := -1
	if n.isArray {
		i, err := n.index(key, true)
		if err != nil {
			return err
		}
		idx = i
	}

	old, present := n.raw(key)
	if present && identical(old, value) {
		return nil
	}

	var child *Node
	if CanObserve(value) {
		b := &build{}
		c, err := n.g.wrap(value, b)
		if err != nil {
			b.undo()
			return fmt.Errorf("set %q: %w", key, err)
		}
		if c == old {
			return nil
		}
		if n.reachableFrom(c) {
			b.undo()
			return fmt.Errorf("set %q: %w", key, ErrCycle)
		}
		child = c
	}

	n.detach(key)
	if child != nil {
		n.attach(key, child)
		value = child
	}
	n.store(key, idx, value)
	n.emit(Write, key)
	return nil
}

// Delete removes key and emits Write([key]) if it was present.
// On an array only the last index can be deleted.
func (n *Node) Delete(key string) error {
	if n.isArray {
		i, err := n.index(key, false)
		if err != nil {
			return err
		}
		if i != len(n.arr)-1 {
			return fmt.Errorf("delete %q from array of %d: %w", key, len(n.arr), ErrIndexOutOfRange)
		}
		n.detach(key)
		n.arr[i] = nil
		n.arr = n.arr[:i]
		n.emit(Write, key)
		return nil
	}

	if _, ok := n.obj[key]; !ok {
		return nil
	}
	n.detach(key)
	delete(n.obj, key)
	n.emit(Write, key)
	return nil
}

// initChild instruments an existing property during Wrap. No event.
func (n *Node) initChild(key string, v any, b *build) error {
	if !CanObserve(v) {
		return nil
	}
	child, err := n.g.wrap(v, b)
	if err != nil {
		return err
	}
	if n.reachableFrom(child) {
		return ErrCycle
	}
	n.attach(key, child)
	if n.isArray {
		i, _ := strconv.Atoi(key)
		n.arr[i] = child
	} else {
		n.obj[key] = child
	}
	return nil
}

// attach installs the forwarding link from child to n under key.
func (n *Node) attach(key string, child *Node) {
	sub := child.ch.Subscribe(func(e AccessEvent) {
		n.ch.Emit(e.prefixed(key))
	})
	n.links[key] = &link{child: child, sub: sub}
	child.parents[n]++
	n.g.metrics.LinkAttached()
	n.g.logger.Debug("observe: link attached", "parent", n.id, "key", key, "child", child.id)
}

// detach removes the link under key, if any. A child left without parents
// is dropped from the side table; links inside its own subtree are kept.
func (n *Node) detach(key string) {
	l, ok := n.links[key]
	if !ok {
		return
	}
	delete(n.links, key)
	l.sub.Unsubscribe()

	c := l.child
	if c.parents[n]--; c.parents[n] <= 0 {
		delete(c.parents, n)
	}
	if len(c.parents) == 0 {
		c.g.releaseSubtree(c)
	}
	n.g.metrics.LinkDetached()
	n.g.logger.Debug("observe: link detached", "parent", n.id, "key", key, "child", c.id)
}

// discard unlinks a node whose build failed and drops it from the side
// table.
func (n *Node) discard() {
	for key := range n.links {
		n.detach(key)
	}
	n.g.untrack(n)
}

// reachableFrom reports whether n is c or a descendant of c, in which case
// linking c under n would close a cycle.
func (n *Node) reachableFrom(c *Node) bool {
	seen := make(map[*Node]bool)
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == c {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for p := range cur.parents {
			queue = append(queue, p)
		}
	}
	return false
}

func (n *Node) emit(kind Kind, key string) {
	n.g.metrics.EventEmitted(kind.String())
	n.ch.Emit(AccessEvent{Kind: kind, Path: Path{key}})
}

func (n *Node) raw(key string) (any, bool) {
	if n.isArray {
		i, err := n.index(key, false)
		if err != nil {
			return nil, false
		}
		return n.arr[i], true
	}
	v, ok := n.obj[key]
	return v, ok
}

func (n *Node) store(key string, idx int, v any) {
	if !n.isArray {
		n.obj[key] = v
		return
	}
	if idx == len(n.arr) {
		n.arr = append(n.arr, v)
		return
	}
	n.arr[idx] = v
}

// index parses an array key. With appendOK, len(arr) is also accepted.
func (n *Node) index(key string, appendOK bool) (int, error) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || indexKey(i) != key {
		return 0, fmt.Errorf("key %q: %w", key, ErrIndexOutOfRange)
	}
	limit := len(n.arr)
	if appendOK {
		limit++
	}
	if i >= limit {
		return 0, fmt.Errorf("index %d of %d: %w", i, len(n.arr), ErrIndexOutOfRange)
	}
	return i, nil
}

func indexKey(i int) string {
	return strconv.Itoa(i)
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// identical reports reference identity for maps, slices, funcs, and
// pointers, and == for everything comparable.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !va.Comparable() {
		return false
	}
	return va.Equal(vb)
}
