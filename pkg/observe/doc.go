// Package observe provides path-aware change tracking over nested
// JSON-shaped data.
//
// Wrapping a map[string]any or []any instruments it and everything
// observable under it. Each instrumented object becomes a *Node with its own
// Channel. Reads and writes through a Node are emitted on that channel with
// a one-segment path, and every parent forwards its children's events with
// the connecting key prepended, so a listener on the root sees the full path
// from the root to the property actually touched.
//
// # Basic Usage
//
//	root, ch, err := observe.Wrap(map[string]any{
//	    "a": "hello",
//	    "b": map[string]any{"c": "world"},
//	})
//
//	ch.Subscribe(func(e observe.AccessEvent) {
//	    fmt.Println(e) // write(a), read(b), write(b.c)
//	})
//
//	root.Set("a", "world")
//	b := root.Get("b").(*observe.Node)
//	b.Set("c", "yes!")
//
// Go has no transparent proxies, so access goes through explicit accessor
// calls: Get, Lookup, Set, Delete and their path forms. Peek, Keys, Len,
// Snapshot and MarshalJSON never emit events.
//
// # Identity
//
// Assigning the value a property already holds is a no-op: no Write, and the
// forwarding link is left untouched. Assigning a node (or a map) that is
// already instrumented reuses it instead of instrumenting it twice. The
// Graph keeps a side table from map identity to node for that lookup.
//
// # Arrays
//
// A []any is instrumented like an object whose keys are decimal indices.
// Setting index len(a) appends; deleting is only allowed on the last index.
//
// # Serialization
//
// A Node marshals to JSON exactly as the data it wraps would.
package observe
