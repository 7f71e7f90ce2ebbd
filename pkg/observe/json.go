package observe

import "encoding/json"

// MarshalJSON encodes the node exactly as encoding/json would encode the
// unwrapped data. It emits no events.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.isArray {
		return json.Marshal(n.arr)
	}
	return json.Marshal(n.obj)
}

// Snapshot returns a deep copy of the node's data with every child node
// replaced by plain maps and slices. It emits no events.
func (n *Node) Snapshot() any {
	if n.isArray {
		out := make([]any, len(n.arr))
		for i, v := range n.arr {
			out[i] = unwrap(v)
		}
		return out
	}
	out := make(map[string]any, len(n.obj))
	for k, v := range n.obj {
		out[k] = unwrap(v)
	}
	return out
}

func unwrap(v any) any {
	if child, ok := v.(*Node); ok {
		return child.Snapshot()
	}
	return v
}
