package observe

// Get reads key through n and asserts the result to T.
// The Read event is emitted whether or not the assertion succeeds.
//
//	name, ok := observe.Get[string](user, "name")
//	addr, ok := observe.Get[*observe.Node](user, "address")
func Get[T any](n *Node, key string) (T, bool) {
	v, ok := n.Lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// GetPath is the typed form of Node.GetPath.
func GetPath[T any](n *Node, path ...string) (T, bool) {
	v, ok := n.GetPath(path...)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
