package observe

import "errors"

// ErrNotObservable is returned by Wrap when the target is not a map,
// slice, or Node. Use CanObserve to check first.
var ErrNotObservable = errors.New("observe: value cannot be observed")

// ErrIndexOutOfRange is returned when an array node is written at a key that
// is not a decimal index in [0, len].
var ErrIndexOutOfRange = errors.New("observe: array index out of range")

// ErrCycle is returned when a write would make a node reachable from itself.
// Events on such a graph would bubble forever.
var ErrCycle = errors.New("observe: assignment would create a cycle")

// ErrNoPath is returned by SetPath and DeletePath when an intermediate
// segment does not resolve to a node.
var ErrNoPath = errors.New("observe: path does not resolve to a node")
