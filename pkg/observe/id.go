package observe

import "sync/atomic"

// globalIDCounter is the source of node and subscription ids.
var globalIDCounter uint64

// nextID returns the next id. Ids are never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
