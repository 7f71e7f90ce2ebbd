package observe

import "sync"

// Handler receives events emitted on a Channel.
type Handler func(AccessEvent)

type listener struct {
	id uint64
	fn Handler
}

// Channel is a synchronous, in-order event fan-out.
// Every Node owns exactly one Channel. Derived channels created by the
// dependency monitor are free-standing.
type Channel struct {
	id uint64

	// listeners in registration order.
	listeners []listener

	// mu protects listeners.
	mu sync.RWMutex
}

// NewChannel creates an empty channel.
func NewChannel() *Channel {
	return &Channel{id: nextID()}
}

// ID returns the unique identifier for this channel.
func (c *Channel) ID() uint64 {
	return c.id
}

// Subscribe registers fn. Handlers run in registration order, synchronously
// inside Emit.
func (c *Channel) Subscribe(fn Handler) *Subscription {
	l := listener{id: nextID(), fn: fn}

	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()

	return &Subscription{ch: c, id: l.id}
}

// Emit delivers e to every current listener.
// Listeners added or removed during delivery take effect from the next Emit.
func (c *Channel) Emit(e AccessEvent) {
	// Copy listeners while holding lock
	c.mu.RLock()
	if len(c.listeners) == 0 {
		c.mu.RUnlock()
		return
	}
	ls := make([]listener, len(c.listeners))
	copy(ls, c.listeners)
	c.mu.RUnlock()

	for _, l := range ls {
		l.fn(e)
	}
}

// RemoveAll drops every listener. Outstanding Subscriptions become no-ops.
func (c *Channel) RemoveAll() {
	c.mu.Lock()
	c.listeners = nil
	c.mu.Unlock()
}

// Len returns the number of registered listeners.
func (c *Channel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners)
}

// remove deletes the listener with the given id, keeping order.
// Reports whether it was present.
func (c *Channel) remove(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, l := range c.listeners {
		if l.id == id {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	ch *Channel
	id uint64
}

// Unsubscribe removes the handler. Calling it more than once, or after
// RemoveAll, is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.ch == nil {
		return
	}
	s.ch.remove(s.id)
}

// Channel returns the channel this subscription listens on.
func (s *Subscription) Channel() *Channel {
	return s.ch
}
