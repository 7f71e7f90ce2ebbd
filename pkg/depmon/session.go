package depmon

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/pathwatch/internal/telemetry"
	"github.com/vango-dev/pathwatch/pkg/observe"
)

var sessionIDCounter uint64

// Session is the result of one monitored run: the read-set it recorded and
// the derived channel fed by the filter it keeps on the root channel.
type Session struct {
	id uint64

	// readPaths are the distinct canonical read paths, in first-read order.
	readPaths []string

	// prefixes holds every whole-segment prefix of every read path.
	// A write is forwarded iff its canonical path is in this set.
	prefixes map[string]struct{}

	derived *observe.Channel
	filter  *observe.Subscription

	logger    *slog.Logger
	metrics   *telemetry.Metrics
	closeOnce sync.Once
}

func newSession(root *observe.Channel, events []observe.AccessEvent, c config) *Session {
	s := &Session{
		id:       atomic.AddUint64(&sessionIDCounter, 1),
		prefixes: make(map[string]struct{}),
		derived:  observe.NewChannel(),
		logger:   c.logger,
		metrics:  c.metrics,
	}

	seen := make(map[string]bool)
	for _, e := range events {
		if e.Kind != observe.Read {
			continue
		}
		p := e.PathString()
		if seen[p] {
			continue
		}
		seen[p] = true
		s.readPaths = append(s.readPaths, p)
		for i := 1; i <= len(e.Path); i++ {
			s.prefixes[e.Path[:i].Canonical()] = struct{}{}
		}
	}

	s.filter = root.Subscribe(s.onEvent)
	s.metrics.SessionOpened()
	return s
}

func (s *Session) onEvent(e observe.AccessEvent) {
	if e.Kind != observe.Write {
		return
	}
	if !s.Depends(e.Path) {
		s.metrics.WriteFiltered(false)
		return
	}
	s.metrics.WriteFiltered(true)
	s.derived.Emit(e)
}

// ID returns the unique identifier for this session.
func (s *Session) ID() uint64 {
	return s.id
}

// Channel returns the derived channel. It carries only Write events.
func (s *Session) Channel() *observe.Channel {
	return s.derived
}

// ReadPaths returns the recorded read paths in canonical form.
func (s *Session) ReadPaths() []string {
	out := make([]string, len(s.readPaths))
	copy(out, s.readPaths)
	return out
}

// Depends reports whether a write at path would be forwarded.
func (s *Session) Depends(path observe.Path) bool {
	if len(path) == 0 {
		return false
	}
	_, ok := s.prefixes[path.Canonical()]
	return ok
}

// Close detaches the filter from the root channel and drops the derived
// channel's listeners. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.filter.Unsubscribe()
		s.derived.RemoveAll()
		s.metrics.SessionClosed()
		s.logger.Debug("depmon: session closed", "session", s.id)
	})
}
