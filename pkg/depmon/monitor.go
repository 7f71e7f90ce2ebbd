package depmon

import (
	"context"

	"github.com/vango-dev/pathwatch/pkg/observe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RunAndMonitor calls fn while recording every event on root, then returns
// fn's result and a Session filtering later writes on root by what fn read.
//
// If fn returns an error, no Session is created and the error is returned
// as is. If fn panics, the recording listener is removed before the panic
// continues.
func RunAndMonitor[T any](ctx context.Context, root *observe.Channel, fn func() (T, error), opts ...Option) (T, *Session, error) {
	c := newConfig(opts)

	_, span := c.tracer.Start(ctx, "depmon.RunAndMonitor")
	defer span.End()

	result, events, err := capture(root, fn, c)
	span.SetAttributes(attribute.Int("depmon.events", len(events)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.RunFinished("error", 0)
		return result, nil, err
	}

	s := newSession(root, events, c)
	span.SetAttributes(attribute.Int("depmon.read_paths", len(s.readPaths)))
	c.metrics.RunFinished("ok", len(s.readPaths))
	c.logger.Debug("depmon: session opened", "session", s.id, "read_paths", len(s.readPaths))
	return result, s, nil
}

// capture runs fn with a temporary listener on root. The listener is
// removed on every exit path, including a panic.
func capture[T any](root *observe.Channel, fn func() (T, error), c config) (result T, events []observe.AccessEvent, err error) {
	sub := root.Subscribe(func(e observe.AccessEvent) {
		events = append(events, e)
	})

	completed := false
	defer func() {
		sub.Unsubscribe()
		if !completed {
			c.metrics.RunFinished("panic", 0)
		}
	}()

	result, err = fn()
	completed = true
	return result, events, err
}
