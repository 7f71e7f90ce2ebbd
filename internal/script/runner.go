package script

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vango-dev/pathwatch/internal/errors"
	"github.com/vango-dev/pathwatch/pkg/depmon"
	"github.com/vango-dev/pathwatch/pkg/observe"
)

// RootSource labels entries observed on the root channel.
const RootSource = "root"

// Entry is one event observed while a step ran.
type Entry struct {
	// Step is the 1-based step number.
	Step int `json:"step"`

	// Source is RootSource or the name of the monitor session.
	Source string `json:"source"`

	Event observe.AccessEvent `json:"event"`
}

// Transcript is everything a script run observed, in delivery order.
type Transcript struct {
	Entries []Entry `json:"entries"`
}

// Write prints one line per entry.
func (t *Transcript) Write(w io.Writer) error {
	for _, e := range t.Entries {
		if _, err := fmt.Fprintf(w, "%3d  %-10s %s\n", e.Step, e.Source, e.Event); err != nil {
			return err
		}
	}
	return nil
}

// Runner executes scripts against one graph. Sessions opened by monitor
// steps stay open across Run calls until unmonitored or Close.
type Runner struct {
	root     *observe.Node
	ch       *observe.Channel
	opts     []depmon.Option
	logger   *slog.Logger
	sessions map[string]*depmon.Session

	step    int
	entries []Entry
	rootSub *observe.Subscription
}

// NewRunner records root events from ch. opts are passed to every
// monitored run.
func NewRunner(root *observe.Node, logger *slog.Logger, opts ...depmon.Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		root:     root,
		ch:       root.Channel(),
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*depmon.Session),
	}
	r.rootSub = r.ch.Subscribe(r.recorder(RootSource))
	return r
}

func (r *Runner) recorder(source string) observe.Handler {
	return func(e observe.AccessEvent) {
		r.entries = append(r.entries, Entry{Step: r.step, Source: source, Event: e})
	}
}

// Run executes every step and returns the entries recorded during this run.
// It stops at the first failing step.
func (r *Runner) Run(ctx context.Context, s *Script) (*Transcript, error) {
	r.entries = nil
	for i, step := range s.Steps {
		r.step = i + 1
		if err := r.exec(ctx, step); err != nil {
			te := errors.FromError(err, "P304")
			if te.Location == nil {
				te = te.WithLocation(s.File, step.line, step.column)
			}
			return &Transcript{Entries: r.entries}, te
		}
	}
	return &Transcript{Entries: r.entries}, nil
}

func (r *Runner) exec(ctx context.Context, step Step) error {
	path := observe.ParsePath(step.Path)

	switch step.Op {
	case OpGet:
		r.root.GetPath(path...)
		return nil

	case OpSet:
		if err := r.root.SetPath(path, step.Value); err != nil {
			return errors.New("P304").WithDetail("set " + step.Path).Wrap(err)
		}
		return nil

	case OpDelete:
		if err := r.root.DeletePath(path); err != nil {
			return errors.New("P304").WithDetail("delete " + step.Path).Wrap(err)
		}
		return nil

	case OpMonitor:
		return r.monitor(ctx, step)

	case OpUnmonitor:
		s, ok := r.sessions[step.Name]
		if !ok {
			return errors.New("P305").WithDetail(step.Name)
		}
		s.Close()
		delete(r.sessions, step.Name)
		return nil
	}
	return errors.New("P303").WithDetail(string(step.Op))
}

// monitor runs the step's reads under a new session. Monitoring again under
// the same name replaces the old session, as a re-render would.
func (r *Runner) monitor(ctx context.Context, step Step) error {
	_, s, err := depmon.RunAndMonitor(ctx, r.ch, func() (struct{}, error) {
		for _, p := range step.Reads {
			r.root.GetPath(observe.ParsePath(p)...)
		}
		return struct{}{}, nil
	}, r.opts...)
	if err != nil {
		return err
	}

	if old, ok := r.sessions[step.Name]; ok {
		old.Close()
	}
	r.sessions[step.Name] = s
	s.Channel().Subscribe(r.recorder(step.Name))
	r.logger.Debug("script: monitoring", "name", step.Name, "reads", len(s.ReadPaths()))
	return nil
}

// Sessions returns the names of open monitor sessions.
func (r *Runner) Sessions() []string {
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	return names
}

// Close closes every open session and stops recording root events.
func (r *Runner) Close() {
	for name, s := range r.sessions {
		s.Close()
		delete(r.sessions, name)
	}
	r.rootSub.Unsubscribe()
}
