// Package depmon derives invalidation streams from observed reads.
//
// RunAndMonitor runs a function while logging every event on a root
// channel, collects the paths that were read, and returns a Session whose
// derived channel re-emits only the later writes that touch something the
// function read:
//
//	view, s, err := depmon.RunAndMonitor(ctx, ch, func() (string, error) {
//	    c, _ := observe.GetPath[string](root, "b", "c")
//	    return c, nil
//	})
//	s.Channel().Subscribe(func(e observe.AccessEvent) {
//	    // re-run: b or b.c was replaced
//	})
//
// A write is forwarded when its path equals a read path or is a whole-segment
// prefix of one. Writing b invalidates a read of b.c because the subtree
// holding c was replaced. Writing b.c.d after reading only b.c does not, and
// neither does writing bc.
//
// Only reads made synchronously inside the function are recorded. The
// logging listener is removed when the function returns, errors, or panics.
package depmon
