// Package observetest provides testing helpers for code built on observe.
//
// The observetest package reduces boilerplate when testing graphs and
// monitor sessions by providing a fluent document builder, an event
// recorder and event assertions.
//
// # Quick Start
//
//	func TestWidget_TracksTitle(t *testing.T) {
//	    root, ch := observetest.NewDoc(t).With("title", "draft").Build()
//	    rec := observetest.Record(ch)
//
//	    root.Set("title", "final")
//
//	    observetest.ExpectEvents(t, rec.Events(), observetest.Write("title"))
//	}
//
// # Fluent Document Builder
//
//	root, ch := observetest.NewDoc(t).
//	    With("a", "hello").
//	    With("b", map[string]any{"c": 1}).
//	    WithGraph(g).
//	    Build()
//
// # One-Liner Shorthand
//
//	root, ch := observetest.Wrap(t, map[string]any{"a": 1})
package observetest
