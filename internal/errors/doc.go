// Package errors provides structured, actionable error messages for the
// pathwatch tool.
//
// Library packages (observe, depmon) return plain sentinel errors. This
// package is for the command-line surface: configuration, documents,
// scripts and the change feed, where a user needs a code, a location and a
// hint rather than a bare message.
//
// # Error Categories
//
//   - config: pathwatch.json and environment overrides
//   - document: the JSON document being observed
//   - script: replay scripts (with file and line)
//   - feed: the HTTP/WebSocket change feed
//
// # Usage
//
//	err := errors.New("P303").
//	    WithLocation("steps.yaml", 4, 7).
//	    WithSuggestion("Use one of: get, set, delete, monitor, unmonitor")
//
//	errors.Printer{Style: errors.StyleText}.Print(os.Stderr, err)
//	// Output:
//	// ERROR P303: Unknown script operation
//	//
//	//   steps.yaml:4:7
//	//
//	//      2 │   path: a
//	//      3 │   value: 1
//	//   →  4 │ - op: frobnicate
//	//        │       ^
//	//      5 │   path: b
//	//
//	//   Hint: Use one of: get, set, delete, monitor, unmonitor
//
// # Output Styles
//
// StyleCompact prints one "file:line:col: CODE: message" line and StyleJSON
// one JSON object, for editors and scripts. The CLI selects a style with
// --error-format.
package errors
