// Package errors provides structured, actionable diagnostics for the
// editstream command line.
//
// A diagnostic carries a registered code, a short message, an optional
// longer explanation, a hint, and, for stream files, the position of the
// offending edit:
//
//	err := errors.New("E201").
//	    WithRenderError("click.edits", rerr).
//	    WithSuggestion("Emit CreateElement before the first PushRoot of an id")
//
//	fmt.Print(err.Format())
//	// Output:
//	// ERROR E201: Stream rejected
//	//
//	//   click.edits: stream 3, edit 4 (PushRoot id=9)
//	//
//	//   The stream references an id that no earlier stream introduced.
//	//
//	//   Hint: Emit CreateElement before the first PushRoot of an id
//
// Codes are grouped by category: E1xx configuration, E2xx stream files,
// E3xx transport, E9xx command usage.
package errors
