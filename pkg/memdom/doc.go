// Package memdom is an in-memory native surface for the edit-stream
// interpreter.
//
// A Document owns a tree of *Node values and implements every operation the
// interpreter needs from a renderer: create, attach, replace, insert, detach,
// text and attribute updates, and listener bookkeeping. It is used by the
// command-line tools to apply streams without a real platform and by tests
// as the reference surface.
//
// The package also provides native event types (KeyEvent, PointerEvent, …)
// whose accessors match what the event bridge downcasts to.
package memdom
