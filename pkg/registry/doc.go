// Package registry maps model-issued NodeIDs to renderer-native handles.
//
// The registry is the only place a renderer turns a protocol.NodeID into
// something it can draw. A NodeID maps to exactly one handle from Register
// until Release; registering a live id again fails with
// protocol.ErrDuplicateID.
//
// Internally each live entry occupies a slot. Released slots are reused
// through a LIFO free-list so long-lived renderers keep a compact table.
// Slot numbers are renderer bookkeeping only: they never appear on the wire
// and are unrelated to NodeIDs, which the model never reuses.
package registry
