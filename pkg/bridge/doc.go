// Package bridge turns renderer-native events into canonical protocol
// events addressed by NodeID.
//
// Native events only promise a type name and a target. Everything else is
// reached through accessor interfaces (KeyboardSource, PointerSource, …)
// obtained with As, which fails with protocol.ErrIncompatiblePlatform when
// the native value does not have the requested shape. Nothing in this
// package performs an unchecked type assertion.
//
// Events with no canonical mapping fail with protocol.ErrUnsupportedEvent.
// Both failures are recoverable: the event is dropped and translation of
// later events continues.
//
// A Queue translates independent events concurrently and delivers the
// results in submission order.
package bridge
