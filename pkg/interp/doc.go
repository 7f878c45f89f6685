// Package interp applies edit streams to a native surface.
//
// An Interpreter owns a transient operand stack of native handles and a
// registry mapping NodeIDs to those handles. Apply processes a stream
// strictly in order:
//
//   - PushRoot resolves an id and pushes its handle.
//   - Create* builds an unattached node, registers it, and pushes it.
//   - AppendChildren(n) pops n handles and appends them, bottom first, to
//     the new top of stack, which stays in place.
//   - ReplaceWith(n) pops n new handles and one old handle beneath them and
//     swaps the old node for the new ones in its parent.
//   - InsertAfter(n) and InsertBefore(n) pop n handles and place them next
//     to the new top, which stays in place.
//   - Remove pops one handle and detaches it.
//   - SetText, SetAttribute, RemoveAttribute, and the listener edits act on
//     the top of stack without popping it.
//   - Pop(n) discards n handles.
//
// Nodes detached by ReplaceWith or Remove are unreachable, so their ids are
// released from the registry together with every id in their subtree.
//
// A failure aborts the batch with a *protocol.RenderError. Edits applied
// before the failure are not rolled back; the operand stack is reset to its
// depth before the call so the same interpreter can apply a rebuild stream.
package interp
