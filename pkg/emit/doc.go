// Package emit is the model-side half of the edit-stream protocol.
//
// A diff engine appends edits to an Encoder and flushes them into an
// immutable protocol.EditStream once per update cycle. The Encoder keeps a
// shadow of the renderer's operand stack so it can validate element and
// attribute names against a Catalog at the point they are encoded; the wire
// protocol itself never carries element types.
//
// NodeIDs come from an IDGen owned by the model instance. Ids are never
// reused for the lifetime of that generator.
//
// # Usage Example
//
//	ids := emit.NewIDGen(1)
//	enc := emit.NewEncoder(emit.WithCatalog(emit.DefaultCatalog()))
//
//	h1, text := ids.Next(), ids.Next()
//	enc.PushRoot(0)
//	if err := enc.CreateElement("h1", h1); err != nil {
//	    return err
//	}
//	enc.CreateText("hello world", text)
//	enc.AppendChildren(1)
//	enc.AppendChildren(1)
//	enc.Pop(1)
//
//	stream, err := enc.FlushChecked()
package emit
