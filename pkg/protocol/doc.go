// Package protocol defines the edit-stream wire protocol shared by a model and
// a renderer.
//
// A model never touches native nodes. It emits an ordered batch of edits, an
// EditStream, which the renderer interprets with a small operand stack. Nodes
// are addressed by NodeID, an opaque uint64 issued by the model. The renderer
// answers with Events addressed by the same ids.
//
// # Edits
//
// Every edit is a tagged record. Creating edits introduce an id and push the
// new node; structural edits pop and peek the operand stack; attribute edits
// act on the top of the stack without popping it.
//
//	PushRoot(id)                      push registered node
//	CreateElement(tag, id)            create, register, push
//	CreateElementNs(tag, ns, id)      create, register, push
//	CreateTextNode(text, id)          create, register, push
//	CreatePlaceholder(id)             create, register, push
//	AppendChildren(n)                 pop n, append to new top
//	ReplaceWith(n)                    pop n new + 1 old, swap in parent
//	InsertAfter(n) / InsertBefore(n)  pop n, insert next to new top
//	Remove                            pop 1, detach
//	SetText / SetAttribute / RemoveAttribute
//	NewEventListener / RemoveEventListener
//	Pop(n)                            discard n
//
// A well-formed stream has a net stack effect of zero and never references an
// id before an earlier Create* or PushRoot introduced it. Checker verifies both
// properties without touching a renderer.
//
// # Wire Format
//
// Two payload encodings are supported. The binary encoding uses protobuf-style
// varints and length-prefixed UTF-8 strings:
//
//	[Seq: varint][Count: varint]{[Op: 1 byte][operands...]}*
//
// The CBOR encoding (canonical mode) carries the same logical records and is
// selected per frame with FlagCBOR.
//
// All messages are framed with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameEdits (0x01): model → renderer edit streams
//   - FrameEvent (0x02): renderer → model events
//   - FrameAck (0x03): renderer → model apply results
//   - FrameControl (0x04): ping, rebuild requests, close
//   - FrameError (0x05): error message
//
// # Usage Example
//
//	stream := protocol.NewEditStream(1, []protocol.Edit{
//	    protocol.NewPushRoot(0),
//	    protocol.NewCreateElement("h1", 1),
//	    protocol.NewCreateTextNode("hello world", 2),
//	    protocol.NewAppendChildren(1),
//	    protocol.NewAppendChildren(1),
//	    protocol.NewPop(1),
//	})
//	data := protocol.EncodeStream(stream)
//	decoded, err := protocol.DecodeStream(data)
package protocol
