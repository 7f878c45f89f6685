package protocol

// Limits applied to payloads arriving from an untrusted peer.
const (
	// DefaultMaxAllocation bounds a single decoded string (4MB).
	DefaultMaxAllocation = 4 * 1024 * 1024

	// MaxCollectionCount bounds any decoded count: edits, event fields,
	// CBOR arrays and maps.
	MaxCollectionCount = 100_000

	// MaxStreamEdits bounds the number of edits a decoded stream may carry.
	MaxStreamEdits = MaxCollectionCount

	// MaxStackDepth bounds the operand stack. A stream that pushes deeper is
	// malformed; real documents never approach it because AppendChildren
	// drains children as soon as their parent is on the stack.
	MaxStackDepth = 4096
)
