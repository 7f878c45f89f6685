package protocol

import "fmt"

// NodeID is an opaque handle identifying an addressable node across the
// protocol boundary. Only the model issues NodeIDs.
type NodeID uint64

// HandlerID associates a listener registration with a model-owned callback.
type HandlerID uint64

// EditOp is the tag of an Edit record.
type EditOp uint8

// Edit operation constants. Values are stable wire tags.
const (
	OpPushRoot            EditOp = 0x01 // Push a registered node
	OpAppendChildren      EditOp = 0x02 // Pop n, append to top
	OpReplaceWith         EditOp = 0x03 // Pop n new + 1 old, replace old
	OpCreateTextNode      EditOp = 0x04 // Create text node
	OpCreateElement       EditOp = 0x05 // Create element
	OpCreateElementNs     EditOp = 0x06 // Create namespaced element
	OpCreatePlaceholder   EditOp = 0x07 // Create placeholder
	OpNewEventListener    EditOp = 0x08 // Attach listener to top
	OpRemoveEventListener EditOp = 0x09 // Detach listener from top
	OpSetText             EditOp = 0x0A // Set text of top
	OpSetAttribute        EditOp = 0x0B // Set attribute on top
	OpRemoveAttribute     EditOp = 0x0C // Remove attribute from top
	OpPop                 EditOp = 0x0D // Discard n

	OpInsertAfter  EditOp = 0x10 // Pop n, insert after top
	OpInsertBefore EditOp = 0x11 // Pop n, insert before top
	OpRemove       EditOp = 0x12 // Pop 1, detach
)

// String returns the string representation of the edit operation.
func (op EditOp) String() string {
	switch op {
	case OpPushRoot:
		return "PushRoot"
	case OpAppendChildren:
		return "AppendChildren"
	case OpReplaceWith:
		return "ReplaceWith"
	case OpCreateTextNode:
		return "CreateTextNode"
	case OpCreateElement:
		return "CreateElement"
	case OpCreateElementNs:
		return "CreateElementNs"
	case OpCreatePlaceholder:
		return "CreatePlaceholder"
	case OpNewEventListener:
		return "NewEventListener"
	case OpRemoveEventListener:
		return "RemoveEventListener"
	case OpSetText:
		return "SetText"
	case OpSetAttribute:
		return "SetAttribute"
	case OpRemoveAttribute:
		return "RemoveAttribute"
	case OpPop:
		return "Pop"
	case OpInsertAfter:
		return "InsertAfter"
	case OpInsertBefore:
		return "InsertBefore"
	case OpRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// Valid reports whether op is a known edit tag.
func (op EditOp) Valid() bool {
	return op.String() != "Unknown"
}

// Edit is a single stack-machine instruction.
//
// Edit is a flat record rather than one type per operation so that streams
// can be stored and transferred by value. Only the fields relevant to Op are
// meaningful; the constructors below set exactly those.
type Edit struct {
	Op        EditOp
	ID        NodeID    // Create*, PushRoot, listener edits
	Count     uint32    // AppendChildren, ReplaceWith, Insert*, Pop
	Text      string    // CreateTextNode, SetText
	Tag       string    // CreateElement, CreateElementNs
	Name      string    // SetAttribute, RemoveAttribute
	Value     string    // SetAttribute
	NS        string    // CreateElementNs, SetAttribute when HasNS
	HasNS     bool      // SetAttribute carries a namespace
	EventKind string    // listener edits
	Handler   HandlerID // NewEventListener
}

// Introduces reports whether the edit registers e.ID with the renderer.
func (e Edit) Introduces() bool {
	switch e.Op {
	case OpCreateTextNode, OpCreateElement, OpCreateElementNs, OpCreatePlaceholder:
		return true
	}
	return false
}

// References returns the id an edit resolves against the registry, if any.
// Creating edits are not references.
func (e Edit) References() (NodeID, bool) {
	switch e.Op {
	case OpPushRoot, OpNewEventListener, OpRemoveEventListener:
		return e.ID, true
	}
	return 0, false
}

// StackEffect returns how many operands the edit pops and pushes. needs is
// the minimum depth required before the edit runs, which differs from pops
// for edits that also peek a parent or anchor.
func (e Edit) StackEffect() (pops, pushes, needs int) {
	n := int(e.Count)
	switch e.Op {
	case OpPushRoot, OpCreateTextNode, OpCreateElement, OpCreateElementNs, OpCreatePlaceholder:
		return 0, 1, 0
	case OpAppendChildren, OpInsertAfter, OpInsertBefore:
		return n, 0, n + 1
	case OpReplaceWith:
		return n + 1, 0, n + 1
	case OpRemove:
		return 1, 0, 1
	case OpPop:
		return n, 0, n
	case OpSetText, OpSetAttribute, OpRemoveAttribute, OpNewEventListener, OpRemoveEventListener:
		return 0, 0, 1
	}
	return 0, 0, 0
}

// String returns a compact human-readable form of the edit.
func (e Edit) String() string {
	switch e.Op {
	case OpPushRoot, OpCreatePlaceholder:
		return fmt.Sprintf("%s(%d)", e.Op, e.ID)
	case OpAppendChildren, OpReplaceWith, OpInsertAfter, OpInsertBefore, OpPop:
		return fmt.Sprintf("%s(%d)", e.Op, e.Count)
	case OpCreateTextNode:
		return fmt.Sprintf("%s(%q, %d)", e.Op, e.Text, e.ID)
	case OpCreateElement:
		return fmt.Sprintf("%s(%q, %d)", e.Op, e.Tag, e.ID)
	case OpCreateElementNs:
		return fmt.Sprintf("%s(%q, %q, %d)", e.Op, e.Tag, e.NS, e.ID)
	case OpNewEventListener:
		return fmt.Sprintf("%s(%q, %d, %d)", e.Op, e.EventKind, e.ID, e.Handler)
	case OpRemoveEventListener:
		return fmt.Sprintf("%s(%q, %d)", e.Op, e.EventKind, e.ID)
	case OpSetText:
		return fmt.Sprintf("%s(%q)", e.Op, e.Text)
	case OpSetAttribute:
		if e.HasNS {
			return fmt.Sprintf("%s(%q, %q, %q)", e.Op, e.Name, e.Value, e.NS)
		}
		return fmt.Sprintf("%s(%q, %q)", e.Op, e.Name, e.Value)
	case OpRemoveAttribute:
		return fmt.Sprintf("%s(%q)", e.Op, e.Name)
	case OpRemove:
		return "Remove"
	}
	return fmt.Sprintf("Unknown(0x%02x)", uint8(e.Op))
}

// NewPushRoot creates a PushRoot edit.
func NewPushRoot(id NodeID) Edit {
	return Edit{Op: OpPushRoot, ID: id}
}

// NewAppendChildren creates an AppendChildren edit.
func NewAppendChildren(n uint32) Edit {
	return Edit{Op: OpAppendChildren, Count: n}
}

// NewReplaceWith creates a ReplaceWith edit.
func NewReplaceWith(n uint32) Edit {
	return Edit{Op: OpReplaceWith, Count: n}
}

// NewInsertAfter creates an InsertAfter edit.
func NewInsertAfter(n uint32) Edit {
	return Edit{Op: OpInsertAfter, Count: n}
}

// NewInsertBefore creates an InsertBefore edit.
func NewInsertBefore(n uint32) Edit {
	return Edit{Op: OpInsertBefore, Count: n}
}

// NewRemove creates a Remove edit.
func NewRemove() Edit {
	return Edit{Op: OpRemove}
}

// NewCreateTextNode creates a CreateTextNode edit.
func NewCreateTextNode(text string, id NodeID) Edit {
	return Edit{Op: OpCreateTextNode, Text: text, ID: id}
}

// NewCreateElement creates a CreateElement edit.
func NewCreateElement(tag string, id NodeID) Edit {
	return Edit{Op: OpCreateElement, Tag: tag, ID: id}
}

// NewCreateElementNs creates a CreateElementNs edit.
func NewCreateElementNs(tag, ns string, id NodeID) Edit {
	return Edit{Op: OpCreateElementNs, Tag: tag, NS: ns, ID: id}
}

// NewCreatePlaceholder creates a CreatePlaceholder edit.
func NewCreatePlaceholder(id NodeID) Edit {
	return Edit{Op: OpCreatePlaceholder, ID: id}
}

// NewEventListener creates a NewEventListener edit.
func NewEventListener(kind string, id NodeID, handler HandlerID) Edit {
	return Edit{Op: OpNewEventListener, EventKind: kind, ID: id, Handler: handler}
}

// NewRemoveEventListener creates a RemoveEventListener edit.
func NewRemoveEventListener(kind string, id NodeID) Edit {
	return Edit{Op: OpRemoveEventListener, EventKind: kind, ID: id}
}

// NewSetText creates a SetText edit.
func NewSetText(text string) Edit {
	return Edit{Op: OpSetText, Text: text}
}

// NewSetAttribute creates a SetAttribute edit without a namespace.
func NewSetAttribute(name, value string) Edit {
	return Edit{Op: OpSetAttribute, Name: name, Value: value}
}

// NewSetAttributeNs creates a SetAttribute edit in namespace ns.
func NewSetAttributeNs(name, value, ns string) Edit {
	return Edit{Op: OpSetAttribute, Name: name, Value: value, NS: ns, HasNS: true}
}

// NewRemoveAttribute creates a RemoveAttribute edit.
func NewRemoveAttribute(name string) Edit {
	return Edit{Op: OpRemoveAttribute, Name: name}
}

// NewPop creates a Pop edit.
func NewPop(n uint32) Edit {
	return Edit{Op: OpPop, Count: n}
}
