package emit

import (
	"github.com/vango-dev/editstream/pkg/protocol"
)

// shadow mirrors one operand stack entry on the model side.
type shadow struct {
	tag  string
	ns   string
	text bool
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithCatalog validates element and attribute names against c.
func WithCatalog(c *Catalog) Option {
	return func(e *Encoder) {
		e.catalog = c
	}
}

// WithRoots declares ids the renderer mounts before the first stream.
// Default: 0.
func WithRoots(roots ...protocol.NodeID) Option {
	return func(e *Encoder) {
		e.roots = roots
	}
}

// WithStartSeq sets the sequence number of the first flushed stream.
// Default: 1.
func WithStartSeq(seq uint64) Option {
	return func(e *Encoder) {
		e.seq = seq
	}
}

// Encoder accumulates edits for one update cycle.
//
// An Encoder belongs to a single model and is not safe for concurrent use.
type Encoder struct {
	buf     []protocol.Edit
	seq     uint64
	catalog *Catalog
	roots   []protocol.NodeID
	checker *protocol.Checker

	stack []shadow
	known map[protocol.NodeID]shadow
}

// NewEncoder creates an Encoder.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		seq:   1,
		roots: []protocol.NodeID{0},
		known: make(map[protocol.NodeID]shadow),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.checker = protocol.NewChecker(e.roots...)
	return e
}

// Encode appends an edit. It fails only when the edit names an element or
// attribute the catalog rejects; the edit is not appended in that case.
func (e *Encoder) Encode(ed protocol.Edit) error {
	if err := e.validate(ed); err != nil {
		return err
	}
	e.buf = append(e.buf, ed)
	e.track(ed)
	return nil
}

func (e *Encoder) validate(ed protocol.Edit) error {
	if e.catalog == nil {
		return nil
	}
	switch ed.Op {
	case protocol.OpCreateElement:
		return e.catalog.CheckElement(ed.Tag, "")
	case protocol.OpCreateElementNs:
		return e.catalog.CheckElement(ed.Tag, ed.NS)
	case protocol.OpSetAttribute:
		top, ok := e.top()
		if !ok || top.tag == "" {
			return nil
		}
		// Namespaced attributes on namespaced elements (xlink:href on
		// <use>) are outside the table.
		if ed.HasNS && top.ns != "" {
			return nil
		}
		return e.catalog.CheckAttribute(top.tag, top.ns, ed.Name)
	}
	return nil
}

func (e *Encoder) track(ed protocol.Edit) {
	switch ed.Op {
	case protocol.OpPushRoot:
		e.push(e.known[ed.ID])
	case protocol.OpCreateElement, protocol.OpCreateElementNs:
		s := shadow{tag: ed.Tag, ns: ed.NS}
		e.known[ed.ID] = s
		e.push(s)
	case protocol.OpCreateTextNode:
		s := shadow{text: true}
		e.known[ed.ID] = s
		e.push(s)
	case protocol.OpCreatePlaceholder:
		e.known[ed.ID] = shadow{}
		e.push(shadow{})
	default:
		pops, _, _ := ed.StackEffect()
		e.pop(pops)
	}
}

func (e *Encoder) push(s shadow) {
	e.stack = append(e.stack, s)
}

// pop clamps at zero; underflow is reported by Check, not here.
func (e *Encoder) pop(n int) {
	if n > len(e.stack) {
		n = len(e.stack)
	}
	e.stack = e.stack[:len(e.stack)-n]
}

func (e *Encoder) top() (shadow, bool) {
	if len(e.stack) == 0 {
		return shadow{}, false
	}
	return e.stack[len(e.stack)-1], true
}

// Pending returns the number of buffered edits.
func (e *Encoder) Pending() int {
	return len(e.buf)
}

// Seq returns the sequence number the next flushed stream will carry.
func (e *Encoder) Seq() uint64 {
	return e.seq
}

// Check validates the buffered edits against the history of flushed
// streams without flushing.
func (e *Encoder) Check() error {
	return e.checker.CheckPending(e.buf)
}

// Flush returns the buffered edits as an immutable stream and resets the
// buffer. The stream is not validated, but the ids it introduces join the
// history later checks run against.
func (e *Encoder) Flush() protocol.EditStream {
	s := protocol.NewEditStream(e.seq, e.buf)
	e.checker.Record(s)
	e.seq++
	e.reset()
	return s
}

// FlushChecked validates the buffer, then flushes it. On failure nothing is
// flushed and the buffer is kept for inspection.
func (e *Encoder) FlushChecked() (protocol.EditStream, error) {
	s := protocol.NewEditStream(e.seq, e.buf)
	if err := e.checker.Check(s); err != nil {
		return protocol.EditStream{}, err
	}
	e.seq++
	e.reset()
	return s, nil
}

// Discard drops the buffered edits without consuming a sequence number.
// Element names learned from discarded creates are forgotten too.
func (e *Encoder) Discard() {
	for _, ed := range e.buf {
		if ed.Introduces() {
			delete(e.known, ed.ID)
		}
	}
	e.reset()
}

func (e *Encoder) reset() {
	e.buf = e.buf[:0]
	e.stack = e.stack[:0]
}

// Typed helpers. Only those that name elements or attributes can fail.

// PushRoot pushes the node already registered as id.
func (e *Encoder) PushRoot(id protocol.NodeID) {
	_ = e.Encode(protocol.NewPushRoot(id))
}

// CreateElement creates element tag as id and pushes it. The catalog, if
// any, must know tag.
func (e *Encoder) CreateElement(tag string, id protocol.NodeID) error {
	return e.Encode(protocol.NewCreateElement(tag, id))
}

// CreateElementNS creates element tag in namespace ns as id and pushes it.
func (e *Encoder) CreateElementNS(tag, ns string, id protocol.NodeID) error {
	return e.Encode(protocol.NewCreateElementNs(tag, ns, id))
}

// CreateText creates a text node as id and pushes it.
func (e *Encoder) CreateText(text string, id protocol.NodeID) {
	_ = e.Encode(protocol.NewCreateTextNode(text, id))
}

// CreatePlaceholder creates an empty placeholder as id and pushes it.
func (e *Encoder) CreatePlaceholder(id protocol.NodeID) {
	_ = e.Encode(protocol.NewCreatePlaceholder(id))
}

// AppendChildren pops n nodes and appends them, bottom first, to the node
// left on top.
func (e *Encoder) AppendChildren(n uint32) {
	_ = e.Encode(protocol.NewAppendChildren(n))
}

// ReplaceWith pops n nodes and then the node they replace.
func (e *Encoder) ReplaceWith(n uint32) {
	_ = e.Encode(protocol.NewReplaceWith(n))
}

// InsertAfter pops n nodes and inserts them after the node left on top.
func (e *Encoder) InsertAfter(n uint32) {
	_ = e.Encode(protocol.NewInsertAfter(n))
}

// InsertBefore pops n nodes and inserts them before the node left on top.
func (e *Encoder) InsertBefore(n uint32) {
	_ = e.Encode(protocol.NewInsertBefore(n))
}

// Remove pops the top node and detaches it.
func (e *Encoder) Remove() {
	_ = e.Encode(protocol.NewRemove())
}

// SetText replaces the text of the top node.
func (e *Encoder) SetText(text string) {
	_ = e.Encode(protocol.NewSetText(text))
}

// SetAttribute sets an un-namespaced attribute on the top node. The catalog,
// if any, must permit name on the top element.
func (e *Encoder) SetAttribute(name, value string) error {
	return e.Encode(protocol.NewSetAttribute(name, value))
}

// SetAttributeNS sets attribute name in namespace ns on the top node.
func (e *Encoder) SetAttributeNS(name, value, ns string) error {
	return e.Encode(protocol.NewSetAttributeNs(name, value, ns))
}

// RemoveAttribute removes the un-namespaced attribute name from the top node.
func (e *Encoder) RemoveAttribute(name string) {
	_ = e.Encode(protocol.NewRemoveAttribute(name))
}

// Listen attaches handler for kind to id, which must be the top node.
func (e *Encoder) Listen(kind protocol.EventKind, id protocol.NodeID, handler protocol.HandlerID) {
	_ = e.Encode(protocol.NewEventListener(string(kind), id, handler))
}

// Unlisten removes the kind listener from id, which must be the top node.
func (e *Encoder) Unlisten(kind protocol.EventKind, id protocol.NodeID) {
	_ = e.Encode(protocol.NewRemoveEventListener(string(kind), id))
}

// Pop discards the top n nodes.
func (e *Encoder) Pop(n uint32) {
	_ = e.Encode(protocol.NewPop(n))
}
