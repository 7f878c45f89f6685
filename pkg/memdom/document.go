package memdom

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Document errors.
var (
	ErrNotContainer = errors.New("memdom: node cannot have children")
	ErrNotText      = errors.New("memdom: node is not a text node")
	ErrNotElement   = errors.New("memdom: node is not an element")
	ErrNoParent     = errors.New("memdom: node has no parent")
	ErrCycle        = errors.New("memdom: insertion would create a cycle")
	ErrForeignNode  = errors.New("memdom: node belongs to another document")
)

// Document is an in-memory tree. It is safe for concurrent use; mutations
// from an interpreter and reads from a renderer loop may interleave.
type Document struct {
	mu    sync.RWMutex
	root  *Node
	nodes map[*Node]struct{}
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	root := &Node{kind: KindDocument}
	return &Document{
		root:  root,
		nodes: map[*Node]struct{}{root: {}},
	}
}

// Root returns the document root.
func (d *Document) Root() *Node {
	return d.root
}

func (d *Document) newNode(n *Node) *Node {
	d.nodes[n] = struct{}{}
	return n
}

func (d *Document) own(nodes ...*Node) error {
	for _, n := range nodes {
		if n == nil {
			return fmt.Errorf("%w: nil node", ErrForeignNode)
		}
		if _, ok := d.nodes[n]; !ok {
			return ErrForeignNode
		}
	}
	return nil
}

// CreateElement creates an unattached element.
func (d *Document) CreateElement(tag string) (*Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.newNode(&Node{kind: KindElement, tag: tag}), nil
}

// CreateElementNS creates an unattached element in namespace ns.
func (d *Document) CreateElementNS(tag, ns string) (*Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.newNode(&Node{kind: KindElement, tag: tag, ns: ns}), nil
}

// CreateText creates an unattached text node.
func (d *Document) CreateText(text string) (*Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.newNode(&Node{kind: KindText, text: text}), nil
}

// CreatePlaceholder creates an unattached placeholder.
func (d *Document) CreatePlaceholder() (*Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.newNode(&Node{kind: KindPlaceholder}), nil
}

// AppendChild moves child to the end of parent's children.
func (d *Document) AppendChild(parent, child *Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.own(parent, child); err != nil {
		return err
	}
	if parent.kind != KindElement && parent.kind != KindDocument {
		return fmt.Errorf("%w: %s", ErrNotContainer, parent.kind)
	}
	if child.contains(parent) {
		return ErrCycle
	}
	child.detach()
	child.parent = parent
	parent.children = append(parent.children, child)
	return nil
}

// ReplaceWith puts nodes in old's position and detaches old.
func (d *Document) ReplaceWith(old *Node, nodes []*Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.own(old); err != nil {
		return err
	}
	if err := d.own(nodes...); err != nil {
		return err
	}
	parent := old.parent
	if parent == nil {
		return ErrNoParent
	}
	for _, n := range nodes {
		if n.contains(parent) {
			return ErrCycle
		}
	}

	for _, n := range nodes {
		if n != old {
			n.detach()
		}
	}
	i := parent.indexOf(old)
	old.parent = nil
	parent.children = slices.Delete(parent.children, i, i+1)
	d.insertAt(parent, i, nodes)
	return nil
}

// InsertAfter places nodes after anchor in anchor's parent.
func (d *Document) InsertAfter(anchor *Node, nodes []*Node) error {
	return d.insertBeside(anchor, nodes, 1)
}

// InsertBefore places nodes before anchor in anchor's parent.
func (d *Document) InsertBefore(anchor *Node, nodes []*Node) error {
	return d.insertBeside(anchor, nodes, 0)
}

func (d *Document) insertBeside(anchor *Node, nodes []*Node, offset int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.own(anchor); err != nil {
		return err
	}
	if err := d.own(nodes...); err != nil {
		return err
	}
	parent := anchor.parent
	if parent == nil {
		return ErrNoParent
	}
	for _, n := range nodes {
		if n == anchor || n.contains(parent) {
			return ErrCycle
		}
	}

	for _, n := range nodes {
		n.detach()
	}
	d.insertAt(parent, parent.indexOf(anchor)+offset, nodes)
	return nil
}

func (d *Document) insertAt(parent *Node, i int, nodes []*Node) {
	for _, n := range nodes {
		n.parent = parent
	}
	parent.children = slices.Insert(parent.children, i, nodes...)
}

// Detach removes h from its parent. Detaching an unattached node is a no-op.
func (d *Document) Detach(h *Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.own(h); err != nil {
		return err
	}
	h.detach()
	return nil
}

// Forget drops a detached subtree from the document's ownership set so it
// can be collected. Nodes still attached are left alone.
func (d *Document) Forget(h *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h.parent != nil || h == d.root {
		return
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		delete(d.nodes, n)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(h)
}

// SetText replaces the content of a text node.
func (d *Document) SetText(h *Node, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.own(h); err != nil {
		return err
	}
	if h.kind != KindText {
		return fmt.Errorf("%w: %s", ErrNotText, h.kind)
	}
	h.text = text
	return nil
}

// SetAttribute sets attribute name in namespace ns ("" for none).
func (d *Document) SetAttribute(h *Node, name, value, ns string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.own(h); err != nil {
		return err
	}
	if h.kind != KindElement {
		return fmt.Errorf("%w: %s", ErrNotElement, h.kind)
	}
	if i := h.attrIndex(name, ns); i >= 0 {
		h.attrs[i].Value = value
		return nil
	}
	h.attrs = append(h.attrs, Attr{Name: name, Value: value, NS: ns})
	return nil
}

// RemoveAttribute removes the un-namespaced attribute name. Removing an
// absent attribute is a no-op.
func (d *Document) RemoveAttribute(h *Node, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.own(h); err != nil {
		return err
	}
	if h.kind != KindElement {
		return fmt.Errorf("%w: %s", ErrNotElement, h.kind)
	}
	if i := h.attrIndex(name, ""); i >= 0 {
		h.attrs = slices.Delete(h.attrs, i, i+1)
	}
	return nil
}

// AddListener records a listener for kind, replacing any previous handler.
func (d *Document) AddListener(h *Node, kind string, handler protocol.HandlerID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.own(h); err != nil {
		return err
	}
	if h.listeners == nil {
		h.listeners = make(map[string]protocol.HandlerID)
	}
	h.listeners[kind] = handler
	return nil
}

// RemoveListener drops the listener for kind.
func (d *Document) RemoveListener(h *Node, kind string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.own(h); err != nil {
		return err
	}
	delete(h.listeners, kind)
	return nil
}

// Walk visits h and its descendants in pre-order. fn must not call back
// into the document.
func (d *Document) Walk(h *Node, fn func(*Node)) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var walk func(n *Node)
	walk = func(n *Node) {
		fn(n)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(h)
}

// Len returns the number of nodes owned by the document, attached or not.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.nodes)
}
