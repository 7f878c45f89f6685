package memdom

import (
	"slices"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Kind is the node type discriminator.
type Kind uint8

const (
	KindDocument    Kind = iota // Document root
	KindElement                 // <div>, <svg>, etc.
	KindText                    // Text node
	KindPlaceholder             // Empty slot
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "Document"
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindPlaceholder:
		return "Placeholder"
	default:
		return "Unknown"
	}
}

// Attr is a single attribute.
type Attr struct {
	Name  string
	Value string
	NS    string
}

// Node is a native node. Nodes are created by a Document and mutated only
// through it.
type Node struct {
	kind      Kind
	tag       string
	ns        string
	text      string
	attrs     []Attr
	listeners map[string]protocol.HandlerID
	parent    *Node
	children  []*Node
}

// Kind returns the node kind.
func (n *Node) Kind() Kind { return n.kind }

// Tag returns the element tag, or "" for non-elements.
func (n *Node) Tag() string { return n.tag }

// Namespace returns the element namespace, or "".
func (n *Node) Namespace() string { return n.ns }

// Text returns the content of a text node.
func (n *Node) Text() string { return n.text }

// Parent returns the parent node, or nil when detached.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Attr returns the value of the un-namespaced attribute name.
func (n *Node) Attr(name string) (string, bool) {
	return n.AttrNS(name, "")
}

// AttrNS returns the value of attribute name in namespace ns.
func (n *Node) AttrNS(name, ns string) (string, bool) {
	if i := n.attrIndex(name, ns); i >= 0 {
		return n.attrs[i].Value, true
	}
	return "", false
}

// Attrs returns a copy of the attributes in insertion order.
func (n *Node) Attrs() []Attr {
	return slices.Clone(n.attrs)
}

// Listener returns the handler registered for kind.
func (n *Node) Listener(kind string) (protocol.HandlerID, bool) {
	h, ok := n.listeners[kind]
	return h, ok
}

// TextContent returns the concatenated text of the subtree.
func (n *Node) TextContent() string {
	if n.kind == KindText {
		return n.text
	}
	var buf []byte
	for _, c := range n.children {
		buf = append(buf, c.TextContent()...)
	}
	return string(buf)
}

func (n *Node) attrIndex(name, ns string) int {
	for i, a := range n.attrs {
		if a.Name == name && a.NS == ns {
			return i
		}
	}
	return -1
}

func (n *Node) indexOf(child *Node) int {
	return slices.Index(n.children, child)
}

// contains reports whether other is n or a descendant of n.
func (n *Node) contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	if i := p.indexOf(n); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	n.parent = nil
}
