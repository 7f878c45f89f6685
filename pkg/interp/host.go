package interp

import "github.com/vango-dev/editstream/pkg/protocol"

// Host is the native surface an Interpreter drives. H is the native handle
// type; handles must be comparable so the registry can resolve them back to
// ids for event targeting.
//
// Host methods report native failures as errors. They are never asked to
// resolve ids.
type Host[H comparable] interface {
	CreateElement(tag string) (H, error)
	CreateElementNS(tag, ns string) (H, error)
	CreateText(text string) (H, error)
	CreatePlaceholder() (H, error)

	// AppendChild moves child to the end of parent's children.
	AppendChild(parent, child H) error

	// ReplaceWith puts nodes, in order, where old sits in its parent and
	// detaches old.
	ReplaceWith(old H, nodes []H) error

	InsertAfter(anchor H, nodes []H) error
	InsertBefore(anchor H, nodes []H) error

	// Detach removes h from its parent.
	Detach(h H) error

	SetText(h H, text string) error

	// SetAttribute sets name to value. ns is "" for un-namespaced attributes.
	SetAttribute(h H, name, value, ns string) error
	RemoveAttribute(h H, name string) error

	AddListener(h H, kind string, handler protocol.HandlerID) error
	RemoveListener(h H, kind string) error

	// Walk visits h and its descendants in pre-order.
	Walk(h H, fn func(H))
}

// Forgetter is implemented by hosts that track ownership of the nodes they
// create. Forget is called with the root of every subtree the interpreter
// releases.
type Forgetter[H comparable] interface {
	Forget(h H)
}
