package bridge

import (
	"fmt"
	"sync"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Category groups native event types that share an accessor shape.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryKeyboard
	CategoryPointer
	CategoryWheel
	CategoryForm
	CategoryFocus
	CategoryScroll
	CategoryClipboard
	CategoryComposition
	CategoryTouch
	CategoryDrag
	CategoryAnimation
	CategoryTransition
	CategoryMedia
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryKeyboard:
		return "Keyboard"
	case CategoryPointer:
		return "Pointer"
	case CategoryWheel:
		return "Wheel"
	case CategoryForm:
		return "Form"
	case CategoryFocus:
		return "Focus"
	case CategoryScroll:
		return "Scroll"
	case CategoryClipboard:
		return "Clipboard"
	case CategoryComposition:
		return "Composition"
	case CategoryTouch:
		return "Touch"
	case CategoryDrag:
		return "Drag"
	case CategoryAnimation:
		return "Animation"
	case CategoryTransition:
		return "Transition"
	case CategoryMedia:
		return "Media"
	default:
		return "Unknown"
	}
}

// defaultKinds maps native type names to categories. Categories without a
// translator are known but unsupported.
var defaultKinds = map[string]Category{
	"keydown":  CategoryKeyboard,
	"keyup":    CategoryKeyboard,
	"keypress": CategoryKeyboard,

	"click":       CategoryPointer,
	"dblclick":    CategoryPointer,
	"pointerdown": CategoryPointer,
	"pointerup":   CategoryPointer,
	"pointermove": CategoryPointer,
	"mousedown":   CategoryPointer,
	"mouseup":     CategoryPointer,
	"mousemove":   CategoryPointer,
	"mouseenter":  CategoryPointer,
	"mouseleave":  CategoryPointer,
	"contextmenu": CategoryPointer,

	"wheel":  CategoryWheel,
	"scroll": CategoryScroll,

	"input":  CategoryForm,
	"change": CategoryForm,
	"submit": CategoryForm,
	"reset":  CategoryForm,

	"focus":    CategoryFocus,
	"blur":     CategoryFocus,
	"focusin":  CategoryFocus,
	"focusout": CategoryFocus,

	"copy":  CategoryClipboard,
	"cut":   CategoryClipboard,
	"paste": CategoryClipboard,

	"compositionstart":  CategoryComposition,
	"compositionupdate": CategoryComposition,
	"compositionend":    CategoryComposition,

	"touchstart":  CategoryTouch,
	"touchmove":   CategoryTouch,
	"touchend":    CategoryTouch,
	"touchcancel": CategoryTouch,

	"dragstart": CategoryDrag,
	"drag":      CategoryDrag,
	"dragend":   CategoryDrag,
	"dragenter": CategoryDrag,
	"dragleave": CategoryDrag,
	"dragover":  CategoryDrag,
	"drop":      CategoryDrag,

	"animationstart":     CategoryAnimation,
	"animationend":       CategoryAnimation,
	"animationiteration": CategoryAnimation,

	"transitionend": CategoryTransition,

	"play":       CategoryMedia,
	"pause":      CategoryMedia,
	"ended":      CategoryMedia,
	"timeupdate": CategoryMedia,
}

// ResolveFunc maps a native target to its NodeID.
type ResolveFunc func(target any) (protocol.NodeID, bool)

// Translator extracts the kind-specific fields of a native event. resolve
// turns secondary native targets (a focus event's related target) into ids.
type Translator func(native NativeEvent, resolve ResolveFunc) (protocol.Fields, error)

// Resolver maps native handles back to ids. *registry.Registry satisfies it.
type Resolver[H comparable] interface {
	Resolve(h H) (protocol.NodeID, bool)
}

// Option configures a Bridge.
type Option func(*options)

type options struct {
	kinds       map[string]Category
	translators map[Category]Translator
}

// WithKind maps an additional native type to a category.
func WithKind(nativeType string, c Category) Option {
	return func(o *options) {
		o.kinds[nativeType] = c
	}
}

// WithTranslator installs t for category c, replacing any default.
func WithTranslator(c Category, t Translator) Option {
	return func(o *options) {
		o.translators[c] = t
	}
}

// Bridge translates native events whose targets are handles of type H.
// It is safe for concurrent use.
type Bridge[H comparable] struct {
	mu          sync.RWMutex
	resolver    Resolver[H]
	kinds       map[string]Category
	translators map[Category]Translator
}

// New creates a Bridge with the default type table and translators for the
// keyboard, pointer, wheel, form, focus, scroll, and clipboard categories.
func New[H comparable](resolver Resolver[H], opts ...Option) *Bridge[H] {
	o := options{
		kinds:       make(map[string]Category, len(defaultKinds)),
		translators: defaultTranslators(),
	}
	for k, c := range defaultKinds {
		o.kinds[k] = c
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bridge[H]{
		resolver:    resolver,
		kinds:       o.kinds,
		translators: o.translators,
	}
}

// Register installs t for category c.
func (b *Bridge[H]) Register(c Category, t Translator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.translators[c] = t
}

// Map assigns a native type to a category.
func (b *Bridge[H]) Map(nativeType string, c Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds[nativeType] = c
}

// Category returns the category of a native type.
func (b *Bridge[H]) Category(nativeType string) Category {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.kinds[nativeType]
}

// Translate converts native into a canonical event. Seq is left zero; a
// Queue assigns it at delivery.
//
// Errors: protocol.ErrUnsupportedEvent for unmapped types or categories,
// protocol.ErrIncompatiblePlatform when the target or an accessor has the
// wrong shape, protocol.ErrUnknownID when the target is not registered.
func (b *Bridge[H]) Translate(native NativeEvent) (protocol.Event, error) {
	if native == nil {
		return protocol.Event{}, fmt.Errorf("%w: nil event", protocol.ErrIncompatiblePlatform)
	}
	typ := native.Type()

	b.mu.RLock()
	cat, ok := b.kinds[typ]
	tr := b.translators[cat]
	b.mu.RUnlock()

	if !ok {
		return protocol.Event{}, fmt.Errorf("%w: %q", protocol.ErrUnsupportedEvent, typ)
	}
	if tr == nil {
		return protocol.Event{}, fmt.Errorf("%w: %q (%s)", protocol.ErrUnsupportedEvent, typ, cat)
	}

	h, err := As[H](native.Target())
	if err != nil {
		return protocol.Event{}, fmt.Errorf("%s target: %w", typ, err)
	}
	id, ok := b.resolver.Resolve(h)
	if !ok {
		return protocol.Event{}, fmt.Errorf("%w: %s target is not registered", protocol.ErrUnknownID, typ)
	}

	fields, err := tr(native, b.resolve)
	if err != nil {
		return protocol.Event{}, fmt.Errorf("%s: %w", typ, err)
	}
	return protocol.Event{Target: id, Kind: protocol.EventKind(typ), Fields: fields}, nil
}

func (b *Bridge[H]) resolve(target any) (protocol.NodeID, bool) {
	h, err := As[H](target)
	if err != nil {
		return 0, false
	}
	return b.resolver.Resolve(h)
}
