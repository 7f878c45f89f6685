package bridge

import (
	"fmt"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// NativeEvent is the minimum every platform event provides.
type NativeEvent interface {
	Type() string
	Target() any
}

// ModifierSource exposes modifier key state.
type ModifierSource interface {
	AltKey() bool
	CtrlKey() bool
	MetaKey() bool
	ShiftKey() bool
}

// KeyboardSource is implemented by native keyboard events.
type KeyboardSource interface {
	ModifierSource
	Key() string
	Code() string
	Repeat() bool
}

// PointerSource is implemented by native mouse and pointer events.
type PointerSource interface {
	ModifierSource
	ClientX() float64
	ClientY() float64
	Button() int
}

// WheelSource is implemented by native wheel events.
type WheelSource interface {
	DeltaX() float64
	DeltaY() float64
	DeltaMode() int
}

// FormSource is implemented by native input, change, and submit events.
type FormSource interface {
	Value() string
	Checked() bool
}

// FocusSource is implemented by native focus events.
type FocusSource interface {
	RelatedTarget() any
}

// ScrollSource is implemented by native scroll events.
type ScrollSource interface {
	ScrollTop() float64
	ScrollLeft() float64
}

// ClipboardSource is implemented by native clipboard events.
type ClipboardSource interface {
	ClipboardText() string
}

// As converts v to T, failing with protocol.ErrIncompatiblePlatform instead
// of panicking when v is nil or of another shape.
func As[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %T is not %s", protocol.ErrIncompatiblePlatform, v, typeName[T]())
	}
	return t, nil
}

func typeName[T any]() string {
	return fmt.Sprintf("%T", (*T)(nil))[1:]
}

// Ref is a synthetic reference to a native object tagged with the native
// kind it was created as, for example "HTMLInputElement".
type Ref struct {
	kind  string
	value any
}

// NewRef wraps value as a native reference of the given kind.
func NewRef(kind string, value any) Ref {
	return Ref{kind: kind, value: value}
}

// Kind returns the native kind the reference was created as.
func (r Ref) Kind() string {
	return r.kind
}

// Downcast returns the referenced value as T if it was created as kind.
func Downcast[T any](r Ref, kind string) (T, error) {
	if r.kind != kind {
		var zero T
		return zero, fmt.Errorf("%w: reference is %q, not %q", protocol.ErrIncompatiblePlatform, r.kind, kind)
	}
	return As[T](r.value)
}
