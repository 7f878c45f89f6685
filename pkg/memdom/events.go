package memdom

// Native events produced by an in-memory surface. Each type exposes only the
// accessors its category supports, so translating a KeyEvent as a pointer
// event fails instead of reading garbage.

func target(n *Node) any {
	if n == nil {
		return nil
	}
	return n
}

// Modifiers holds modifier key state.
type Modifiers struct {
	Alt, Ctrl, Meta, Shift bool
}

func (m Modifiers) AltKey() bool   { return m.Alt }
func (m Modifiers) CtrlKey() bool  { return m.Ctrl }
func (m Modifiers) MetaKey() bool  { return m.Meta }
func (m Modifiers) ShiftKey() bool { return m.Shift }

// KeyEvent is a keyboard event.
type KeyEvent struct {
	EventType string // keydown, keyup, keypress
	Node      *Node
	KeyName   string
	KeyCode   string
	Repeating bool
	Modifiers
}

func (e *KeyEvent) Type() string { return e.EventType }
func (e *KeyEvent) Target() any  { return target(e.Node) }
func (e *KeyEvent) Key() string  { return e.KeyName }
func (e *KeyEvent) Code() string { return e.KeyCode }
func (e *KeyEvent) Repeat() bool { return e.Repeating }

// PointerEvent is a mouse or pointer event.
type PointerEvent struct {
	EventType   string // click, pointerdown, mouseenter, ...
	Node        *Node
	X, Y        float64
	ButtonIndex int
	Modifiers
}

func (e *PointerEvent) Type() string     { return e.EventType }
func (e *PointerEvent) Target() any      { return target(e.Node) }
func (e *PointerEvent) ClientX() float64 { return e.X }
func (e *PointerEvent) ClientY() float64 { return e.Y }
func (e *PointerEvent) Button() int      { return e.ButtonIndex }

// WheelEvent is a wheel event.
type WheelEvent struct {
	Node   *Node
	DX, DY float64
	Mode   int
}

func (e *WheelEvent) Type() string    { return "wheel" }
func (e *WheelEvent) Target() any     { return target(e.Node) }
func (e *WheelEvent) DeltaX() float64 { return e.DX }
func (e *WheelEvent) DeltaY() float64 { return e.DY }
func (e *WheelEvent) DeltaMode() int  { return e.Mode }

// InputEvent is a form event: input, change, submit, reset.
type InputEvent struct {
	EventType string
	Node      *Node
	Text      string
	IsChecked bool
}

func (e *InputEvent) Type() string  { return e.EventType }
func (e *InputEvent) Target() any   { return target(e.Node) }
func (e *InputEvent) Value() string { return e.Text }
func (e *InputEvent) Checked() bool { return e.IsChecked }

// FocusEvent is a focus or blur event.
type FocusEvent struct {
	EventType string // focus, blur, focusin, focusout
	Node      *Node
	Related   *Node
}

func (e *FocusEvent) Type() string       { return e.EventType }
func (e *FocusEvent) Target() any        { return target(e.Node) }
func (e *FocusEvent) RelatedTarget() any { return target(e.Related) }

// ScrollEvent is a scroll event.
type ScrollEvent struct {
	Node      *Node
	Top, Left float64
}

func (e *ScrollEvent) Type() string        { return "scroll" }
func (e *ScrollEvent) Target() any         { return target(e.Node) }
func (e *ScrollEvent) ScrollTop() float64  { return e.Top }
func (e *ScrollEvent) ScrollLeft() float64 { return e.Left }

// ClipboardEvent is a copy, cut, or paste event.
type ClipboardEvent struct {
	EventType string
	Node      *Node
	Data      string
}

func (e *ClipboardEvent) Type() string          { return e.EventType }
func (e *ClipboardEvent) Target() any           { return target(e.Node) }
func (e *ClipboardEvent) ClipboardText() string { return e.Data }

// RawEvent carries only a type and an arbitrary target. It stands in for
// platform events this surface has no typed representation for.
type RawEvent struct {
	EventType string
	Ref       any
}

func (e *RawEvent) Type() string { return e.EventType }
func (e *RawEvent) Target() any  { return e.Ref }
