package protocol

import (
	"errors"
	"fmt"
	"sort"
)

// EventKind is the canonical, platform-independent event name.
type EventKind string

// Canonical event kinds.
const (
	// Keyboard
	EventKeyDown  EventKind = "keydown"
	EventKeyUp    EventKind = "keyup"
	EventKeyPress EventKind = "keypress"

	// Pointer
	EventClick       EventKind = "click"
	EventDblClick    EventKind = "dblclick"
	EventPointerDown EventKind = "pointerdown"
	EventPointerUp   EventKind = "pointerup"
	EventPointerMove EventKind = "pointermove"
	EventMouseEnter  EventKind = "mouseenter"
	EventMouseLeave  EventKind = "mouseleave"
	EventContextMenu EventKind = "contextmenu"

	// Wheel and scroll
	EventWheel  EventKind = "wheel"
	EventScroll EventKind = "scroll"

	// Form
	EventInput  EventKind = "input"
	EventChange EventKind = "change"
	EventSubmit EventKind = "submit"
	EventReset  EventKind = "reset"

	// Focus
	EventFocus    EventKind = "focus"
	EventBlur     EventKind = "blur"
	EventFocusIn  EventKind = "focusin"
	EventFocusOut EventKind = "focusout"

	// Clipboard
	EventCopy  EventKind = "copy"
	EventCut   EventKind = "cut"
	EventPaste EventKind = "paste"
)

// Fields carries kind-specific event data. Values are restricted to string,
// bool, int64, and float64 so every codec can represent them.
type Fields map[string]any

// GetString returns the string field k, or "".
func (f Fields) GetString(k string) string {
	s, _ := f[k].(string)
	return s
}

// GetBool returns the bool field k, or false.
func (f Fields) GetBool(k string) bool {
	b, _ := f[k].(bool)
	return b
}

// GetInt returns the integer field k, or 0.
func (f Fields) GetInt(k string) int64 {
	switch v := f[k].(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// GetFloat returns the float field k, or 0.
func (f Fields) GetFloat(k string) float64 {
	switch v := f[k].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// Event is the canonical record translated from a native event.
type Event struct {
	Seq    uint64    // Delivery order assigned by the bridge
	Target NodeID    // Node the event is addressed to
	Kind   EventKind // Canonical kind
	Fields Fields    // Kind-specific mapping
}

// ErrInvalidField is returned when an event field holds an unsupported type.
var ErrInvalidField = errors.New("protocol: unsupported event field type")

// field value tags
const (
	fieldString byte = 0x01
	fieldBool   byte = 0x02
	fieldInt    byte = 0x03
	fieldFloat  byte = 0x04
)

// EncodeEvent encodes an event to bytes.
func EncodeEvent(ev *Event) ([]byte, error) {
	e := NewEncoder()
	if err := EncodeEventTo(e, ev); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeEventTo encodes an event using the provided encoder.
// Fields are written in key order so encodings are deterministic.
func EncodeEventTo(e *Encoder, ev *Event) error {
	e.WriteUvarint(ev.Seq)
	e.WriteUvarint(uint64(ev.Target))
	e.WriteString(string(ev.Kind))

	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		e.WriteString(k)
		switch v := ev.Fields[k].(type) {
		case string:
			e.WriteByte(fieldString)
			e.WriteString(v)
		case bool:
			e.WriteByte(fieldBool)
			e.WriteBool(v)
		case int64:
			e.WriteByte(fieldInt)
			e.WriteSvarint(v)
		case int:
			e.WriteByte(fieldInt)
			e.WriteSvarint(int64(v))
		case float64:
			e.WriteByte(fieldFloat)
			e.WriteFloat64(v)
		default:
			return fmt.Errorf("%w: %s is %T", ErrInvalidField, k, v)
		}
	}
	return nil
}

// DecodeEvent decodes an event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	return DecodeEventFrom(NewDecoder(data))
}

// DecodeEventFrom decodes an event from a decoder.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	target, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	kind, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	ev := &Event{Seq: seq, Target: NodeID(target), Kind: EventKind(kind)}
	if count > 0 {
		ev.Fields = make(Fields, count)
	}
	for i := 0; i < count; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		tag, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		switch tag {
		case fieldString:
			ev.Fields[k], err = d.ReadString()
		case fieldBool:
			ev.Fields[k], err = d.ReadBool()
		case fieldInt:
			ev.Fields[k], err = d.ReadSvarint()
		case fieldFloat:
			ev.Fields[k], err = d.ReadFloat64()
		default:
			return nil, fmt.Errorf("%w: tag 0x%02x", ErrInvalidField, tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return ev, nil
}
