package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec selects the payload encoding of edit and event frames.
type Codec uint8

const (
	CodecBinary Codec = iota // varint binary encoding
	CodecCBOR                // canonical CBOR
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecBinary:
		return "binary"
	case CodecCBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// ParseCodec parses a codec name.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "binary":
		return CodecBinary, nil
	case "cbor":
		return CodecCBOR, nil
	}
	return 0, fmt.Errorf("protocol: unknown codec %q", s)
}

// EncodeStream encodes s with the codec.
func (c Codec) EncodeStream(s EditStream) ([]byte, error) {
	if c == CodecCBOR {
		return MarshalStreamCBOR(s)
	}
	return EncodeStream(s), nil
}

// DecodeStream decodes a stream encoded with the codec.
func (c Codec) DecodeStream(data []byte) (EditStream, error) {
	if c == CodecCBOR {
		return UnmarshalStreamCBOR(data)
	}
	return DecodeStream(data)
}

// EncodeEvent encodes ev with the codec.
func (c Codec) EncodeEvent(ev *Event) ([]byte, error) {
	if c == CodecCBOR {
		return MarshalEventCBOR(ev)
	}
	return EncodeEvent(ev)
}

// DecodeEvent decodes an event encoded with the codec.
func (c Codec) DecodeEvent(data []byte) (*Event, error) {
	if c == CodecCBOR {
		return UnmarshalEventCBOR(data)
	}
	return DecodeEvent(data)
}

// Flags returns the frame flags that mark payloads of this codec.
func (c Codec) Flags() FrameFlags {
	if c == CodecCBOR {
		return FlagCBOR
	}
	return 0
}

// CodecFromFlags returns the codec a frame's payload was encoded with.
func CodecFromFlags(f FrameFlags) Codec {
	if f.Has(FlagCBOR) {
		return CodecCBOR
	}
	return CodecBinary
}

// cborEdit is the CBOR record shape. Integer keys keep payloads small; empty
// fields are omitted so each record carries only its op's operands.
type cborEdit struct {
	Op        uint8  `cbor:"0,keyasint"`
	ID        uint64 `cbor:"1,keyasint,omitempty"`
	Count     uint32 `cbor:"2,keyasint,omitempty"`
	Text      string `cbor:"3,keyasint,omitempty"`
	Tag       string `cbor:"4,keyasint,omitempty"`
	Name      string `cbor:"5,keyasint,omitempty"`
	Value     string `cbor:"6,keyasint,omitempty"`
	NS        string `cbor:"7,keyasint,omitempty"`
	HasNS     bool   `cbor:"8,keyasint,omitempty"`
	EventKind string `cbor:"9,keyasint,omitempty"`
	Handler   uint64 `cbor:"10,keyasint,omitempty"`
}

type cborStream struct {
	Seq   uint64     `cbor:"0,keyasint"`
	Edits []cborEdit `cbor:"1,keyasint"`
}

type cborEvent struct {
	Seq    uint64         `cbor:"0,keyasint"`
	Target uint64         `cbor:"1,keyasint"`
	Kind   string         `cbor:"2,keyasint"`
	Fields map[string]any `cbor:"3,keyasint,omitempty"`
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		MaxArrayElements: MaxCollectionCount,
		MaxMapPairs:      MaxCollectionCount,
		IntDec:           cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// MarshalStreamCBOR serializes a stream to canonical CBOR.
func MarshalStreamCBOR(s EditStream) ([]byte, error) {
	cs := cborStream{Seq: s.seq, Edits: make([]cborEdit, len(s.edits))}
	for i, e := range s.edits {
		cs.Edits[i] = cborEdit{
			Op:        uint8(e.Op),
			ID:        uint64(e.ID),
			Count:     e.Count,
			Text:      e.Text,
			Tag:       e.Tag,
			Name:      e.Name,
			Value:     e.Value,
			NS:        e.NS,
			HasNS:     e.HasNS,
			EventKind: e.EventKind,
			Handler:   uint64(e.Handler),
		}
	}
	return cborEncMode.Marshal(cs)
}

// UnmarshalStreamCBOR deserializes a stream from CBOR.
func UnmarshalStreamCBOR(data []byte) (EditStream, error) {
	var cs cborStream
	if err := cborDecMode.Unmarshal(data, &cs); err != nil {
		return EditStream{}, fmt.Errorf("protocol: unmarshal stream: %w", err)
	}
	edits := make([]Edit, len(cs.Edits))
	for i, ce := range cs.Edits {
		op := EditOp(ce.Op)
		if !op.Valid() {
			return EditStream{}, fmt.Errorf("edit %d: %w: 0x%02x", i, ErrUnknownOp, ce.Op)
		}
		edits[i] = Edit{
			Op:        op,
			ID:        NodeID(ce.ID),
			Count:     ce.Count,
			Text:      ce.Text,
			Tag:       ce.Tag,
			Name:      ce.Name,
			Value:     ce.Value,
			NS:        ce.NS,
			HasNS:     ce.HasNS,
			EventKind: ce.EventKind,
			Handler:   HandlerID(ce.Handler),
		}
	}
	return EditStream{seq: cs.Seq, edits: edits}, nil
}

// MarshalEventCBOR serializes an event to canonical CBOR.
func MarshalEventCBOR(ev *Event) ([]byte, error) {
	for k, v := range ev.Fields {
		switch v.(type) {
		case string, bool, int64, int, float64:
		default:
			return nil, fmt.Errorf("%w: %s is %T", ErrInvalidField, k, v)
		}
	}
	return cborEncMode.Marshal(cborEvent{
		Seq:    ev.Seq,
		Target: uint64(ev.Target),
		Kind:   string(ev.Kind),
		Fields: ev.Fields,
	})
}

// UnmarshalEventCBOR deserializes an event from CBOR. Integer fields decode
// as int64, matching the binary codec.
func UnmarshalEventCBOR(data []byte) (*Event, error) {
	var ce cborEvent
	if err := cborDecMode.Unmarshal(data, &ce); err != nil {
		return nil, fmt.Errorf("protocol: unmarshal event: %w", err)
	}
	ev := &Event{Seq: ce.Seq, Target: NodeID(ce.Target), Kind: EventKind(ce.Kind)}
	if len(ce.Fields) > 0 {
		ev.Fields = make(Fields, len(ce.Fields))
		for k, v := range ce.Fields {
			switch v.(type) {
			case string, bool, int64, float64:
				ev.Fields[k] = v
			default:
				return nil, fmt.Errorf("%w: %s is %T", ErrInvalidField, k, v)
			}
		}
	}
	return ev, nil
}
