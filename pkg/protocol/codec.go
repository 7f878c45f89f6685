package protocol

import (
	"errors"
	"fmt"
)

// ErrUnknownOp is returned when a decoded edit carries an unknown tag.
// Unlike optional frame data, an edit cannot be skipped without corrupting
// the operand stack, so decoding stops.
var ErrUnknownOp = errors.New("protocol: unknown edit op")

// EncodeStream encodes a stream to bytes.
func EncodeStream(s EditStream) []byte {
	e := NewEncoderWithCap(16 + 8*s.Len())
	EncodeStreamTo(e, s)
	return e.Bytes()
}

// EncodeStreamTo encodes a stream using the provided encoder.
func EncodeStreamTo(e *Encoder, s EditStream) {
	e.WriteUvarint(s.seq)
	e.WriteUvarint(uint64(len(s.edits)))
	for i := range s.edits {
		encodeEdit(e, &s.edits[i])
	}
}

func encodeEdit(e *Encoder, ed *Edit) {
	e.WriteByte(byte(ed.Op))

	switch ed.Op {
	case OpPushRoot, OpCreatePlaceholder:
		e.WriteUvarint(uint64(ed.ID))

	case OpAppendChildren, OpReplaceWith, OpInsertAfter, OpInsertBefore, OpPop:
		e.WriteUvarint(uint64(ed.Count))

	case OpCreateTextNode:
		e.WriteString(ed.Text)
		e.WriteUvarint(uint64(ed.ID))

	case OpCreateElement:
		e.WriteString(ed.Tag)
		e.WriteUvarint(uint64(ed.ID))

	case OpCreateElementNs:
		e.WriteString(ed.Tag)
		e.WriteString(ed.NS)
		e.WriteUvarint(uint64(ed.ID))

	case OpNewEventListener:
		e.WriteString(ed.EventKind)
		e.WriteUvarint(uint64(ed.ID))
		e.WriteUvarint(uint64(ed.Handler))

	case OpRemoveEventListener:
		e.WriteString(ed.EventKind)
		e.WriteUvarint(uint64(ed.ID))

	case OpSetText:
		e.WriteString(ed.Text)

	case OpSetAttribute:
		e.WriteString(ed.Name)
		e.WriteString(ed.Value)
		e.WriteBool(ed.HasNS)
		if ed.HasNS {
			e.WriteString(ed.NS)
		}

	case OpRemoveAttribute:
		e.WriteString(ed.Name)

	case OpRemove:
		// No operands
	}
}

// DecodeStream decodes a stream from bytes.
func DecodeStream(data []byte) (EditStream, error) {
	return DecodeStreamFrom(NewDecoder(data))
}

// DecodeStreamFrom decodes a stream from a decoder.
func DecodeStreamFrom(d *Decoder) (EditStream, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return EditStream{}, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return EditStream{}, err
	}

	edits := make([]Edit, count)
	for i := range edits {
		if err := decodeEdit(d, &edits[i]); err != nil {
			return EditStream{}, fmt.Errorf("edit %d: %w", i, err)
		}
	}
	return EditStream{seq: seq, edits: edits}, nil
}

func decodeEdit(d *Decoder, ed *Edit) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	ed.Op = EditOp(op)

	switch ed.Op {
	case OpPushRoot, OpCreatePlaceholder:
		return readID(d, &ed.ID)

	case OpAppendChildren, OpReplaceWith, OpInsertAfter, OpInsertBefore, OpPop:
		n, err := d.ReadUvarint()
		if err != nil {
			return err
		}
		if n > MaxStreamEdits {
			return ErrCollectionTooLarge
		}
		ed.Count = uint32(n)
		return nil

	case OpCreateTextNode:
		if ed.Text, err = d.ReadString(); err != nil {
			return err
		}
		return readID(d, &ed.ID)

	case OpCreateElement:
		if ed.Tag, err = d.ReadString(); err != nil {
			return err
		}
		return readID(d, &ed.ID)

	case OpCreateElementNs:
		if ed.Tag, err = d.ReadString(); err != nil {
			return err
		}
		if ed.NS, err = d.ReadString(); err != nil {
			return err
		}
		return readID(d, &ed.ID)

	case OpNewEventListener:
		if ed.EventKind, err = d.ReadString(); err != nil {
			return err
		}
		if err := readID(d, &ed.ID); err != nil {
			return err
		}
		h, err := d.ReadUvarint()
		if err != nil {
			return err
		}
		ed.Handler = HandlerID(h)
		return nil

	case OpRemoveEventListener:
		if ed.EventKind, err = d.ReadString(); err != nil {
			return err
		}
		return readID(d, &ed.ID)

	case OpSetText:
		ed.Text, err = d.ReadString()
		return err

	case OpSetAttribute:
		if ed.Name, err = d.ReadString(); err != nil {
			return err
		}
		if ed.Value, err = d.ReadString(); err != nil {
			return err
		}
		if ed.HasNS, err = d.ReadBool(); err != nil {
			return err
		}
		if ed.HasNS {
			ed.NS, err = d.ReadString()
		}
		return err

	case OpRemoveAttribute:
		ed.Name, err = d.ReadString()
		return err

	case OpRemove:
		return nil
	}

	return fmt.Errorf("%w: 0x%02x", ErrUnknownOp, op)
}

func readID(d *Decoder, id *NodeID) error {
	v, err := d.ReadUvarint()
	if err != nil {
		return err
	}
	*id = NodeID(v)
	return nil
}
