package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

// Primitive encoding shared by streams, events, acks and control payloads:
// unsigned varints, ZigZag signed varints, length-prefixed strings, one-byte
// bools, and big-endian fixed-width integers and floats.

// MaxVarintLen is the maximum number of bytes a varint can occupy.
const MaxVarintLen = binary.MaxVarintLen64

// Decoding errors.
var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
	ErrInvalidUTF8        = errors.New("protocol: string is not valid UTF-8")
)

// DecodeUvarint decodes an unsigned varint from buf.
// Returns (value, bytesRead). If bytesRead < 0, decoding failed:
//   - -1: buffer too short (incomplete varint)
//   - -2: varint overflow (more than 10 bytes)
func DecodeUvarint(buf []byte) (uint64, int) {
	v, n := binary.Uvarint(buf)
	switch {
	case n == 0:
		return 0, -1
	case n < 0:
		return 0, -2
	}
	return v, n
}

// DecodeSvarint decodes a ZigZag-encoded signed varint.
// Negative bytesRead indicates error (see DecodeUvarint).
func DecodeSvarint(buf []byte) (int64, int) {
	v, n := binary.Varint(buf)
	switch {
	case n == 0:
		return 0, -1
	case n < 0:
		return 0, -2
	}
	return v, n
}

// UvarintLen returns the number of bytes needed to encode v as a varint.
func UvarintLen(v uint64) int {
	n := 1
	for ; v >= 0x80; v >>= 7 {
		n++
	}
	return n
}

// Encoder appends primitives to a growing buffer. It never fails; limits
// are enforced on decode.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with a small initial capacity.
func NewEncoder() *Encoder {
	return NewEncoderWithCap(256)
}

// NewEncoderWithCap creates an encoder with the given initial capacity.
func NewEncoderWithCap(n int) *Encoder {
	return &Encoder{buf: make([]byte, 0, n)}
}

// Reset empties the encoder, keeping its buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Bytes returns the encoded bytes. The slice aliases the encoder's buffer
// until the next Reset or write.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int { return len(e.buf) }

func (e *Encoder) WriteByte(b byte)       { e.buf = append(e.buf, b) }
func (e *Encoder) WriteBytes(b []byte)    { e.buf = append(e.buf, b...) }
func (e *Encoder) WriteUvarint(v uint64)  { e.buf = binary.AppendUvarint(e.buf, v) }
func (e *Encoder) WriteSvarint(v int64)   { e.buf = binary.AppendVarint(e.buf, v) }
func (e *Encoder) WriteUint16(v uint16)   { e.buf = binary.BigEndian.AppendUint16(e.buf, v) }
func (e *Encoder) WriteUint32(v uint32)   { e.buf = binary.BigEndian.AppendUint32(e.buf, v) }
func (e *Encoder) WriteFloat64(v float64) { e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(v)) }

// WriteString appends a length-prefixed string.
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteBool appends 0x01 or 0x00.
func (e *Encoder) WriteBool(b bool) {
	var v byte
	if b {
		v = 1
	}
	e.buf = append(e.buf, v)
}

// Decoder reads primitives from a byte slice. Every read that runs past the
// end returns io.ErrUnexpectedEOF and leaves the position unchanged.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// EOF reports whether all bytes have been read.
func (d *Decoder) EOF() bool { return d.pos >= len(d.buf) }

// take returns the next n bytes.
func (d *Decoder) take(n int) ([]byte, error) {
	if n > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool reads a bool. Any non-zero byte is true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	return b != 0, err
}

func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := DecodeUvarint(d.buf[d.pos:])
	if err := varintErr(n); err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func (d *Decoder) ReadSvarint() (int64, error) {
	v, n := DecodeSvarint(d.buf[d.pos:])
	if err := varintErr(n); err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func varintErr(n int) error {
	switch n {
	case -1:
		return io.ErrUnexpectedEOF
	case -2:
		return ErrVarintOverflow
	}
	return nil
}

func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) ReadFloat64() (float64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadString reads a length-prefixed UTF-8 string of at most
// DefaultMaxAllocation bytes.
func (d *Decoder) ReadString() (string, error) {
	start := d.pos
	n, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if n > DefaultMaxAllocation {
		d.pos = start
		return "", ErrAllocationTooLarge
	}
	b, err := d.take(int(n))
	if err != nil {
		d.pos = start
		return "", err
	}
	if !utf8.Valid(b) {
		d.pos = start
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// ReadCollectionCount reads a count bounded by MaxCollectionCount. Every
// item occupies at least one byte, so counts larger than the remaining
// buffer are rejected before anything is allocated.
func (d *Decoder) ReadCollectionCount() (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if count > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}
