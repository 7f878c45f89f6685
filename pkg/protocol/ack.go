package protocol

// Ack is sent by the renderer after each apply. Code is CodeOK on success;
// otherwise the batch failed and the model should expect a RebuildRequest.
type Ack struct {
	Seq     uint64    // Sequence of the applied stream
	Code    ErrorCode // Apply result
	Message string    // Error detail, empty on success
}

// Err returns the error carried by the ack, or nil.
func (a *Ack) Err() error {
	if a.Code == CodeOK {
		return nil
	}
	return &RenderError{Seq: a.Seq, Err: a.Code.Err()}
}

// NewAck creates an Ack for the result of applying stream seq.
func NewAck(seq uint64, err error) *Ack {
	ack := &Ack{Seq: seq, Code: CodeOf(err)}
	if err != nil {
		ack.Message = err.Error()
	}
	return ack
}

// EncodeAck encodes an Ack to bytes.
func EncodeAck(ack *Ack) []byte {
	e := NewEncoder()
	e.WriteUvarint(ack.Seq)
	e.WriteUint16(uint16(ack.Code))
	e.WriteString(ack.Message)
	return e.Bytes()
}

// DecodeAck decodes an Ack from bytes.
func DecodeAck(data []byte) (*Ack, error) {
	d := NewDecoder(data)

	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	msg, err := d.ReadString()
	if err != nil {
		return nil, err
	}

	return &Ack{Seq: seq, Code: ErrorCode(code), Message: msg}, nil
}
