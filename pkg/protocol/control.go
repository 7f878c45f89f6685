package protocol

import "fmt"

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlPing           ControlType = 0x01 // Heartbeat
	ControlPong           ControlType = 0x02 // Response to ping
	ControlRebuildRequest ControlType = 0x10 // Renderer asks for a full rebuild stream
	ControlClose          ControlType = 0x20 // Link close
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlRebuildRequest:
		return "RebuildRequest"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CloseReason indicates why a link is being closed.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00 // Normal closure
	CloseGoingAway      CloseReason = 0x01 // Peer going away
	CloseServerShutdown CloseReason = 0x02 // Model shutting down
	CloseError          CloseReason = 0x03 // Error occurred
)

// String returns the string representation of the close reason.
func (cr CloseReason) String() string {
	switch cr {
	case CloseNormal:
		return "Normal"
	case CloseGoingAway:
		return "GoingAway"
	case CloseServerShutdown:
		return "ServerShutdown"
	case CloseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// PingPong is the payload for Ping and Pong messages.
type PingPong struct {
	Timestamp uint64 // Unix milliseconds
}

// RebuildRequest is sent by a renderer whose batch failed. The model answers
// with a full stream flagged FlagRebuild.
type RebuildRequest struct {
	FailedSeq uint64    // Sequence of the failed stream
	Code      ErrorCode // Why the batch failed
}

// CloseMessage is sent when closing a link.
type CloseMessage struct {
	Reason  CloseReason
	Message string
}

// EncodeControl encodes a control message to bytes.
func EncodeControl(ct ControlType, payload any) []byte {
	e := NewEncoder()
	e.WriteByte(byte(ct))

	switch p := payload.(type) {
	case *PingPong:
		e.WriteUvarint(p.Timestamp)
	case *RebuildRequest:
		e.WriteUvarint(p.FailedSeq)
		e.WriteUint16(uint16(p.Code))
	case *CloseMessage:
		e.WriteByte(byte(p.Reason))
		e.WriteString(p.Message)
	}
	return e.Bytes()
}

// DecodeControl decodes a control message from bytes.
// Returns the control type and the decoded payload.
func DecodeControl(data []byte) (ControlType, any, error) {
	d := NewDecoder(data)
	typeByte, err := d.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	ct := ControlType(typeByte)

	switch ct {
	case ControlPing, ControlPong:
		ts, err := d.ReadUvarint()
		if err != nil {
			return ct, nil, err
		}
		return ct, &PingPong{Timestamp: ts}, nil

	case ControlRebuildRequest:
		seq, err := d.ReadUvarint()
		if err != nil {
			return ct, nil, err
		}
		code, err := d.ReadUint16()
		if err != nil {
			return ct, nil, err
		}
		return ct, &RebuildRequest{FailedSeq: seq, Code: ErrorCode(code)}, nil

	case ControlClose:
		reason, err := d.ReadByte()
		if err != nil {
			return ct, nil, err
		}
		message, err := d.ReadString()
		if err != nil {
			return ct, nil, err
		}
		return ct, &CloseMessage{Reason: CloseReason(reason), Message: message}, nil
	}

	return ct, nil, fmt.Errorf("protocol: unknown control type 0x%02x", typeByte)
}
