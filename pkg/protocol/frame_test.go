package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantLen int // expected total length including header
	}{
		{
			name:    "empty_payload",
			frame:   Frame{Type: FrameEvent, Payload: []byte{}},
			wantLen: FrameHeaderSize,
		},
		{
			name:    "edits",
			frame:   Frame{Type: FrameEdits, Payload: []byte{0x01, 0x02, 0x03}},
			wantLen: FrameHeaderSize + 3,
		},
		{
			name:    "rebuild_cbor",
			frame:   Frame{Type: FrameEdits, Flags: FlagCBOR | FlagRebuild, Payload: []byte("test")},
			wantLen: FrameHeaderSize + 4,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := tc.frame.Encode()
			if len(encoded) != tc.wantLen {
				t.Errorf("Encode() length = %d, want %d", len(encoded), tc.wantLen)
			}
			if FrameType(encoded[0]) != tc.frame.Type {
				t.Errorf("Encoded type = %v, want %v", FrameType(encoded[0]), tc.frame.Type)
			}

			decoded, err := DecodeFrame(encoded)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			if decoded.Type != tc.frame.Type || decoded.Flags != tc.frame.Flags {
				t.Errorf("Decoded header = %v/%v, want %v/%v", decoded.Type, decoded.Flags, tc.frame.Type, tc.frame.Flags)
			}
			if !bytes.Equal(decoded.Payload, tc.frame.Payload) {
				t.Errorf("Decoded payload = %v, want %v", decoded.Payload, tc.frame.Payload)
			}
		})
	}
}

func TestFrameHeaderLength(t *testing.T) {
	payload := make([]byte, 70000)
	encoded := NewFrame(FrameEdits, payload).Encode()

	_, _, length, err := DecodeFrameHeader(encoded)
	if err != nil {
		t.Fatalf("DecodeFrameHeader: %v", err)
	}
	if length != len(payload) {
		t.Errorf("length = %d, want %d", length, len(payload))
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	if _, err := DecodeFrame([]byte{0x01, 0x00}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("short header: err = %v", err)
	}

	truncated := NewFrame(FrameEdits, []byte{1, 2, 3, 4}).Encode()[:FrameHeaderSize+2]
	if _, err := DecodeFrame(truncated); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("short payload: err = %v", err)
	}

	huge := []byte{byte(FrameEdits), 0, 0x7F, 0xFF, 0xFF, 0xFF}
	if _, err := DecodeFrame(huge); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("huge payload: err = %v", err)
	}
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	frames := []*Frame{
		NewFrame(FrameEdits, EncodeStream(helloWorld())),
		NewFrameWithFlags(FrameAck, 0, EncodeAck(NewAck(1, nil))),
		NewFrame(FrameControl, EncodeControl(ControlPing, &PingPong{Timestamp: 7})),
	}
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for i, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("frame %d mismatch", i)
		}
	}
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("ReadFrame at end: err = %v, want io.EOF", err)
	}
}

func TestFrameFlags(t *testing.T) {
	f := FlagCBOR | FlagRebuild
	if !f.Has(FlagCBOR) || !f.Has(FlagRebuild) {
		t.Error("Has() missed a set flag")
	}
	if FrameFlags(0).Has(FlagCBOR) {
		t.Error("Has() on empty flags")
	}
}

func TestFrameTypeString(t *testing.T) {
	tests := map[FrameType]string{
		FrameEdits:      "Edits",
		FrameEvent:      "Event",
		FrameAck:        "Ack",
		FrameControl:    "Control",
		FrameError:      "Error",
		FrameType(0xEE): "Unknown",
	}
	for ft, want := range tests {
		if got := ft.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", ft, got, want)
		}
	}
}
