package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/vango-dev/editstream/pkg/protocol"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"config error", "E100", "Configuration file not found", CategoryConfig},
		{"stream error", "E201", "Stream rejected", CategoryStream},
		{"transport error", "E300", "Connection failed", CategoryTransport},
		{"unknown error code", "E999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", "a.edits")
	if err.Message != `file "a.edits" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestError_Error(t *testing.T) {
	if got, want := New("E200").Error(), "E200: Stream file could not be decoded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	wrapped := New("E300").Wrap(io.EOF)
	if got, want := wrapped.Error(), "E300: Connection failed: EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !stderrors.Is(wrapped, io.EOF) {
		t.Error("errors.Is through Unwrap failed")
	}
	if got := (&Error{Message: "plain"}).Error(); got != "plain" {
		t.Errorf("Error() = %q", got)
	}
}

func TestError_WithRenderError(t *testing.T) {
	re := &protocol.RenderError{Seq: 3, Index: 4, Op: protocol.OpPushRoot, ID: 9, Err: protocol.ErrUnknownID}
	err := New("E201").WithRenderError("click.edits", fmt.Errorf("check: %w", re))

	if err.Position == nil {
		t.Fatal("Position not set")
	}
	want := "click.edits: stream 3, edit 4 (PushRoot id=9)"
	if got := err.Position.String(); got != want {
		t.Errorf("Position = %q, want %q", got, want)
	}
	if !stderrors.Is(err, protocol.ErrUnknownID) {
		t.Error("sentinel lost")
	}

	plain := New("E202").WithRenderError("x", io.ErrUnexpectedEOF)
	if plain.Position != nil {
		t.Error("Position set for a non-render error")
	}
}

func TestPosition_String(t *testing.T) {
	tests := []struct {
		pos  *Position
		want string
	}{
		{nil, ""},
		{&Position{Seq: 1, Index: -1}, "stream 1"},
		{&Position{File: "a", Seq: 2, Index: 0}, "a: stream 2, edit 0"},
		{&Position{Seq: 2, Index: 5, Op: protocol.OpPop}, "stream 2, edit 5 (Pop)"},
	}
	for _, tt := range tests {
		if got := tt.pos.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E200") != nil {
		t.Error("FromError(nil) != nil")
	}
	orig := New("E101")
	if got := FromError(fmt.Errorf("load: %w", orig), "E200"); got != orig {
		t.Error("existing diagnostic was rewrapped")
	}
	got := FromError(io.EOF, "E200")
	if got.Code != "E200" || got.Wrapped != io.EOF {
		t.Errorf("FromError = %+v", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E201").
		WithPosition("a.edits", 7, 2).
		WithSuggestion("Pop what you push").
		Wrap(protocol.ErrMalformedStream)
	out := err.Format()

	for _, want := range []string{
		"ERROR E201: Stream rejected",
		"a.edits: stream 7, edit 2",
		"Cause: " + protocol.ErrMalformedStream.Error(),
		"Hint: Pop what you push",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("colors not disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E202").WithPosition("f", 1, 0)
	if got, want := err.FormatCompact(), "f: stream 1, edit 0: E202: Stream failed to apply"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	re := &protocol.RenderError{Seq: 1, Index: 0, Op: protocol.OpPop, Err: protocol.ErrMalformedStream}
	out := New("E201").WithRenderError("f", re).FormatJSON()

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %s: %v", out, err)
	}
	if got["code"] != "E201" || got["category"] != "stream" {
		t.Errorf("got %v", got)
	}
	pos, ok := got["position"].(map[string]any)
	if !ok || pos["op"] != "Pop" || pos["file"] != "f" {
		t.Errorf("position = %v", got["position"])
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 9)
	for _, l := range lines {
		if len(l) > 9 {
			t.Errorf("line %q longer than 9", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six" {
		t.Errorf("words lost: %q", lines)
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Print(&buf, fmt.Errorf("run: %w", New("E300")))
	if !strings.Contains(buf.String(), "ERROR E300: Connection failed") {
		t.Errorf("Print diagnostic = %q", buf.String())
	}

	buf.Reset()
	Print(&buf, io.EOF)
	if !strings.Contains(buf.String(), "ERROR: EOF") {
		t.Errorf("Print plain = %q", buf.String())
	}
}
