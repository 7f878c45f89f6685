package main

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/editstream/internal/errors"
	"github.com/vango-dev/editstream/pkg/protocol"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func diagCode(err error) string {
	var d *errors.Error
	if stderrors.As(err, &d) {
		return d.Code
	}
	return ""
}

func TestRecordValidateApply(t *testing.T) {
	for _, codec := range []string{"binary", "cbor"} {
		t.Run(codec, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "counter.edits")

			out, err := run(t, "record", "--out", path, "--clicks", "3", "--codec", codec)
			if err != nil {
				t.Fatalf("record: %v", err)
			}
			if !strings.Contains(out, "Recorded 4 streams") {
				t.Errorf("record output = %q", out)
			}

			streams, err := readStreamFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if len(streams) != 4 || !streams[0].Rebuild || streams[1].Rebuild {
				t.Fatalf("streams = %+v", streams)
			}

			out, err = run(t, "validate", path)
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if !strings.Contains(out, "4 streams") {
				t.Errorf("validate output = %q", out)
			}

			out, err = run(t, "apply", path)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if !strings.Contains(out, `"Count: 3"`) {
				t.Errorf("apply output missing final count:\n%s", out)
			}
		})
	}
}

func writeFrames(t *testing.T, streams ...protocol.EditStream) string {
	t.Helper()
	var buf bytes.Buffer
	for _, s := range streams {
		if err := writeStream(&buf, protocol.CodecBinary, s, false); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "s.edits")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateRejectsForwardReference(t *testing.T) {
	path := writeFrames(t, protocol.NewEditStream(1, []protocol.Edit{
		{Op: protocol.OpPushRoot, ID: 7},
		{Op: protocol.OpPop, Count: 1},
	}))

	_, err := run(t, "validate", path)
	if diagCode(err) != "E201" {
		t.Fatalf("validate error = %v, want E201", err)
	}
	if !stderrors.Is(err, protocol.ErrUnknownID) {
		t.Errorf("sentinel lost: %v", err)
	}
	var d *errors.Error
	stderrors.As(err, &d)
	if d.Position == nil || d.Position.Index != 0 || d.Position.ID != 7 {
		t.Errorf("Position = %+v", d.Position)
	}
}

func TestApplyReportsFailingEdit(t *testing.T) {
	path := writeFrames(t,
		protocol.NewEditStream(1, []protocol.Edit{
			{Op: protocol.OpPushRoot, ID: 0},
			{Op: protocol.OpCreateElement, Tag: "p", ID: 1},
			{Op: protocol.OpAppendChildren, Count: 1},
			{Op: protocol.OpPop, Count: 1},
		}),
		protocol.NewEditStream(2, []protocol.Edit{
			{Op: protocol.OpPop, Count: 1},
		}),
	)

	_, err := run(t, "apply", path)
	if diagCode(err) != "E202" {
		t.Fatalf("apply error = %v, want E202", err)
	}
	var d *errors.Error
	stderrors.As(err, &d)
	if d.Position == nil || d.Position.Seq != 2 {
		t.Errorf("Position = %+v", d.Position)
	}
}

func TestApplyUndecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.edits")
	frame := protocol.NewFrame(protocol.FrameEdits, []byte{1, 1, 0xEE})
	if err := os.WriteFile(path, frame.Encode(), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "apply", path)
	if diagCode(err) != "E200" {
		t.Errorf("apply error = %v, want E200", err)
	}
	if !stderrors.Is(err, protocol.ErrUnknownOp) {
		t.Errorf("sentinel lost: %v", err)
	}
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editstream.json")
	if _, err := run(t, "config", "--defaults", "--write", path); err != nil {
		t.Fatalf("config --write: %v", err)
	}

	t.Setenv("EDITSTREAM_SERVER_CODEC", "cbor")
	out, err := run(t, "--config", path, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, `"codec": "cbor"`) {
		t.Errorf("env override missing:\n%s", out)
	}

	t.Setenv("EDITSTREAM_SERVER_CODEC", "xml")
	if _, err := run(t, "--config", path, "config"); diagCode(err) != "E103" {
		t.Errorf("invalid env error = %v, want E103", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}
