package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/editstream/internal/errors"
	"github.com/vango-dev/editstream/pkg/protocol"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Listen != DefaultListen {
		t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, DefaultListen)
	}
	if cfg.Codec() != protocol.CodecBinary {
		t.Errorf("Codec() = %v, want binary", cfg.Codec())
	}
	if cfg.AckTimeout() != 10*time.Second {
		t.Errorf("AckTimeout() = %v", cfg.AckTimeout())
	}
	if cfg.Budget() != 0 {
		t.Errorf("Budget() = %v, want unbounded", cfg.Budget())
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
	if cfg.S3Enabled() {
		t.Error("S3 enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	var diag *errors.Error
	if !stderrors.As(err, &diag) || diag.Code != "E100" {
		t.Fatalf("missing config error = %v, want E100", err)
	}

	configJSON := `{
  "server": {
    "listen": "127.0.0.1:9000",
    "codec": "cbor",
    "ackTimeout": "2s"
  },
  "interp": {
    "budget": "4ms"
  },
  "journal": {
    "s3": {
      "bucket": "archive"
    }
  }
}
`
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:9000" {
		t.Errorf("Server.Listen = %q", cfg.Server.Listen)
	}
	if cfg.Codec() != protocol.CodecCBOR {
		t.Errorf("Codec() = %v, want cbor", cfg.Codec())
	}
	if cfg.AckTimeout() != 2*time.Second {
		t.Errorf("AckTimeout() = %v", cfg.AckTimeout())
	}
	if cfg.Budget() != 4*time.Millisecond {
		t.Errorf("Budget() = %v", cfg.Budget())
	}
	if !cfg.S3Enabled() || cfg.Journal.S3.Region != "us-east-1" {
		t.Errorf("S3 = %+v", cfg.Journal.S3)
	}
	// Unset values keep their defaults.
	if cfg.Server.EventBuffer != 64 || cfg.Log.Level != "info" {
		t.Errorf("defaults not applied: %+v %+v", cfg.Server, cfg.Log)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{invalid"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(tmpDir)
	var diag *errors.Error
	if !stderrors.As(err, &diag) || diag.Code != "E101" {
		t.Errorf("error = %v, want E101", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(map[string]string{
		"EDITSTREAM_SERVER_LISTEN":             ":9999",
		"EDITSTREAM_SERVER_CODEC":              "cbor",
		"EDITSTREAM_SERVER_ALLOWED_ORIGINS":    "https://a.example,https://b.example",
		"EDITSTREAM_JOURNAL_CAPACITY":          "16",
		"EDITSTREAM_JOURNAL_S3_BUCKET":         "env-bucket",
		"EDITSTREAM_JOURNAL_S3_USE_PATH_STYLE": "true",
		"EDITSTREAM_JOURNAL_S3_ACCESS_KEY_ID":  "AKID",
		"EDITSTREAM_LOG_LEVEL":                 "debug",
	})
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.Server.Listen != ":9999" || cfg.Codec() != protocol.CodecCBOR {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Journal.Capacity != 16 {
		t.Errorf("Journal.Capacity = %d", cfg.Journal.Capacity)
	}
	s3 := cfg.Journal.S3
	if s3.Bucket != "env-bucket" || !s3.UsePathStyle || s3.AccessKeyID != "AKID" {
		t.Errorf("S3 = %+v", s3)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	// Untouched settings survive.
	if cfg.Server.AckTimeout != "10s" || cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("defaults overwritten: %+v", cfg)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(map[string]string{"EDITSTREAM_SERVER_EVENT_BUFFER": "many"})
	var diag *errors.Error
	if !stderrors.As(err, &diag) || diag.Code != "E102" {
		t.Errorf("error = %v, want E102", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"codec", func(c *Config) { c.Server.Codec = "json" }, "server.codec"},
		{"ack timeout", func(c *Config) { c.Server.AckTimeout = "soon" }, "server.ackTimeout"},
		{"negative budget", func(c *Config) { c.Interp.Budget = "-1ms" }, "interp.budget"},
		{"event buffer", func(c *Config) { c.Server.EventBuffer = -1 }, "server.eventBuffer"},
		{"capacity", func(c *Config) { c.Journal.Capacity = -5 }, "journal.capacity"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			var diag *errors.Error
			if !stderrors.As(err, &diag) || diag.Code != "E103" {
				t.Fatalf("Validate() = %v, want E103", err)
			}
			if !strings.HasPrefix(diag.Detail, tt.field) {
				t.Errorf("Detail = %q, want field %s", diag.Detail, tt.field)
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	cfg := New()
	cfg.Server.Codec = "cbor"
	cfg.Journal.S3.Bucket = "b"
	cfg.Journal.S3.SecretAccessKey = "secret"

	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("credentials written to disk")
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		t.Error("missing trailing newline")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Codec() != protocol.CodecCBOR || loaded.Journal.S3.Bucket != "b" {
		t.Errorf("round trip lost settings: %+v", loaded)
	}
	if err := loaded.Save(); err != nil {
		t.Errorf("Save: %v", err)
	}
	if err := New().Save(); err == nil {
		t.Error("Save without path succeeded")
	}
}

func TestClone(t *testing.T) {
	cfg := New()
	cfg.Server.AllowedOrigins = []string{"a"}
	cp := cfg.Clone()
	cp.Server.AllowedOrigins[0] = "b"
	cp.Server.Listen = ":1"
	if cfg.Server.AllowedOrigins[0] != "a" || cfg.Server.Listen != DefaultListen {
		t.Error("Clone shares state with the original")
	}
}

func TestResolveExplicitPath(t *testing.T) {
	if _, err := Resolve(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Resolve with a missing explicit path succeeded")
	}

	path := filepath.Join(t.TempDir(), "custom.json")
	if err := os.WriteFile(path, []byte(`{"log": {"format": "json"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EDITSTREAM_LOG_LEVEL", "warn")
	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "warn" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLogger(t *testing.T) {
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "seq", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info logged at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"seq":3`) {
		t.Errorf("output = %q", out)
	}
}
