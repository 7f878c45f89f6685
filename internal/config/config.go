package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vango-dev/editstream/internal/errors"
	"github.com/vango-dev/editstream/pkg/protocol"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "editstream.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "EDITSTREAM_"

	// DefaultListen is the default server address.
	DefaultListen = ":8080"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "editstream"
)

// Config represents the complete editstream.json configuration.
type Config struct {
	// Server contains model server settings.
	Server ServerConfig `json:"server,omitempty" envPrefix:"SERVER_"`

	// Interp contains interpreter settings.
	Interp InterpConfig `json:"interp,omitempty" envPrefix:"INTERP_"`

	// Journal contains applied-stream history settings.
	Journal JournalConfig `json:"journal,omitempty" envPrefix:"JOURNAL_"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty" envPrefix:"LOG_"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty" envPrefix:"METRICS_"`

	configPath string
}

// ServerConfig contains model server settings.
type ServerConfig struct {
	// Listen is the HTTP listen address.
	Listen string `json:"listen,omitempty" env:"LISTEN"`

	// Codec is the edit stream encoding: "binary" or "cbor".
	Codec string `json:"codec,omitempty" env:"CODEC"`

	// AckTimeout bounds the wait for a renderer ack (e.g., "10s").
	AckTimeout string `json:"ackTimeout,omitempty" env:"ACK_TIMEOUT"`

	// PingInterval is the heartbeat period (e.g., "20s").
	PingInterval string `json:"pingInterval,omitempty" env:"PING_INTERVAL"`

	// EventBuffer is the per-session event queue size.
	EventBuffer int `json:"eventBuffer,omitempty" env:"EVENT_BUFFER"`

	// AllowedOrigins restricts WebSocket upgrades. Empty allows same-origin
	// requests only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" env:"ALLOWED_ORIGINS"`
}

// InterpConfig contains interpreter settings.
type InterpConfig struct {
	// Budget bounds one Apply (e.g., "4ms"). Empty means unbounded.
	Budget string `json:"budget,omitempty" env:"BUDGET"`
}

// JournalConfig contains applied-stream history settings.
type JournalConfig struct {
	// Capacity is the number of streams kept per session.
	Capacity int `json:"capacity,omitempty" env:"CAPACITY"`

	// S3 archives every applied stream when Bucket is set.
	S3 S3Config `json:"s3,omitempty" envPrefix:"S3_"`
}

// S3Config contains journal archive settings.
type S3Config struct {
	Bucket          string `json:"bucket,omitempty" env:"BUCKET"`
	Prefix          string `json:"prefix,omitempty" env:"PREFIX"`
	Region          string `json:"region,omitempty" env:"REGION"`
	Endpoint        string `json:"endpoint,omitempty" env:"ENDPOINT"`
	UsePathStyle    bool   `json:"usePathStyle,omitempty" env:"USE_PATH_STYLE"`
	AccessKeyID     string `json:"-" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"-" env:"SECRET_ACCESS_KEY"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" env:"LEVEL"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty" env:"FORMAT"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" env:"NAMESPACE"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       DefaultListen,
			Codec:        protocol.CodecBinary.String(),
			AckTimeout:   "10s",
			PingInterval: "20s",
			EventBuffer:  64,
		},
		Journal: JournalConfig{
			Capacity: 128,
			S3: S3Config{
				Prefix: "sessions",
				Region: "us-east-1",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	if c.Server.AllowedOrigins != nil {
		cp.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	}
	return &cp
}

// Load reads configuration from the specified directory.
// It looks for editstream.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Run 'editstream config --write' to create one")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E101").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}
	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// Resolve loads the configuration used by the command line. An explicit
// path must exist; without one, editstream.json in the working directory
// is used when present and the defaults otherwise. Environment overrides
// are applied last and the result is validated.
func Resolve(path string) (*Config, error) {
	var cfg *Config
	switch {
	case path != "":
		c, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	case Exists("."):
		c, err := Load(".")
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		cfg = New()
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from EDITSTREAM_* variables. A nil environ
// reads the process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return errors.New("E102").Wrap(err)
	}
	c.applyDefaults()
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := c.MarshalIndent()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").Wrap(err)
	}
	c.configPath = path
	return nil
}

// MarshalIndent returns the configuration as indented JSON with a
// trailing newline. Credentials are never written.
func (c *Config) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.New("E101").Wrap(err)
	}
	return append(data, '\n'), nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	def := New()
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.Codec == "" {
		c.Server.Codec = def.Server.Codec
	}
	if c.Server.AckTimeout == "" {
		c.Server.AckTimeout = def.Server.AckTimeout
	}
	if c.Server.PingInterval == "" {
		c.Server.PingInterval = def.Server.PingInterval
	}
	if c.Server.EventBuffer == 0 {
		c.Server.EventBuffer = def.Server.EventBuffer
	}
	if c.Journal.Capacity == 0 {
		c.Journal.Capacity = def.Journal.Capacity
	}
	if c.Journal.S3.Region == "" {
		c.Journal.S3.Region = def.Journal.S3.Region
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
}

func invalid(field, detail string) error {
	return errors.New("E103").WithDetail(field + ": " + detail)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := protocol.ParseCodec(c.Server.Codec); err != nil {
		return invalid("server.codec", err.Error())
	}
	for field, v := range map[string]string{
		"server.ackTimeout":   c.Server.AckTimeout,
		"server.pingInterval": c.Server.PingInterval,
		"interp.budget":       c.Interp.Budget,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			return invalid(field, "must be a non-negative duration like \"10s\"")
		}
	}
	if c.Server.EventBuffer < 0 {
		return invalid("server.eventBuffer", "must not be negative")
	}
	if c.Journal.Capacity < 0 {
		return invalid("journal.capacity", "must not be negative")
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return invalid("log.level", "must be debug, info, warn, or error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format", "must be text or json")
	}
	return nil
}

// Codec returns the parsed server codec.
func (c *Config) Codec() protocol.Codec {
	codec, _ := protocol.ParseCodec(c.Server.Codec)
	return codec
}

// AckTimeout returns the parsed ack timeout.
func (c *Config) AckTimeout() time.Duration {
	return parseDuration(c.Server.AckTimeout)
}

// PingInterval returns the parsed heartbeat period.
func (c *Config) PingInterval() time.Duration {
	return parseDuration(c.Server.PingInterval)
}

// Budget returns the parsed apply budget; zero means unbounded.
func (c *Config) Budget() time.Duration {
	return parseDuration(c.Interp.Budget)
}

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// S3Enabled reports whether stream archiving is configured.
func (c *Config) S3Enabled() bool {
	return c.Journal.S3.Bucket != ""
}

// Logger builds the logger described by the log settings.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var lvl slog.Level
	_ = lvl.UnmarshalText([]byte(c.Log.Level))
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
