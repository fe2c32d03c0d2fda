package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vango-dev/groupwire/internal/errors"
	"github.com/vango-dev/groupwire/pkg/marshal"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "groupwire.toml"

	// EnvConfigPath overrides the configuration file location.
	EnvConfigPath = "GROUPWIRE_CONFIG"

	// DefaultAddr is the default inspection server address.
	DefaultAddr = "127.0.0.1:7811"

	// DefaultReadLimit bounds inspection request bodies.
	DefaultReadLimit = 1 << 20

	// DefaultTracerName names the inspection server's tracer.
	DefaultTracerName = "groupwire/inspect"

	// DefaultNamespace prefixes exported metrics.
	DefaultNamespace = "groupwire"
)

// Config represents the complete groupwire.toml configuration.
type Config struct {
	Codec   CodecConfig
	Server  ServerConfig
	Log     LogConfig
	Metrics MetricsConfig

	// configPath stores the path where the config was loaded from.
	configPath string
}

// CodecConfig configures message encoding.
type CodecConfig struct {
	// Marshaller serializes object payloads: gob, cbor or json.
	Marshaller string

	// Compression wraps the marshaller: none, lz4, zstd or snappy.
	Compression string

	// MaxPayload is the largest payload a decode will allocate.
	MaxPayload int

	// MaxHeaders is the largest header count a decode will accept.
	MaxHeaders int
}

// ServerConfig configures the inspection server.
type ServerConfig struct {
	Addr       string
	ReadLimit  int64
	TracerName string
}

// LogConfig configures the root logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string

	// Format is text or json.
	Format string
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// fileConfig maps groupwire.toml keys.
type fileConfig struct {
	Codec struct {
		Marshaller  string `toml:"marshaller"`
		Compression string `toml:"compression"`
		MaxPayload  int    `toml:"max_payload"`
		MaxHeaders  int    `toml:"max_headers"`
	} `toml:"codec"`
	Server struct {
		Addr       string `toml:"addr"`
		ReadLimit  int64  `toml:"read_limit"`
		TracerName string `toml:"tracer_name"`
	} `toml:"server"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Metrics struct {
		Enabled   bool   `toml:"enabled"`
		Namespace string `toml:"namespace"`
	} `toml:"metrics"`
}

// New returns the default configuration.
func New() *Config {
	limits := protocol.DefaultLimits()
	return &Config{
		Codec: CodecConfig{
			Marshaller:  "gob",
			Compression: "none",
			MaxPayload:  limits.MaxPayload,
			MaxHeaders:  limits.MaxHeaders,
		},
		Server: ServerConfig{
			Addr:       DefaultAddr,
			ReadLimit:  DefaultReadLimit,
			TracerName: DefaultTracerName,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
	}
}

// Resolve loads the configuration named by path, or by GROUPWIRE_CONFIG
// when path is empty, or groupwire.toml in the working directory when it
// exists. With none of these it returns the defaults.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		if _, err := os.Stat(ConfigFileName); err != nil {
			return New(), nil
		}
		path = ConfigFileName
	}
	return LoadFile(path)
}

// Load reads groupwire.toml from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path, overlays it
// on the defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("G050").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				Wrap(err)
		}
		return nil, errors.New("G051").
			WithDetail("Failed to parse " + path).
			Wrap(err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New("G051").
			WithDetail("Unknown keys in " + path + ": " + strings.Join(keys, ", "))
	}

	cfg := New()
	if meta.IsDefined("codec", "marshaller") {
		cfg.Codec.Marshaller = strings.TrimSpace(raw.Codec.Marshaller)
	}
	if meta.IsDefined("codec", "compression") {
		cfg.Codec.Compression = strings.TrimSpace(raw.Codec.Compression)
	}
	if meta.IsDefined("codec", "max_payload") {
		cfg.Codec.MaxPayload = raw.Codec.MaxPayload
	}
	if meta.IsDefined("codec", "max_headers") {
		cfg.Codec.MaxHeaders = raw.Codec.MaxHeaders
	}
	if meta.IsDefined("server", "addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.Server.Addr)
	}
	if meta.IsDefined("server", "read_limit") {
		cfg.Server.ReadLimit = raw.Server.ReadLimit
	}
	if meta.IsDefined("server", "tracer_name") {
		cfg.Server.TracerName = strings.TrimSpace(raw.Server.TracerName)
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(raw.Log.Level))
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(raw.Log.Format))
	}
	if meta.IsDefined("metrics", "enabled") {
		cfg.Metrics.Enabled = raw.Metrics.Enabled
	}
	if meta.IsDefined("metrics", "namespace") {
		cfg.Metrics.Namespace = strings.TrimSpace(raw.Metrics.Namespace)
	}

	cfg.configPath = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.NewMarshaller(); err != nil {
		return errors.FromError(err, "G052")
	}
	if c.Codec.MaxPayload < 0 || c.Codec.MaxPayload > protocol.HardMaxAllocation {
		return errors.New("G052").
			WithDetail(fmt.Sprintf("codec.max_payload must be between 0 and %d", protocol.HardMaxAllocation))
	}
	if c.Codec.MaxHeaders < 0 || c.Codec.MaxHeaders > protocol.MaxHeaderCount {
		return errors.New("G052").
			WithDetail(fmt.Sprintf("codec.max_headers must be between 0 and %d", protocol.MaxHeaderCount))
	}
	if c.Server.ReadLimit < 0 {
		return errors.New("G052").WithDetail("server.read_limit must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New("G052").WithDetail(err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("G052").
			WithDetail(fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	return nil
}

// Limits returns the decode limits. Zero values select the defaults.
func (c *Config) Limits() protocol.Limits {
	return protocol.Limits{
		MaxPayload: c.Codec.MaxPayload,
		MaxHeaders: c.Codec.MaxHeaders,
	}.Normalize()
}

// NewMarshaller builds the configured object marshaller.
func (c *Config) NewMarshaller() (marshal.Marshaller, error) {
	return marshal.Named(c.Codec.Marshaller, c.Codec.Compression)
}

// NewLogger builds the root logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q must be debug, info, warn or error", s)
	}
	return level, nil
}
