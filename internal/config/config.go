package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/scopebind/internal/errors"
)

const (
	// ConfigFileName is the base name of the configuration file.
	ConfigFileName = "scopebind"

	DefaultBindAttr     = "data-bind"
	DefaultMetaAttr     = "data-meta"
	DefaultActionAttr   = "data-action"
	DefaultScopeAttr    = "data-scope-id"
	DefaultTemplateAttr = "data-template"

	// DefaultChunkThreshold is the visible row count above which lists
	// render incrementally.
	DefaultChunkThreshold = 200

	// DefaultChunkSize is the number of rows rendered per idle turn.
	DefaultChunkSize = 50

	DefaultFrameInterval = "16ms"
	DefaultFallbackDelay = "16ms"

	DefaultAddr      = ":8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config is the complete scopebind configuration.
type Config struct {
	// Attributes names the markup attributes the engine reads and writes.
	Attributes AttributeConfig `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	// Render tunes the list renderer.
	Render RenderConfig `json:"render,omitempty" yaml:"render,omitempty"`

	// Loop configures the host event loop.
	Loop LoopConfig `json:"loop,omitempty" yaml:"loop,omitempty"`

	// Server configures the live server.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Log configures the slog logger.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// AttributeConfig names the markup attributes.
type AttributeConfig struct {
	// Bind holds the binding tokens, e.g. "text:name,show:visible".
	Bind string `json:"bind,omitempty" yaml:"bind,omitempty"`

	// Meta holds list/table metadata, e.g. "cols:name,email;sort:name".
	Meta string `json:"meta,omitempty" yaml:"meta,omitempty"`

	// Action holds the delegated click action, e.g. "remove" or "select('a')".
	Action string `json:"action,omitempty" yaml:"action,omitempty"`

	// Scope marks scope boundaries with their registry id.
	Scope string `json:"scope,omitempty" yaml:"scope,omitempty"`

	// Template marks an explicit list row template.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
}

// RenderConfig tunes list rendering.
type RenderConfig struct {
	ChunkThreshold int `json:"chunkThreshold,omitempty" yaml:"chunkThreshold,omitempty"`
	ChunkSize      int `json:"chunkSize,omitempty" yaml:"chunkSize,omitempty"`

	// PageSize is applied to lists whose metadata sets none. Zero disables
	// paging.
	PageSize int `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
}

// LoopConfig configures frame timing. Durations use time.ParseDuration
// syntax; "0" disables the frame clock.
type LoopConfig struct {
	FrameInterval string `json:"frameInterval,omitempty" yaml:"frameInterval,omitempty"`
	FallbackDelay string `json:"fallbackDelay,omitempty" yaml:"fallbackDelay,omitempty"`
}

// ServerConfig configures the live server.
type ServerConfig struct {
	Addr  string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Watch bool   `json:"watch,omitempty" yaml:"watch,omitempty"`

	// Origins lists extra origins allowed to open the live websocket. The
	// server's own host is always allowed.
	Origins []string `json:"origins,omitempty" yaml:"origins,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New returns a configuration with every default applied.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads scopebind.json, scopebind.yaml or scopebind.yml from dir.
// A directory without a configuration file yields the defaults.
func Load(dir string) (*Config, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, ConfigFileName+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return New(), nil
}

// LoadFile reads a configuration file. YAML is used for .yaml and .yml
// files, JSON otherwise.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigRead).WithDetail(path).Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("failed to parse " + path).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the configuration was loaded from, or "".
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	a := &c.Attributes
	if a.Bind == "" {
		a.Bind = DefaultBindAttr
	}
	if a.Meta == "" {
		a.Meta = DefaultMetaAttr
	}
	if a.Action == "" {
		a.Action = DefaultActionAttr
	}
	if a.Scope == "" {
		a.Scope = DefaultScopeAttr
	}
	if a.Template == "" {
		a.Template = DefaultTemplateAttr
	}

	if c.Render.ChunkThreshold == 0 {
		c.Render.ChunkThreshold = DefaultChunkThreshold
	}
	if c.Render.ChunkSize == 0 {
		c.Render.ChunkSize = DefaultChunkSize
	}

	if c.Loop.FrameInterval == "" {
		c.Loop.FrameInterval = DefaultFrameInterval
	}
	if c.Loop.FallbackDelay == "" {
		c.Loop.FallbackDelay = DefaultFallbackDelay
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Render.ChunkThreshold < 0 || c.Render.ChunkSize < 0 || c.Render.PageSize < 0 {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("render sizes must not be negative")
	}
	if _, err := time.ParseDuration(c.Loop.FrameInterval); err != nil {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("loop.frameInterval: " + c.Loop.FrameInterval).
			Wrap(err)
	}
	if _, err := time.ParseDuration(c.Loop.FallbackDelay); err != nil {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("loop.fallbackDelay: " + c.Loop.FallbackDelay).
			Wrap(err)
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("log.level: " + c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("log.format: " + c.Log.Format)
	}

	attrs := []string{c.Attributes.Bind, c.Attributes.Meta, c.Attributes.Action, c.Attributes.Scope, c.Attributes.Template}
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if seen[a] {
			return errors.New(errors.CodeConfigInvalid).
				WithDetail("attribute " + a + " is used for more than one purpose")
		}
		seen[a] = true
	}
	return nil
}

// FrameInterval returns the parsed frame interval.
func (c *Config) FrameInterval() time.Duration {
	d, _ := time.ParseDuration(c.Loop.FrameInterval)
	return d
}

// FallbackDelay returns the parsed fallback delay.
func (c *Config) FallbackDelay() time.Duration {
	d, _ := time.ParseDuration(c.Loop.FallbackDelay)
	return d
}

// Logger builds a slog logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
