package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/scopebind/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Attributes.Bind != DefaultBindAttr {
		t.Errorf("expected bind attribute %s, got %s", DefaultBindAttr, cfg.Attributes.Bind)
	}
	if cfg.Render.ChunkThreshold != DefaultChunkThreshold || cfg.Render.ChunkSize != DefaultChunkSize {
		t.Errorf("unexpected render defaults %+v", cfg.Render)
	}
	if cfg.FrameInterval() != 16*time.Millisecond {
		t.Errorf("unexpected frame interval %v", cfg.FrameInterval())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "attributes": {"bind": "sb-bind"},
  "render": {"chunkThreshold": 10, "chunkSize": 3},
  "loop": {"frameInterval": "0"},
  "log": {"level": "debug", "format": "json"}
}`
	if err := os.WriteFile(filepath.Join(dir, "scopebind.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Attributes.Bind != "sb-bind" {
		t.Errorf("expected custom bind attribute, got %s", cfg.Attributes.Bind)
	}
	if cfg.Attributes.Meta != DefaultMetaAttr {
		t.Errorf("unset attributes should default, got %s", cfg.Attributes.Meta)
	}
	if cfg.Render.ChunkThreshold != 10 || cfg.Render.ChunkSize != 3 {
		t.Errorf("unexpected render config %+v", cfg.Render)
	}
	if cfg.FrameInterval() != 0 {
		t.Errorf("frame interval 0 should disable the clock, got %v", cfg.FrameInterval())
	}
	if cfg.Path() != filepath.Join(dir, "scopebind.json") {
		t.Errorf("unexpected path %s", cfg.Path())
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	content := "render:\n  pageSize: 25\nserver:\n  addr: \":9000\"\n  watch: true\n  origins: [\"https://app.example\"]\n"
	if err := os.WriteFile(filepath.Join(dir, "scopebind.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Render.PageSize != 25 {
		t.Errorf("expected page size 25, got %d", cfg.Render.PageSize)
	}
	if cfg.Server.Addr != ":9000" || !cfg.Server.Watch {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if len(cfg.Server.Origins) != 1 || cfg.Server.Origins[0] != "https://app.example" {
		t.Errorf("unexpected origins %v", cfg.Server.Origins)
	}
}

func TestLoadMissingDirUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("expected default addr, got %s", cfg.Server.Addr)
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != errors.CodeConfigRead {
		t.Errorf("expected %s, got %v", errors.CodeConfigRead, err)
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	_, err = LoadFile(path)
	if !stderrors.As(err, &e) || e.Code != errors.CodeConfigInvalid {
		t.Errorf("expected %s, got %v", errors.CodeConfigInvalid, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative chunk", func(c *Config) { c.Render.ChunkSize = -1 }},
		{"bad duration", func(c *Config) { c.Loop.FrameInterval = "soon" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"attribute clash", func(c *Config) { c.Attributes.Action = c.Attributes.Bind }},
	}

	for _, tt := range tests {
		cfg := New()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestLogger(t *testing.T) {
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected JSON output, got %s", out)
	}
}
