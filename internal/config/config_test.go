package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rzbill/fdispatch/internal/dispatcher"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.BufferSize != "8M" {
		t.Fatalf("default buffer size = %q, want 8M", cfg.BufferSize)
	}
	mode, err := cfg.ParseMode()
	if err != nil {
		t.Fatalf("ParseMode: %v", err)
	}
	if mode != dispatcher.Independent {
		t.Fatalf("default mode = %v, want Independent", mode)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fdispatchd.json")
	data := []byte(`{"bufferSize":"16M","mode":"pipeline","subscriptions":["a","b"],"frameMaxLength":4096}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BufferSize != "16M" {
		t.Fatalf("BufferSize = %q, want 16M", cfg.BufferSize)
	}
	mode, err := cfg.ParseMode()
	if err != nil {
		t.Fatalf("ParseMode: %v", err)
	}
	if mode != dispatcher.Pipeline {
		t.Fatalf("mode = %v, want Pipeline", mode)
	}
	if len(cfg.Subscriptions) != 2 || cfg.Subscriptions[0] != "a" {
		t.Fatalf("Subscriptions = %v", cfg.Subscriptions)
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("FDISPATCH_MODE", "pipeline")
	os.Setenv("FDISPATCH_SUBSCRIPTIONS", "a, b ,c")
	t.Cleanup(func() {
		os.Unsetenv("FDISPATCH_MODE")
		os.Unsetenv("FDISPATCH_SUBSCRIPTIONS")
	})
	FromEnv(&cfg)
	if cfg.Mode != "pipeline" {
		t.Fatalf("env override mode = %q", cfg.Mode)
	}
	if len(cfg.Subscriptions) != 3 || cfg.Subscriptions[2] != "c" {
		t.Fatalf("env override subscriptions = %v", cfg.Subscriptions)
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	cfg := Default()
	cfg.Mode = "bogus"
	if _, err := cfg.ParseMode(); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}
