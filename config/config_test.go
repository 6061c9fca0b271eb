package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Languages) != 2 || cfg.Languages[0] != "vi" || cfg.Languages[1] != "en" {
		t.Fatalf("default languages = %v", cfg.Languages)
	}
	if cfg.ChunkSize != 1000 {
		t.Fatalf("default chunk size = %d", cfg.ChunkSize)
	}
	if cfg.SizeThreshold != 100*1024 {
		t.Fatalf("default size threshold = %d", cfg.SizeThreshold)
	}
	if !cfg.UseStreaming || !cfg.UseWorkers || !cfg.Enabled {
		t.Fatalf("default toggles = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.InputDir != filepath.Join(root, DefaultInputDir) {
		t.Fatalf("InputDir = %s", cfg.InputDir)
	}
	if cfg.OutputDir != filepath.Join(root, DefaultOutputDir) {
		t.Fatalf("OutputDir = %s", cfg.OutputDir)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	data := []byte(`
languages: [vi, en, fr]
input_dir: src/i18n
output_dir: public/locales
chunk_size: 250
use_workers: false
`)
	if err := os.WriteFile(filepath.Join(root, FileName), data, 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.Languages) != 3 || cfg.Languages[2] != "fr" {
		t.Fatalf("languages = %v", cfg.Languages)
	}
	if cfg.InputDir != filepath.Join(root, "src/i18n") {
		t.Fatalf("InputDir = %s", cfg.InputDir)
	}
	if cfg.ChunkSize != 250 {
		t.Fatalf("ChunkSize = %d", cfg.ChunkSize)
	}
	if cfg.UseWorkers {
		t.Fatal("use_workers: false should stick")
	}
	// Unset fields keep their defaults.
	if !cfg.UseStreaming {
		t.Fatal("UseStreaming default should survive partial file")
	}
	if cfg.SizeThreshold != DefaultSizeThreshold {
		t.Fatalf("SizeThreshold = %d", cfg.SizeThreshold)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("languages: ["), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := Load(root); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"no languages", func(c *Config) { c.Languages = nil }, "languages"},
		{"empty code", func(c *Config) { c.Languages = []string{"vi", ""} }, "languages"},
		{"duplicate code", func(c *Config) { c.Languages = []string{"en-US", "en_us"} }, "languages"},
		{"missing input dir", func(c *Config) { c.InputDir = "" }, "input_dir"},
		{"missing output dir", func(c *Config) { c.OutputDir = "" }, "output_dir"},
		{"negative workers", func(c *Config) { c.MaxWorkers = -1 }, "max_workers"},
		{"negative chunk size", func(c *Config) { c.ChunkSize = -5 }, "chunk_size"},
	}

	for _, tc := range tests {
		cfg := Default()
		tc.mutate(&cfg)

		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		var cerr *Error
		if !errors.As(err, &cerr) {
			t.Fatalf("%s: error type = %T", tc.name, err)
		}
		if cerr.Field != tc.wantField {
			t.Fatalf("%s: field = %s, want %s", tc.name, cerr.Field, tc.wantField)
		}
	}
}

func TestValidate_OpaqueCodesAllowed(t *testing.T) {
	cfg := Default()
	cfg.Languages = []string{"vi", "x-internal", "klингон"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("opaque codes should be accepted: %v", err)
	}
}
