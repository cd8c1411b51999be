package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crate/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if path == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Templates.Default == "" {
		t.Fatal("expected default template")
	}
	if cfg.Duplicates.OnDuplicate != "trash" {
		t.Fatalf("expected trash disposition default, got %q", cfg.Duplicates.OnDuplicate)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	body := strings.Join([]string{
		"[paths]",
		`library_dir = "` + filepath.Join(dir, "lib") + `"`,
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		`trash_dir = "` + filepath.Join(dir, "trash") + `"`,
		"[duplicates]",
		"duration_tolerance_seconds = 2.5",
		"[logging]",
		`format = "json"`,
	}, "\n")
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Paths.LibraryDir != filepath.Join(dir, "lib") {
		t.Fatalf("library dir not expanded: %q", cfg.Paths.LibraryDir)
	}
	if cfg.Duplicates.DurationToleranceSeconds != 2.5 {
		t.Fatalf("tolerance = %v", cfg.Duplicates.DurationToleranceSeconds)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format = %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadDisposition(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[duplicates]\non_duplicate = \"shred\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(cfgPath); err == nil {
		t.Fatal("expected validation error for bad disposition")
	}
}

func TestValidateRejectsForbiddenSubstitute(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[templates]\nsubstitute_char = \"/\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(cfgPath); err == nil {
		t.Fatal("expected validation error for forbidden substitute char")
	}
}

func TestTemplatePatternResolution(t *testing.T) {
	cfg := config.Default()
	cfg.Templates.Alternates = map[string]string{"flat": "{Artista} - {Título}.{ext}"}

	if got := cfg.TemplatePattern(""); got != cfg.Templates.Default {
		t.Fatalf("empty name should select default, got %q", got)
	}
	if got := cfg.TemplatePattern("default"); got != cfg.Templates.Default {
		t.Fatalf("default name should select default, got %q", got)
	}
	if got := cfg.TemplatePattern("flat"); got != "{Artista} - {Título}.{ext}" {
		t.Fatalf("alternate lookup failed: %q", got)
	}
	literal := "{Título}.{ext}"
	if got := cfg.TemplatePattern(literal); got != literal {
		t.Fatalf("unknown name should pass through as pattern, got %q", got)
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[templates]") {
		t.Fatal("sample missing templates section")
	}

	// The sample must itself load cleanly.
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
