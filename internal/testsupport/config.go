package testsupport

import (
	"path/filepath"
	"testing"

	"crate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TrashDir = filepath.Join(base, "trash")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithCompilationDetection enables the various-artists album rule.
func WithCompilationDetection() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Templates.CompilationDetection = true
	}
}

// WithPromoStripping enables promotional parenthetical removal.
func WithPromoStripping() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Templates.StripPromoParens = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
