package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	TrashDir   string `toml:"trash_dir"`
}

// Templates contains path template patterns and sanitization rules.
type Templates struct {
	Default               string            `toml:"default"`
	Alternates            map[string]string `toml:"alternates"`
	Compilation           string            `toml:"compilation"`
	SubstituteChar        string            `toml:"substitute_char"`
	SanitizeForbidden     bool              `toml:"sanitize_forbidden_chars"`
	StripPromoParens      bool              `toml:"strip_promo_parens"`
	FallbackToAlbumArtist bool              `toml:"fallback_to_album_artist"`
	CompilationDetection  bool              `toml:"compilation_detection"`
}

// Duplicates contains configuration for duplicate detection.
type Duplicates struct {
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
	UseContentHash           bool    `toml:"use_content_hash"`
	HashWorkers              int     `toml:"hash_workers"`
	OnDuplicate              string  `toml:"on_duplicate"`
}

// Organize contains configuration for reorganization runs.
type Organize struct {
	FreeSpaceMarginMiB int64 `toml:"free_space_margin_mib"`
	RetryTransient     int   `toml:"retry_transient"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for crate.
//
// Configuration sections by subsystem:
//   - Paths: library root, catalog data directory, logs, safe trash
//   - Templates: destination path patterns and sanitization rules
//   - Duplicates: grouping tolerances and content hash options
//   - Organize: executor preflight margins and retry policy
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Templates  Templates  `toml:"templates"`
	Duplicates Duplicates `toml:"duplicates"`
	Organize   Organize   `toml:"organize"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/crate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("crate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for engine operation.
// LibraryDir is created on a best-effort basis so the catalog remains usable
// when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.TrashDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// TemplatePattern resolves a named template pattern. The empty string or
// "default" selects the default pattern; otherwise named alternates are
// consulted, and an unrecognized name is treated as a literal pattern, matching
// the original CLI behavior.
func (c *Config) TemplatePattern(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "default" {
		return c.Templates.Default
	}
	if pattern, ok := c.Templates.Alternates[trimmed]; ok {
		return pattern
	}
	return trimmed
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
