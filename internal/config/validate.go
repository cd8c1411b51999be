package config

import (
	"fmt"
	"strings"
)

var validDispositions = map[string]struct{}{
	"trash":  {},
	"delete": {},
	"skip":   {},
}

var validLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

// Validate checks configuration values for consistency. It runs after
// normalize, so fields are trimmed and defaulted already.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("config: data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.TrashDir) == "" {
		return fmt.Errorf("config: trash_dir must be set")
	}
	if c.Paths.TrashDir == c.Paths.LibraryDir {
		return fmt.Errorf("config: trash_dir must differ from library_dir")
	}
	if _, ok := validDispositions[c.Duplicates.OnDuplicate]; !ok {
		return fmt.Errorf("config: on_duplicate must be one of trash, delete, skip (got %q)", c.Duplicates.OnDuplicate)
	}
	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		return fmt.Errorf("config: logging format must be console or json (got %q)", c.Logging.Format)
	}
	if len([]rune(c.Templates.SubstituteChar)) != 1 {
		return fmt.Errorf("config: substitute_char must be a single character (got %q)", c.Templates.SubstituteChar)
	}
	if strings.ContainsAny(c.Templates.SubstituteChar, `<>:"/\|?*`) {
		return fmt.Errorf("config: substitute_char %q is itself a forbidden filesystem character", c.Templates.SubstituteChar)
	}
	return nil
}
