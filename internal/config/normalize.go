package config

import "strings"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTemplates()
	c.normalizeDuplicates()
	c.normalizeOrganize()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return err
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.TrashDir, err = expandPath(c.Paths.TrashDir); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeTemplates() {
	if strings.TrimSpace(c.Templates.Default) == "" {
		c.Templates.Default = defaultTemplate
	}
	if strings.TrimSpace(c.Templates.Compilation) == "" {
		c.Templates.Compilation = defaultCompilationTemplate
	}
	if c.Templates.SubstituteChar == "" {
		c.Templates.SubstituteChar = defaultSubstituteChar
	}
}

func (c *Config) normalizeDuplicates() {
	if c.Duplicates.DurationToleranceSeconds <= 0 {
		c.Duplicates.DurationToleranceSeconds = defaultDurationTolerance
	}
	if c.Duplicates.HashWorkers <= 0 {
		c.Duplicates.HashWorkers = defaultHashWorkers
	}
	c.Duplicates.OnDuplicate = strings.ToLower(strings.TrimSpace(c.Duplicates.OnDuplicate))
	if c.Duplicates.OnDuplicate == "" {
		c.Duplicates.OnDuplicate = defaultOnDuplicate
	}
}

func (c *Config) normalizeOrganize() {
	if c.Organize.FreeSpaceMarginMiB < 0 {
		c.Organize.FreeSpaceMarginMiB = 0
	}
	if c.Organize.RetryTransient <= 0 {
		c.Organize.RetryTransient = defaultRetryTransient
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
