package main

import (
	"log/slog"
	"strings"
	"sync"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/logging"
	"crate/internal/reorg"
	"crate/internal/scanner"
	"crate/internal/undo"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// engine bundles the opened collaborators a command needs: catalog store,
// undo log, executor, and scanner, all sharing one logger.
type engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *catalog.Store
	log     *undo.Log
	exec    *reorg.Executor
	scanner *scanner.Scanner
}

func (c *commandContext) openEngine() (*engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, err
	}
	log := undo.NewLog(store.DB(), logger)
	return &engine{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		log:     log,
		exec:    reorg.NewExecutor(cfg, store, log, logger),
		scanner: scanner.New(cfg, store, logger),
	}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}

// withEngine opens the engine for the duration of fn.
func (c *commandContext) withEngine(fn func(*engine) error) error {
	eng, err := c.openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()
	return fn(eng)
}
