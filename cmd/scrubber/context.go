package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"scrubber/internal/config"
	"scrubber/internal/logging"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
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
		c.applyLogOverrides(cfg)
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyLogOverrides(cfg *config.Config) {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
		}
	}
	if c.logFormatFlag != nil {
		if format := strings.TrimSpace(*c.logFormatFlag); format != "" {
			cfg.Logging.Format = format
		}
	}
}

// buildLogger constructs the process logger from the resolved config. The
// returned closer flushes the log file copy, when one is configured.
func (c *commandContext) buildLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return logging.NewFromConfig(cfg)
}
