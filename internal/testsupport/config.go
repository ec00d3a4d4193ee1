// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"scrubber/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Service.Endpoint = "https://example.cognitiveservices.azure.com/"
	cfg.Service.APIKey = "test"
	cfg.Paths.InputDir = filepath.Join(base, "input")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithConcurrency overrides the worker pool size on the test config.
func WithConcurrency(limit int) ConfigOption {
	return func(c *config.Config) {
		c.Run.MaxConcurrency = limit
	}
}

// WithOverwrite enables sink overwrites on the test config.
func WithOverwrite() ConfigOption {
	return func(c *config.Config) {
		c.Run.OverwriteExisting = true
	}
}
