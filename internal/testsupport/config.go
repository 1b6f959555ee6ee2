// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"storycut/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Gemini.APIKey = "test"
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithConcurrency overrides the scheduler concurrency on the test config.
func WithConcurrency(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scheduler.Concurrency = n
	}
}

// WithDailyImageLimit overrides the daily quota ceiling on the test config.
func WithDailyImageLimit(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Quota.DailyImageLimit = n
	}
}
