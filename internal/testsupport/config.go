package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/fsanges/master-of-puppets/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp paths per test. It
// defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.ScenePath = filepath.Join(base, "scene.mops")
	cfg.HooksDir = filepath.Join(base, "hooks")
	cfg.DefaultModules = nil

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDefaultModules seeds the config's initial module list.
func WithDefaultModules(mods ...config.DefaultModule) ConfigOption {
	return func(c *config.Config) {
		c.DefaultModules = mods
	}
}

// WithIncrementalCopies overrides the incremental-save retention window.
func WithIncrementalCopies(n int) ConfigOption {
	return func(c *config.Config) {
		c.IncrementalCopies = n
	}
}
