package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/nico2sh/romst/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatabasePath = filepath.Join(base, "romst.db")
	cfg.Paths.RomsDir = filepath.Join(base, "roms")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Scan.Workers = 2

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithScanMode overrides the packaging mode on the test config.
func WithScanMode(mode string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scan.Mode = mode
	}
}
