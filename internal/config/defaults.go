package config

import "runtime"

const (
	defaultDatabasePath = "~/.local/share/romst/romst.db"
	defaultLogDir       = "~/.local/share/romst/logs"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultScanMode     = "non-merged"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DatabasePath: defaultDatabasePath,
			LogDir:       defaultLogDir,
		},
		Scan: Scan{
			Mode:    defaultScanMode,
			Workers: runtime.NumCPU(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
