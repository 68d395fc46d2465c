// Package config loads and validates the TOML configuration file.
//
// Configuration resolution order: an explicit --config path, then
// ~/.config/romst/config.toml, then romst.toml in the working directory.
// Missing files fall back to defaults so read-only commands work without
// any configuration present.
package config
