// Package config persists compressor settings as a flat JSON key/value
// record. Loading never fails from the caller's point of view: a missing
// file, a parse error or malformed fields all degrade to defaults, and
// out-of-domain numerics are clamped. Hand-edited settings files rely on
// this behavior.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	dynamics "github.com/tphakala/go-audio-dynamics"
)

// fileType is the on-disk encoding of the settings record.
const fileType = "json"

// Load reads the settings record at path. Absent or unreadable files yield
// the defaults silently; a corrupt file is logged and also yields defaults.
func Load(path string, logger *log.Logger) dynamics.Settings {
	if logger == nil {
		logger = log.Default()
	}

	if _, err := os.Stat(path); err != nil {
		return dynamics.DefaultSettings()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	if err := v.ReadInConfig(); err != nil {
		logger.Warn("could not read settings file, using defaults", "path", path, "error", err)
		return dynamics.DefaultSettings()
	}

	return dynamics.SettingsFromMap(v.AllSettings())
}

// Save writes the exact persisted field set for the settings to path,
// creating parent directories as needed.
func Save(path string, s dynamics.Settings) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create settings dir: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	for key, value := range s.ToMap() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: write settings file: %w", err)
	}
	return nil
}
