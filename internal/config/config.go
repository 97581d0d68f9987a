// Package config holds the process-wide configuration singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Explicitly locate ims.yaml and use SetConfigFile so an unrelated
	// ims.json in the search path is never picked up.
	// Precedence: project ims.yaml (walking up from CWD) > ~/.config/ims/ims.yaml
	configFileSet := false

	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, "ims.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "ims", "ims.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Automatic environment variable binding; env vars take precedence
	// over the config file. E.g. IMS_DATABASE_PATH, IMS_OBJECT_STORAGE_URL.
	v.SetEnvPrefix("IMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Database
	v.SetDefault("database.path", "ims.db")

	// Breadcrumbs: maximum trail length (self + ancestors). Minimum 2.
	v.SetDefault("breadcrumbs.max-trail-length", 5)

	// Spares recompute
	v.SetDefault("spares.recompute-enabled", true)

	// Object storage collaborator (attachments/images delete hook)
	v.SetDefault("object-storage.enabled", false)
	v.SetDefault("object-storage.url", "")
	v.SetDefault("object-storage.request-timeout", "30s")
	v.SetDefault("object-storage.auth-token", "")

	// Logging
	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size-mb", 10)
	v.SetDefault("log.max-backups", 3)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// Watch re-reads the config file whenever it changes on disk and invokes
// onChange with the triggering event. No-op when no config file is in use.
func Watch(onChange func(fsnotify.Event)) {
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if onChange != nil {
			onChange(e)
		}
	})
	v.WatchConfig()
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value (flag overrides, tests).
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// MaxTrailLength returns the configured breadcrumb trail bound, clamped
// to the minimum of 2 (self + one ancestor).
func MaxTrailLength() int {
	n := GetInt("breadcrumbs.max-trail-length")
	if n < 2 {
		return 2
	}
	return n
}
