package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/caselight/internal/common"
	"github.com/Veraticus/caselight/internal/synchronizer"
)

// Configuration keys.
const (
	KeyDatabasePath     = "database.path"
	KeySyncDebounce     = "sync.debounce"
	KeySyncMaxRetries   = "sync.max_retries"
	KeySyncInitialDelay = "sync.initial_delay"
	KeyRulesStaleAfter  = "rules.stale_after"
	KeyStorePoll        = "store.poll_interval"
	KeyLoggingLevel     = "logging.level"
	KeyLoggingFormat    = "logging.format"
)

// DefaultDatabasePath is where the settings store lives unless configured.
const DefaultDatabasePath = "~/.local/share/caselight/caselight.db"

// AppConfig is the resolved application configuration.
type AppConfig struct {
	DatabasePath string
	LogLevel     string
	LogFormat    string
	Sync         synchronizer.Config
	PollInterval time.Duration
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	defaults := synchronizer.DefaultConfig()
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeySyncDebounce, defaults.Debounce)
	v.SetDefault(KeySyncMaxRetries, defaults.MaxRetries)
	v.SetDefault(KeySyncInitialDelay, defaults.InitialDelay)
	v.SetDefault(KeyRulesStaleAfter, defaults.StaleAfter)
	v.SetDefault(KeyStorePoll, time.Second)
	v.SetDefault(KeyLoggingLevel, "info")
	v.SetDefault(KeyLoggingFormat, "console")
}

// LoadAppConfig reads the configuration from v.
// It follows this precedence:
// 1. Viper configuration (from config file or CASELIGHT_ env vars)
// 2. Default values
func LoadAppConfig(v *viper.Viper) (*AppConfig, error) {
	SetDefaults(v)

	config := &AppConfig{
		DatabasePath: ExpandPath(v.GetString(KeyDatabasePath)),
		LogLevel:     v.GetString(KeyLoggingLevel),
		LogFormat:    v.GetString(KeyLoggingFormat),
		PollInterval: v.GetDuration(KeyStorePoll),
		Sync: synchronizer.Config{
			Debounce:     v.GetDuration(KeySyncDebounce),
			InitialDelay: v.GetDuration(KeySyncInitialDelay),
			MaxRetries:   v.GetInt(KeySyncMaxRetries),
			StaleAfter:   v.GetDuration(KeyRulesStaleAfter),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the configuration is usable.
func (c *AppConfig) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: %s is empty", common.ErrMissingConfig, KeyDatabasePath)
	}
	if c.Sync.Debounce <= 0 {
		return fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeySyncDebounce)
	}
	if c.Sync.InitialDelay < 0 {
		return fmt.Errorf("%w: %s cannot be negative", common.ErrInvalidConfig, KeySyncInitialDelay)
	}
	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("%w: %s cannot be negative", common.ErrInvalidConfig, KeySyncMaxRetries)
	}
	if c.Sync.StaleAfter <= 0 {
		return fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeyRulesStaleAfter)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeyStorePoll)
	}
	if _, err := common.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
