package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/caselight/internal/config"
	"github.com/Veraticus/caselight/internal/storage"
)

// envKeyReplacer maps nested keys like sync.debounce to CASELIGHT_SYNC_DEBOUNCE.
var envKeyReplacer = strings.NewReplacer(".", "_")

// loadConfig resolves the application configuration from viper.
func loadConfig() (*config.AppConfig, error) {
	return config.LoadAppConfig(viper.GetViper())
}

// initStorage opens the settings store and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.AppConfig) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// openStore loads the configuration and opens the settings store.
func openStore(ctx context.Context) (*storage.SQLiteStore, *config.AppConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
