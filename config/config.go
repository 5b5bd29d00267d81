// Package config loads runtime configuration from a keywarden.yaml file and
// KEYWARDEN_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config is the resolved runtime configuration.
type Config struct {
	// DataDir holds persisted state: JSON files or the SQLite database.
	DataDir string `mapstructure:"data_dir"`
	// Store selects the persistence backend: "file" or "sqlite".
	Store string `mapstructure:"store"`
	// DefaultTokenTTL applies to tokens issued without an explicit expiry.
	DefaultTokenTTL time.Duration `mapstructure:"default_token_ttl"`
	// RootTokenTTL applies to the self-issued token minted with each
	// DID-bound encryption key.
	RootTokenTTL time.Duration `mapstructure:"root_token_ttl"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from the given file, or from ./keywarden.yaml and
// ~/.keywarden/keywarden.yaml when the path is empty. A missing config file
// is not an error; environment variables and defaults still apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("keywarden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.keywarden")
	}

	v.SetEnvPrefix("KEYWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("store", StoreFile)
	v.SetDefault("default_token_ttl", 24*time.Hour)
	v.SetDefault("root_token_ttl", 365*24*time.Hour)
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if cfg.Store != StoreFile && cfg.Store != StoreSQLite {
		return nil, errors.Errorf("unknown store backend: %s", cfg.Store)
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keywarden"
	}
	return filepath.Join(home, ".keywarden")
}
