package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, StoreFile, cfg.Store)
	require.Equal(t, 24*time.Hour, cfg.DefaultTokenTTL)
	require.Equal(t, 365*24*time.Hour, cfg.RootTokenTTL)
	require.Equal(t, "info", cfg.LogLevel)
	require.NotEmpty(t, cfg.DataDir)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("KEYWARDEN_STORE", "sqlite")
	t.Setenv("KEYWARDEN_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywarden.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: sqlite\ndata_dir: /tmp/kw\ndefault_token_ttl: 1h\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.Equal(t, "/tmp/kw", cfg.DataDir)
	require.Equal(t, time.Hour, cfg.DefaultTokenTTL)
}

func TestUnknownStore(t *testing.T) {
	t.Setenv("KEYWARDEN_STORE", "redis")
	_, err := Load("")
	require.Error(t, err)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
