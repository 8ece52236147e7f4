package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, defaultServerAddress, cfg.ServerAddress)
	assert.Equal(t, filepath.Join(cfg.ConfigDir, defaultDataFile), cfg.DataPath)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.SyncEvery())
	assert.False(t, cfg.Offline)
	assert.True(t, cfg.IsLocal())
}

func TestLoad_Env(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("SERVER_ADDRESS", "api.example.com")
	t.Setenv("ENABLE_TLS", "true")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("OFFLINE", "true")
	t.Setenv("DATA_PATH", filepath.Join(dir, "custom.db"))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "api.example.com", cfg.ServerAddress)
	assert.True(t, cfg.EnableTLS)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.True(t, cfg.Offline)
	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.DataPath)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server_address: files.example.com:9000\nsync_interval_seconds: 5\n"), 0600))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "files.example.com:9000", cfg.ServerAddress)
	assert.Equal(t, 5*time.Second, cfg.SyncEvery())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown env", key: "APP_ENV", val: "staging"},
		{name: "zero retries", key: "MAX_RETRIES", val: "0"},
		{name: "negative interval", key: "SYNC_INTERVAL_SECONDS", val: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_DIR", t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{ConfigDir: filepath.Join(dir, "cfg"), DataPath: filepath.Join(dir, "data", "blog.db")}

	require.NoError(t, cfg.EnsureDirs())
	assert.DirExists(t, cfg.ConfigDir)
	assert.DirExists(t, filepath.Join(dir, "data"))
}
