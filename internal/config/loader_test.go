package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestProjectFileOverridesGlobal(t *testing.T) {
	home := isolate(t)

	writeFile(t, filepath.Join(home, "config", "phub", "config.yaml"), `
endpoint: https://global.example.com/graphql/
theme: dark
request_timeout: 10s
`)
	writeFile(t, ".phub.yaml", `
endpoint: https://project.example.com/graphql/
`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://project.example.com/graphql/", cfg.Endpoint)
	assert.Equal(t, "dark", cfg.Theme)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestEnvironmentWins(t *testing.T) {
	isolate(t)
	writeFile(t, ".phub.yaml", "log_level: warn\n")
	t.Setenv("PHUB_LOG_LEVEL", "debug")
	t.Setenv("PHUB_CACHE_MAX_AGE", "1m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.CacheMaxAge)
}

func TestExplicitPath(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "invite_url_base: https://hub.example.com\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://hub.example.com", cfg.InviteURLBase)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Endpoint = ""
	assert.Error(t, cfg.Validate())
}
