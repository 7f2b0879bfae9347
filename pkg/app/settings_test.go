package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := LoadSettings(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8377", s.ListenAddr)
	assert.Equal(t, DriverSQLite, s.Store.Driver)
	assert.Equal(t, "@every 1m", s.Push.Schedule)
	assert.Equal(t, 4, s.Push.Workers)
	assert.Equal(t, 30*time.Minute, s.Session.TTL)
	assert.Empty(t, s.CORSOrigins)
}

func TestLoadSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
cors_origins:
  - https://dash.example.com
store:
  driver: file
  path: /tmp/responses.json
bot:
  base_url: https://bot.example.com
push:
  workers: 2
session:
  ttl: 10m
`), 0o600))

	t.Setenv("BOTDASH_PUSH_WORKERS", "8")
	t.Setenv("BOTDASH_API_TOKEN", "from-env")

	s, err := LoadSettings(LoadOptions{
		ConfigFile: path,
		Overrides:  map[string]any{"listen_addr": "127.0.0.1:9100"},
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", s.ListenAddr)
	assert.Equal(t, "from-env", s.APIToken)
	assert.Equal(t, 8, s.Push.Workers)
	assert.Equal(t, DriverFile, s.Store.Driver)
	assert.Equal(t, "/tmp/responses.json", s.Store.Path)
	assert.Equal(t, "https://bot.example.com", s.Bot.BaseURL)
	assert.Equal(t, 10*time.Minute, s.Session.TTL)
	assert.Equal(t, []string{"https://dash.example.com"}, s.CORSOrigins)
}

func TestLoadSettingsCommaSeparatedOrigins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOTDASH_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	s, err := LoadSettings(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, s.CORSOrigins)
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := LoadSettings(LoadOptions{Overrides: map[string]any{"store.driver": "postgres"}})
	require.Error(t, err)
	assert.True(t, message.IsValidation(err))

	_, err = LoadSettings(LoadOptions{Overrides: map[string]any{"bot.base_url": "ftp://bot"}})
	require.Error(t, err)

	_, err = LoadSettings(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}
