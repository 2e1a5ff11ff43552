package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), config)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seedlings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://farm.example
user: ann
room_id: "5"
poll_interval: 30s
max_reconnects: 3
`), 0o600))

	config, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://farm.example", config.BaseURL)
	assert.Equal(t, "ann", config.User)
	assert.Equal(t, "5", config.RoomID)
	assert.Equal(t, 30*time.Second, config.PollInterval)
	assert.Equal(t, 3, config.MaxReconnects)
	assert.Equal(t, "/ws", config.WSPath)

	t.Setenv("SEEDLINGS_USER", "bob")
	t.Setenv("SEEDLINGS_POLL_INTERVAL", "10s")
	t.Setenv("SEEDLINGS_MAX_RECONNECTS", "not a number")

	config = applyEnv(config)
	assert.Equal(t, "bob", config.User)
	assert.Equal(t, 10*time.Second, config.PollInterval)
	assert.Equal(t, 3, config.MaxReconnects)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seedlings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user: [unterminated"), 0o600))

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://farm.example/", "wss://farm.example/ws"},
	}
	for _, tt := range tests {
		got, err := Config{BaseURL: tt.base, WSPath: "/ws"}.wsURL()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Config{BaseURL: "ftp://farm"}.wsURL()
	assert.Error(t, err)
}
