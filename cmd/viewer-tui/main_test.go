package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveWSBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000"},
		{"https://viewer.example.com/api", "wss://viewer.example.com"},
		{"not a url", "ws://localhost:8000"},
	}
	for _, tt := range tests {
		if got := deriveWSBase(tt.in); got != tt.want {
			t.Errorf("deriveWSBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfigAPIURLDerivesPushURL(t *testing.T) {
	cmd := newRootCommand(io.Discard)
	require.NoError(t, cmd.Flags().Parse([]string{"--api-url", "http://db-box:9000"}))

	cfg, err := loadConfig(&options{configPath: filepath.Join(t.TempDir(), "missing.yaml"), apiURL: "http://db-box:9000"}, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, "http://db-box:9000", cfg.Client.APIURL)
	assert.Equal(t, "ws://db-box:9000", cfg.Client.WSURL)
}

func TestLoadConfigExplicitPushURLWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  api_url: http://file:1\n"), 0o644))

	cmd := newRootCommand(io.Discard)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path, "--ws-url", "ws://push:2"}))

	cfg, err := loadConfig(&options{configPath: path, wsURL: "ws://push:2"}, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, "http://file:1", cfg.Client.APIURL)
	assert.Equal(t, "ws://push:2", cfg.Client.WSURL)
}
