package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\nmock:\n  enabled: true\n"), 0o644))

	cmd := newRootCommand(io.Discard)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path, "--port", "9100", "--mock=false"}))

	cfg, err := loadConfig(&options{configPath: path, port: 9100, mock: false}, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.False(t, cfg.Mock.Enabled)
}

func TestLoadConfigKeepsFileWhenFlagsUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	cmd := newRootCommand(io.Discard)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path}))

	cfg, err := loadConfig(&options{configPath: path}, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadConfigRejectsBadDriver(t *testing.T) {
	cmd := newRootCommand(io.Discard)
	require.NoError(t, cmd.Flags().Parse([]string{"--driver", "mysql"}))

	_, err := loadConfig(&options{configPath: filepath.Join(t.TempDir(), "none.yaml"), driver: "mysql"}, cmd.Flags())
	assert.Error(t, err)
}
