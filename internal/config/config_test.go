package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Live.MaxReconnectAttempts != 5 || cfg.Live.BaseDelay != time.Second || cfg.Live.MaxDelay != 10*time.Second {
		t.Errorf("live defaults = %+v", cfg.Live)
	}
	if cfg.Client.StatusInterval != 30*time.Second {
		t.Errorf("status interval = %s", cfg.Client.StatusInterval)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  allowed_origins: ["http://localhost:5173"]
live:
  max_reconnect_attempts: 3
  debounce: 250ms
mock:
  enabled: true
  interval: 500ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host default lost: %q", cfg.Server.Host)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Live.MaxReconnectAttempts != 3 || cfg.Live.Debounce != 250*time.Millisecond {
		t.Errorf("live = %+v", cfg.Live)
	}
	if cfg.Live.MaxDelay != 10*time.Second {
		t.Errorf("max delay default lost: %s", cfg.Live.MaxDelay)
	}
	if !cfg.Mock.Enabled || cfg.Mock.Interval != 500*time.Millisecond {
		t.Errorf("mock = %+v", cfg.Mock)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://api.example.test")
	t.Setenv(EnvWSURL, "wss://api.example.test")
	t.Setenv(EnvDBDSN, "file::memory:")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.APIURL != "https://api.example.test" {
		t.Errorf("api url = %q", cfg.Client.APIURL)
	}
	if cfg.Client.WSURL != "wss://api.example.test" {
		t.Errorf("ws url = %q", cfg.Client.WSURL)
	}
	if cfg.Database.DSN != "file::memory:" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too big", func(c *Config) { c.Server.Port = 70000 }, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, false},
		{"listen on sqlite", func(c *Config) { c.Database.Listen = true }, false},
		{"listen on postgres", func(c *Config) {
			c.Database.Driver = DriverPostgres
			c.Database.Listen = true
		}, true},
		{"mock without interval", func(c *Config) {
			c.Mock.Enabled = true
			c.Mock.Interval = 0
		}, false},
		{"api url scheme", func(c *Config) { c.Client.APIURL = "localhost:8000" }, false},
		{"ws url scheme", func(c *Config) { c.Client.WSURL = "http://localhost:8000" }, false},
		{"zero attempts allowed", func(c *Config) { c.Live.MaxReconnectAttempts = 0 }, true},
		{"max below base", func(c *Config) { c.Live.MaxDelay = time.Millisecond }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate: expected error")
			}
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8123
	if got := cfg.Addr(); got != "127.0.0.1:8123" {
		t.Errorf("Addr = %q", got)
	}
}
