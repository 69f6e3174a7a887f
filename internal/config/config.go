// Package config loads the YAML configuration shared by the dataviewer
// server and the terminal viewer.
package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAPIURL = "DATAVIEWER_API_URL"
	EnvWSURL  = "DATAVIEWER_WS_URL"
	EnvDBDSN  = "DATAVIEWER_DB_DSN"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Mock     MockConfig     `yaml:"mock"`
	Client   ClientConfig   `yaml:"client"`
	Live     LiveConfig     `yaml:"live"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	SendBuffer     int      `yaml:"send_buffer"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Listen subscribes to pg_notify channels instead of the in-process
	// feed. Postgres only.
	Listen bool `yaml:"listen"`
}

type MockConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Seed     int           `yaml:"seed"`
}

type ClientConfig struct {
	APIURL         string        `yaml:"api_url"`
	WSURL          string        `yaml:"ws_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RetryMax       int           `yaml:"retry_max"`
	StaleTime      time.Duration `yaml:"stale_time"`
	StatusInterval time.Duration `yaml:"status_interval"`
}

type LiveConfig struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	BaseDelay            time.Duration `yaml:"base_delay"`
	MaxDelay             time.Duration `yaml:"max_delay"`
	Debounce             time.Duration `yaml:"debounce"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8000,
			SendBuffer: 64,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "file:dataviewer.db?_pragma=busy_timeout(5000)",
		},
		Mock: MockConfig{
			Interval: 2 * time.Second,
		},
		Client: ClientConfig{
			APIURL:         "http://localhost:8000",
			WSURL:          "ws://localhost:8000",
			Timeout:        10 * time.Second,
			RetryMax:       3,
			StaleTime:      30 * time.Second,
			StatusInterval: 30 * time.Second,
		},
		Live: LiveConfig{
			MaxReconnectAttempts: 5,
			BaseDelay:            time.Second,
			MaxDelay:             10 * time.Second,
			Debounce:             100 * time.Millisecond,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(err, "reading config")
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parsing %s", path)
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.Client.APIURL = v
	}
	if v, ok := lookup(EnvWSURL); ok && v != "" {
		c.Client.WSURL = v
	}
	if v, ok := lookup(EnvDBDSN); ok && v != "" {
		c.Database.DSN = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.SendBuffer <= 0 {
		return errors.Errorf("server.send_buffer must be positive, got %d", c.Server.SendBuffer)
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return errors.Errorf("database.driver %q: want %q or %q", c.Database.Driver, DriverSQLite, DriverPostgres)
	}
	if c.Database.Listen && c.Database.Driver != DriverPostgres {
		return errors.New("database.listen requires the postgres driver")
	}
	if c.Mock.Enabled && c.Mock.Interval <= 0 {
		return errors.New("mock.interval must be positive when mock is enabled")
	}
	if !strings.HasPrefix(c.Client.APIURL, "http://") && !strings.HasPrefix(c.Client.APIURL, "https://") {
		return errors.Errorf("client.api_url %q is not an http(s) URL", c.Client.APIURL)
	}
	if !strings.HasPrefix(c.Client.WSURL, "ws://") && !strings.HasPrefix(c.Client.WSURL, "wss://") {
		return errors.Errorf("client.ws_url %q is not a ws(s) URL", c.Client.WSURL)
	}
	if c.Client.RetryMax < 0 {
		return errors.Errorf("client.retry_max must not be negative, got %d", c.Client.RetryMax)
	}
	if c.Live.MaxReconnectAttempts < 0 {
		return errors.Errorf("live.max_reconnect_attempts must not be negative, got %d", c.Live.MaxReconnectAttempts)
	}
	if c.Live.BaseDelay <= 0 || c.Live.MaxDelay < c.Live.BaseDelay {
		return errors.Errorf("live delays invalid: base %s, max %s", c.Live.BaseDelay, c.Live.MaxDelay)
	}
	return nil
}

// Addr is the server listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
