package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// APIConfig points at the backend API.
type APIConfig struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AppConfig describes the companion app server that owns the local auth routes.
type AppConfig struct {
	URL           string `toml:"url"`
	Listen        string `toml:"listen"`
	SecureCookies bool   `toml:"secure_cookies"`
}

// SessionConfig controls where the CLI keeps its token pair.
type SessionConfig struct {
	Path string `toml:"path"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// SentryConfig enables error reporting from the app server. An empty DSN disables it.
type SentryConfig struct {
	DSN         string `toml:"dsn"`
	Environment string `toml:"environment"`
}

// Config holds all apideck configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	App     AppConfig     `toml:"app"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
	Sentry  SentryConfig  `toml:"sentry"`
}

const (
	defaultTimeout = 15 * time.Second
	defaultListen  = ":3000"
)

// Timeout returns the API timeout, falling back to 15s.
func (c Config) Timeout() time.Duration {
	if c.API.TimeoutSeconds > 0 {
		return time.Duration(c.API.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

// ListenOrDefault returns App.Listen if set, otherwise ":3000".
func (c Config) ListenOrDefault() string {
	if c.App.Listen != "" {
		return c.App.Listen
	}
	return defaultListen
}

// SessionPathOrDefault returns Session.Path if set, otherwise a session file next to the config.
func (c Config) SessionPathOrDefault() string {
	if c.Session.Path != "" {
		return expandHome(c.Session.Path)
	}
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "session.toml")
}

// Validate reports configuration that makes requests impossible.
func (c Config) Validate() error {
	if c.API.Endpoint == "" {
		return errors.New("api.endpoint is not set (config file or APIDECK_API_ENDPOINT)")
	}
	if !strings.HasPrefix(c.API.Endpoint, "http://") && !strings.HasPrefix(c.API.Endpoint, "https://") {
		return fmt.Errorf("api.endpoint must be an http(s) origin, got %q", c.API.Endpoint)
	}
	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are not overwritten. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - APIDECK_API_ENDPOINT overrides api.endpoint
//   - APIDECK_APP_URL      overrides app.url
//   - APIDECK_LISTEN       overrides app.listen
//   - APIDECK_SESSION_PATH overrides session.path
//   - APIDECK_LOG_LEVEL    overrides log.level
//   - APIDECK_SENTRY_DSN   overrides sentry.dsn
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	cfg.API.Endpoint = strings.TrimRight(cfg.API.Endpoint, "/")
	cfg.App.URL = strings.TrimRight(cfg.App.URL, "/")
	return cfg, nil
}

// DefaultConfigPath returns the default path for the apideck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.config/apideck/config.toml"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APIDECK_API_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}
	if v := os.Getenv("APIDECK_APP_URL"); v != "" {
		cfg.App.URL = v
	}
	if v := os.Getenv("APIDECK_LISTEN"); v != "" {
		cfg.App.Listen = v
	}
	if v := os.Getenv("APIDECK_SESSION_PATH"); v != "" {
		cfg.Session.Path = v
	}
	if v := os.Getenv("APIDECK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("APIDECK_SENTRY_DSN"); v != "" {
		cfg.Sentry.DSN = v
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
