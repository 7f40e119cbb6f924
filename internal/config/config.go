// Package config loads the server configuration from a YAML file with
// environment variable overrides. A .env file is honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		Driver string `yaml:"driver"` // postgres | memory
		DSN    string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns int `yaml:"max_open_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Driver string `yaml:"driver"` // memory | redis
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		KeyFile    string `yaml:"key_file"`
		IDTokenTTL string `yaml:"id_token_ttl"`
	} `yaml:"jwt"`

	OAuth struct {
		CodeTTL       string `yaml:"code_ttl"`
		AccessTTL     string `yaml:"access_ttl"`
		RefreshTTL    string `yaml:"refresh_ttl"`
		SessionCookie string `yaml:"session_cookie"`
		// UIBaseURL is the platform front end. Users without a session are
		// sent to its login page from /oauth/authorize.
		UIBaseURL string `yaml:"ui_base_url"`
	} `yaml:"oauth"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"rate"`
}

// Defaults applied when the file or env leave a field empty.
const (
	DefaultAddr          = ":8080"
	DefaultIssuer        = "http://localhost:8080"
	DefaultCodeTTL       = 5 * time.Minute
	DefaultAccessTTL     = time.Hour
	DefaultRefreshTTL    = 30 * 24 * time.Hour
	DefaultIDTokenTTL    = time.Hour
	DefaultSessionCookie = "govpass_session"
)

// Load reads path (optional) and applies env overrides. Env wins over file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	overrideString(&cfg.App.Env, "APP_ENV")
	overrideString(&cfg.Server.Addr, "SERVER_ADDR")
	overrideString(&cfg.Log.Level, "LOG_LEVEL")
	overrideString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	overrideString(&cfg.Storage.DSN, "DATABASE_URL")
	overrideString(&cfg.Cache.Driver, "CACHE_DRIVER")
	overrideString(&cfg.Cache.Redis.Addr, "REDIS_ADDR")
	overrideString(&cfg.Cache.Redis.Password, "REDIS_PASSWORD")
	overrideInt(&cfg.Cache.Redis.DB, "REDIS_DB")
	overrideString(&cfg.JWT.Issuer, "JWT_ISSUER")
	overrideString(&cfg.JWT.KeyFile, "JWT_KEY_FILE")
	overrideString(&cfg.OAuth.UIBaseURL, "OAUTH_UI_BASE_URL")

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = DefaultIssuer
	}
	if cfg.OAuth.SessionCookie == "" {
		cfg.OAuth.SessionCookie = DefaultSessionCookie
	}
	return &cfg, nil
}

// CodeTTL returns the authorization code lifetime.
func (c *Config) CodeTTL() time.Duration {
	return durationOr(c.OAuth.CodeTTL, DefaultCodeTTL)
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.OAuth.AccessTTL, DefaultAccessTTL)
}

// RefreshTTL returns the refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.OAuth.RefreshTTL, DefaultRefreshTTL)
}

// IDTokenTTL returns the ID token lifetime.
func (c *Config) IDTokenTTL() time.Duration {
	return durationOr(c.JWT.IDTokenTTL, DefaultIDTokenTTL)
}

// RateWindow returns the rate limit window.
func (c *Config) RateWindow() time.Duration {
	return durationOr(c.Rate.Window, time.Minute)
}

func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
