package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/govpass/govpass/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != config.DefaultAddr {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.JWT.Issuer != config.DefaultIssuer {
		t.Errorf("issuer = %q", cfg.JWT.Issuer)
	}
	if cfg.OAuth.SessionCookie != config.DefaultSessionCookie {
		t.Errorf("cookie = %q", cfg.OAuth.SessionCookie)
	}
	if cfg.CodeTTL() != 5*time.Minute {
		t.Errorf("code ttl = %v", cfg.CodeTTL())
	}
	if cfg.AccessTTL() != time.Hour {
		t.Errorf("access ttl = %v", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 30*24*time.Hour {
		t.Errorf("refresh ttl = %v", cfg.RefreshTTL())
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	raw := `
server:
  addr: ":9090"
jwt:
  issuer: "https://id.example"
oauth:
  code_ttl: 2m
  session_cookie: custom_sid
  ui_base_url: "https://portal.example"
rate:
  enabled: true
  max_requests: 10
  window: 30s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.JWT.Issuer != "https://id.example" {
		t.Errorf("issuer = %q", cfg.JWT.Issuer)
	}
	if cfg.CodeTTL() != 2*time.Minute {
		t.Errorf("code ttl = %v", cfg.CodeTTL())
	}
	if cfg.OAuth.SessionCookie != "custom_sid" {
		t.Errorf("cookie = %q", cfg.OAuth.SessionCookie)
	}
	if cfg.OAuth.UIBaseURL != "https://portal.example" {
		t.Errorf("ui base = %q", cfg.OAuth.UIBaseURL)
	}
	if !cfg.Rate.Enabled || cfg.Rate.MaxRequests != 10 {
		t.Errorf("rate = %+v", cfg.Rate)
	}
	if cfg.RateWindow() != 30*time.Second {
		t.Errorf("rate window = %v", cfg.RateWindow())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	raw := `
server:
  addr: ":9090"
storage:
  driver: memory
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://env/db")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("env should win over file, addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != "postgres://env/db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := config.Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	raw := `
oauth:
  code_ttl: "not-a-duration"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CodeTTL() != 5*time.Minute {
		t.Errorf("bad duration should fall back to default, got %v", cfg.CodeTTL())
	}
}
