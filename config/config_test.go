package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("TOKEN_FILE", "/tmp/tokens.yaml")

	cfg := LoadConfig()
	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.ServerPort != 8080 {
		t.Fatalf("unexpected port %d", cfg.ServerPort)
	}
	if cfg.Session.Backend != SessionBackendCookie || cfg.Tokens.Store != TokenStoreFile {
		t.Fatalf("unexpected backends %q %q", cfg.Session.Backend, cfg.Tokens.Store)
	}
	if cfg.Tokens.File != "/tmp/tokens.yaml" {
		t.Fatalf("unexpected token file %q", cfg.Tokens.File)
	}
	if cfg.IsDev() {
		t.Fatalf("expected prod env")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("API_BASE_URL", "https://znahidky.example/api/v1/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("SESSION_SECURE", "true")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DEVAPI_ACCESS_TTL", "not-a-duration")

	cfg := LoadConfig()
	if cfg.API.BaseURL != "https://znahidky.example/api/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.API.Timeout)
	}
	if !cfg.Session.Secure {
		t.Fatalf("expected secure session cookies")
	}
	if cfg.ServerPort != 9090 {
		t.Fatalf("unexpected port %d", cfg.ServerPort)
	}
	if cfg.DevAPI.AccessTTL != 5*time.Minute {
		t.Fatalf("expected default on bad duration, got %v", cfg.DevAPI.AccessTTL)
	}
}
