package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Search.PerPage != 30 {
		t.Errorf("PerPage = %d, want 30", cfg.Search.PerPage)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[github]
client_id = "abc123"

[server]
addr = ":9090"
session_ttl = "12h"

[storage]
backend = "mongo"
mongo_uri = "mongodb://localhost:27017"

[search]
per_page = 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.ClientID != "abc123" {
		t.Errorf("ClientID = %q", cfg.GitHub.ClientID)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.TTL() != 12*time.Hour {
		t.Errorf("TTL = %v, want 12h", cfg.Server.TTL())
	}
	if cfg.Storage.Backend != "mongo" || cfg.Storage.MongoURI == "" {
		t.Errorf("storage not loaded: %+v", cfg.Storage)
	}
	if cfg.Search.PerPage != 50 {
		t.Errorf("PerPage = %d, want 50", cfg.Search.PerPage)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[github]
client_id = "from-file"
`)
	t.Setenv("DEVFINDER_GITHUB_CLIENT_ID", "from-env")
	t.Setenv("DEVFINDER_SERVER_ADDR", ":7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.ClientID != "from-env" {
		t.Errorf("env override not applied: %q", cfg.GitHub.ClientID)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("env override not applied: %q", cfg.Server.Addr)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown storage backend", "[storage]\nbackend = \"sqlite\"\n"},
		{"mongo without uri", "[storage]\nbackend = \"mongo\"\n"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n"},
		{"per_page out of range", "[search]\nper_page = 500\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
