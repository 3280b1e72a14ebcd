// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cache.LogsTTL != 15*time.Minute {
		t.Errorf("LogsTTL = %v, want 15m", cfg.Cache.LogsTTL)
	}
	if cfg.Cache.HealthTTL != 5*time.Minute {
		t.Errorf("HealthTTL = %v, want 5m", cfg.Cache.HealthTTL)
	}
	if cfg.Cache.CeilingBytes != 50<<20 {
		t.Errorf("CeilingBytes = %d, want 50MiB", cfg.Cache.CeilingBytes)
	}
	if cfg.ImageCache.MaxAge != 7*24*time.Hour {
		t.Errorf("MaxAge = %v, want 168h", cfg.ImageCache.MaxAge)
	}
	if cfg.ImageCache.GateCapacity != 3 {
		t.Errorf("GateCapacity = %d, want 3", cfg.ImageCache.GateCapacity)
	}
	if cfg.ListenAddr() != "0.0.0.0:8420" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr())
	}
}

func TestLoadYAMLFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log:
  level: debug
  format: console
store:
  backend: memory
cache:
  ceiling_bytes: 1048576
image_cache:
  dir: /tmp/images
  gate_capacity: 5
connectors:
  - name: sonarr
    base_url: https://media.local/sonarr
    api_key: abc123
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("log config not overridden: %+v", cfg.Log)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Cache.CeilingBytes != 1<<20 {
		t.Errorf("CeilingBytes = %d, want 1MiB", cfg.Cache.CeilingBytes)
	}
	if cfg.ImageCache.GateCapacity != 5 {
		t.Errorf("GateCapacity = %d, want 5", cfg.ImageCache.GateCapacity)
	}

	// Untouched settings keep their defaults.
	if cfg.Cache.LogsTTL != 15*time.Minute {
		t.Errorf("LogsTTL lost its default: %v", cfg.Cache.LogsTTL)
	}

	conns := cfg.ConnectorList()
	if len(conns) != 1 || conns[0].Name != "sonarr" || conns[0].APIKey != "abc123" {
		t.Errorf("ConnectorList = %+v", conns)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("HELMSMAN_LOG_LEVEL", "error")
	t.Setenv("HELMSMAN_IMAGE_CACHE_GATE_CAPACITY", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("env did not win over file: %q", cfg.Log.Level)
	}
	if cfg.ImageCache.GateCapacity != 7 {
		t.Errorf("GateCapacity = %d, want 7", cfg.ImageCache.GateCapacity)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"HELMSMAN_LOG_LEVEL", "log.level"},
		{"HELMSMAN_STORE_BACKEND", "store.backend"},
		{"HELMSMAN_IMAGE_CACHE_GATE_CAPACITY", "image_cache.gate_capacity"},
		{"HELMSMAN_CACHE_CEILING_BYTES", "cache.ceiling_bytes"},
		{"HELMSMAN_SERVER_RATE_LIMIT_REQS", "server.rate_limit_reqs"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.input); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	cfg.Log.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bogus log level")
	}

	cfg = defaultConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for port 0")
	}

	cfg = defaultConfig()
	cfg.Connectors = []ConnectorConfig{{Name: "sonarr", BaseURL: "not a url"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for malformed base_url")
	}

	cfg = defaultConfig()
	cfg.Store.Backend = "badger"
	cfg.Store.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for badger backend without dir")
	}
}
