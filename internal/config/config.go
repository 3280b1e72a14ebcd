// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

// Package config loads and validates Helmsman's configuration via Koanf v2
// with layered sources: built-in defaults, then an optional YAML file, then
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/helmsman-media/helmsman/internal/connectors"
)

// Config is the root configuration.
type Config struct {
	Log        LogConfig         `koanf:"log"`
	Store      StoreConfig       `koanf:"store"`
	Cache      CacheConfig       `koanf:"cache"`
	ImageCache ImageCacheConfig  `koanf:"image_cache"`
	Connectors []ConnectorConfig `koanf:"connectors" validate:"omitempty,dive"`
	Server     ServerConfig      `koanf:"server"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	// Backend is "badger" for durable on-disk storage or "memory" for an
	// ephemeral store.
	Backend string `koanf:"backend" validate:"oneof=badger memory"`

	// Dir is the BadgerDB directory. Required for the badger backend.
	Dir string `koanf:"dir" validate:"required_if=Backend badger"`
}

// CacheConfig tunes the TTL cache store.
type CacheConfig struct {
	LogsTTL      time.Duration `koanf:"logs_ttl" validate:"gt=0"`
	HealthTTL    time.Duration `koanf:"health_ttl" validate:"gt=0"`
	CeilingBytes int64         `koanf:"ceiling_bytes" validate:"gt=0"`
}

// ImageCacheConfig tunes the artwork resolver.
type ImageCacheConfig struct {
	// Dir is where cached image files are written.
	Dir string `koanf:"dir" validate:"required"`

	// MaxAge is the staleness cutoff for cached files.
	MaxAge time.Duration `koanf:"max_age" validate:"gt=0"`

	// GateCapacity bounds concurrent downloads.
	GateCapacity int `koanf:"gate_capacity" validate:"gte=1,lte=64"`

	// DownloadTimeout bounds each download request.
	DownloadTimeout time.Duration `koanf:"download_timeout" validate:"gt=0"`

	// DownloadsPerSecond rate-limits downloads; 0 disables the limit.
	DownloadsPerSecond float64 `koanf:"downloads_per_second" validate:"gte=0"`

	// SweepInterval is how often the janitor sweeps for stale files.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`

	// BreakerThreshold is the consecutive-failure count that opens the
	// download circuit breaker.
	BreakerThreshold uint32 `koanf:"breaker_threshold" validate:"gte=1"`

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// ConnectorConfig describes one managed service endpoint.
type ConnectorConfig struct {
	Name    string `koanf:"name" validate:"required"`
	BaseURL string `koanf:"base_url" validate:"required,url"`
	APIKey  string `koanf:"api_key"`
}

// ServerConfig tunes the admin HTTP server.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// layered first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Store: StoreConfig{
			Backend: "badger",
			Dir:     "/data/helmsman/store",
		},
		Cache: CacheConfig{
			LogsTTL:      15 * time.Minute,
			HealthTTL:    5 * time.Minute,
			CeilingBytes: 50 << 20, // 50 MiB
		},
		ImageCache: ImageCacheConfig{
			Dir:                "/data/helmsman/images",
			MaxAge:             7 * 24 * time.Hour,
			GateCapacity:       3,
			DownloadTimeout:    30 * time.Second,
			DownloadsPerSecond: 0, // unlimited
			SweepInterval:      6 * time.Hour,
			BreakerThreshold:   5,
			BreakerTimeout:     30 * time.Second,
		},
		Connectors: nil,
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8420,
			Timeout:         30 * time.Second,
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ConnectorList converts the configured endpoints into registry connectors.
func (c *Config) ConnectorList() []connectors.Connector {
	out := make([]connectors.Connector, 0, len(c.Connectors))
	for _, cc := range c.Connectors {
		out = append(out, connectors.Connector{
			Name:    cc.Name,
			BaseURL: cc.BaseURL,
			APIKey:  cc.APIKey,
		})
	}
	return out
}

// ListenAddr formats the server's host:port pair.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
