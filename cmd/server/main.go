// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

// Package main is the entry point for the Helmsman server.
//
// Helmsman is the caching companion for media management dashboards. It sits
// between the dashboard app and connectors like Sonarr, Radarr, and Jellyfin,
// caching their log and health responses under per-category TTLs and keeping
// a disk cache of poster and banner artwork so the dashboard stays responsive
// when the managed services are slow or unreachable.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, HELMSMAN_* env vars (Koanf v2)
//  2. Key-value store: BadgerDB (durable) or in-memory, per store.backend
//  3. TTL cache store: JSON-over-KV cache with a global size ceiling
//  4. Connector registry: the managed service endpoints and their credentials
//  5. Image resolver: URI-variant lookup, gated downloads, staleness sweeps
//  6. HTTP server: cache stats, invalidation, image resolve/prefetch, metrics
//  7. Supervisor tree: the janitor and the HTTP server under suture
//
// # Configuration
//
// Configuration is layered via Koanf v2 (highest priority wins):
//   - Environment variables, e.g. HELMSMAN_SERVER_PORT=8420
//   - Config file (-config flag, HELMSMAN_CONFIG, or ./config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP server
// stops accepting connections, in-flight requests get 10s to finish, and the
// Badger store is closed last.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/helmsman-media/helmsman/internal/api"
	"github.com/helmsman-media/helmsman/internal/cache"
	"github.com/helmsman-media/helmsman/internal/config"
	"github.com/helmsman-media/helmsman/internal/connectors"
	"github.com/helmsman-media/helmsman/internal/imagecache"
	"github.com/helmsman-media/helmsman/internal/kv"
	"github.com/helmsman-media/helmsman/internal/logging"
	"github.com/helmsman-media/helmsman/internal/supervisor"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (default: search standard locations)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("helmsman " + version)
		return
	}

	// Load configuration first to get logging settings.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("store_backend", cfg.Store.Backend).
		Int("connectors", len(cfg.Connectors)).
		Msg("Starting Helmsman")

	// Key-value backend.
	var backend kv.Store
	switch cfg.Store.Backend {
	case "badger":
		badgerStore, err := kv.OpenBadger(cfg.Store.Dir)
		if err != nil {
			logging.Fatal().Err(err).Str("dir", cfg.Store.Dir).Msg("Failed to open store")
		}
		defer func() {
			if err := badgerStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing store")
			}
		}()
		backend = badgerStore
	default:
		backend = kv.NewMemoryStore()
		logging.Warn().Msg("Using in-memory store, cached data will not survive restarts")
	}

	// TTL cache over the backend.
	store := cache.New(backend,
		cache.WithTTL(cache.CategoryLogs, cfg.Cache.LogsTTL),
		cache.WithTTL(cache.CategoryHealth, cfg.Cache.HealthTTL),
		cache.WithCeiling(cfg.Cache.CeilingBytes),
	)

	registry := connectors.NewRegistry(cfg.ConnectorList())

	if err := os.MkdirAll(cfg.ImageCache.Dir, 0o750); err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.ImageCache.Dir).Msg("Failed to create image cache directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver := imagecache.New(ctx, imagecache.Config{
		KV:               backend,
		FS:               imagecache.NewOSFileSystem(cfg.ImageCache.DownloadTimeout, cfg.ImageCache.DownloadsPerSecond),
		Registry:         registry,
		Dir:              cfg.ImageCache.Dir,
		MaxAge:           cfg.ImageCache.MaxAge,
		GateCapacity:     cfg.ImageCache.GateCapacity,
		BreakerThreshold: cfg.ImageCache.BreakerThreshold,
		BreakerTimeout:   cfg.ImageCache.BreakerTimeout,
	})

	router := api.NewRouter(api.NewHandler(store, resolver), api.RouterConfig{
		RateLimitReqs:   cfg.Server.RateLimitReqs,
		RateLimitWindow: cfg.Server.RateLimitWindow,
		CORSOrigins:     cfg.Server.CORSOrigins,
	})
	server := api.NewServer(cfg.ListenAddr(), router, cfg.Server.Timeout)

	// Supervisor tree: janitor in the maintenance layer, HTTP server in the
	// API layer. Supervisor events flow through zerolog via the slog adapter.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMaintenanceService(imagecache.NewJanitor(resolver, cfg.ImageCache.SweepInterval))
	tree.AddAPIService(server)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", cfg.ListenAddr()).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Helmsman stopped gracefully")
}
