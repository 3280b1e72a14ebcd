// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig tunes the router's middleware.
type RouterConfig struct {
	// RateLimitReqs / RateLimitWindow bound per-IP request rates on the
	// API routes. Health and metrics are exempt.
	RateLimitReqs   int
	RateLimitWindow time.Duration

	// CORSOrigins lists allowed origins; empty means allow all.
	CORSOrigins []string
}

// NewRouter assembles the HTTP routes.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.RateLimitReqs <= 0 {
		cfg.RateLimitReqs = 300
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", h.CacheStats)
			r.Delete("/", h.ClearCache)
			r.Delete("/{category}", h.ClearCacheCategory)
		})

		r.Route("/images", func(r chi.Router) {
			r.Get("/resolve", h.ResolveImage)
			r.Post("/prefetch", h.PrefetchImages)
			r.Get("/usage", h.ImageUsage)
			r.Delete("/", h.ClearImages)
		})
	})

	return r
}
