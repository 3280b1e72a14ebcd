// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

// Package api exposes the cache layer over HTTP for the dashboard app:
// cache stats and invalidation, image resolution and prefetch, health, and
// Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/helmsman-media/helmsman/internal/cache"
	"github.com/helmsman-media/helmsman/internal/imagecache"
	"github.com/helmsman-media/helmsman/internal/logging"
)

// Handler carries the cache layer dependencies the HTTP endpoints serve.
type Handler struct {
	cache    *cache.Store
	resolver *imagecache.Resolver
	started  time.Time
}

// NewHandler creates a Handler over the given cache store and resolver.
func NewHandler(store *cache.Store, resolver *imagecache.Resolver) *Handler {
	return &Handler{
		cache:    store,
		resolver: resolver,
		started:  time.Now(),
	}
}

// writeJSON renders v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response")
	}
}

// writeError renders a JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Healthz reports liveness and uptime.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// CacheStats returns the TTL store's aggregate stats plus image cache usage.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"store":           stats,
		"imageUsageBytes": h.resolver.CacheUsage(r.Context()),
		"trackedImages":   len(h.resolver.Tracked()),
		"variantStats":    h.resolver.VariantStats(),
	})
}

// ClearCache empties every cache category.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.ClearAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ClearCacheCategory empties a single category.
func (h *Handler) ClearCacheCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "category")
	cat, ok := cache.CategoryFromString(name)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown cache category: "+name)
		return
	}
	h.cache.Clear(r.Context(), cat)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "category": name})
}

// ResolveImage resolves a single image URI to its local or remote location.
func (h *Handler) ResolveImage(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "missing uri parameter")
		return
	}

	location := h.resolver.Resolve(r.Context(), uri)
	_, cached := h.resolver.CachedPath(r.Context(), uri)
	writeJSON(w, http.StatusOK, map[string]any{
		"uri":      imagecache.SanitizeURI(uri),
		"location": location,
		"cached":   cached,
	})
}

// prefetchRequest is the body of POST /api/v1/images/prefetch.
type prefetchRequest struct {
	URIs []string `json:"uris"`
}

// PrefetchImages warms the image cache for a batch of URIs.
func (h *Handler) PrefetchImages(w http.ResponseWriter, r *http.Request) {
	var req prefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URIs) == 0 {
		writeError(w, http.StatusBadRequest, "no uris provided")
		return
	}

	cached := h.resolver.Prefetch(r.Context(), req.URIs)
	writeJSON(w, http.StatusOK, map[string]int{
		"requested": len(req.URIs),
		"cached":    cached,
	})
}

// ImageUsage reports the image cache's disk usage in bytes.
func (h *Handler) ImageUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{
		"bytes": h.resolver.CacheUsage(r.Context()),
	})
}

// ClearImages deletes every cached image and resets resolver state.
func (h *Handler) ClearImages(w http.ResponseWriter, r *http.Request) {
	h.resolver.ClearAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
