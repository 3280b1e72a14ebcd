// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package imagecache

import (
	"context"
	"sort"

	"github.com/goccy/go-json"
)

// Storage keys for the resolver's persisted state. The names predate this
// implementation and are kept so existing installs migrate transparently.
const (
	trackedURIsKey  = "ImageCacheService:trackedUris"
	variantStatsKey = "ImageCacheService:variantStats"
	thumbhashesKey  = "ImageCacheService:thumbhashes"
)

// loadState hydrates the in-memory tracked-URI set, variant stats, and
// thumbhash map from storage. Unreadable state starts fresh; it is telemetry
// and bookkeeping, not correctness-critical data.
func (r *Resolver) loadState(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if raw, ok, err := r.kv.GetItem(ctx, trackedURIsKey); err == nil && ok {
		var uris []string
		if err := json.Unmarshal([]byte(raw), &uris); err == nil {
			for _, u := range uris {
				r.tracked[u] = struct{}{}
			}
		} else {
			r.log.Warn().Err(err).Msg("tracked uri list unreadable, starting fresh")
		}
	}

	if raw, ok, err := r.kv.GetItem(ctx, variantStatsKey); err == nil && ok {
		if err := json.Unmarshal([]byte(raw), &r.variantStats); err != nil {
			r.log.Warn().Err(err).Msg("variant stats unreadable, starting fresh")
		}
	}

	if raw, ok, err := r.kv.GetItem(ctx, thumbhashesKey); err == nil && ok {
		if err := json.Unmarshal([]byte(raw), &r.thumbhashes); err != nil {
			r.log.Warn().Err(err).Msg("thumbhash map unreadable, starting fresh")
		}
	}
}

// persist is the single best-effort write-through helper: it serializes
// value and stores it under key, swallowing and logging any failure so
// state persistence never blocks or breaks a resolve.
func (r *Resolver) persist(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("state marshal failed")
		return
	}
	if err := r.kv.SetItem(ctx, key, string(raw)); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("state persist failed")
	}
}

// track adds a sanitized URI to the tracked set and persists the whole set.
// Caller must not hold r.mu.
func (r *Resolver) track(ctx context.Context, sanitized string) {
	r.mu.Lock()
	if _, ok := r.tracked[sanitized]; ok {
		r.mu.Unlock()
		return
	}
	r.tracked[sanitized] = struct{}{}
	snapshot := r.trackedSliceLocked()
	r.mu.Unlock()

	r.persist(ctx, trackedURIsKey, snapshot)
}

// untrack removes a sanitized URI from the tracked set and persists.
// Caller must not hold r.mu.
func (r *Resolver) untrack(ctx context.Context, sanitized string) {
	r.mu.Lock()
	if _, ok := r.tracked[sanitized]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.tracked, sanitized)
	snapshot := r.trackedSliceLocked()
	r.mu.Unlock()

	r.persist(ctx, trackedURIsKey, snapshot)
}

// trackedSliceLocked returns the tracked set as a sorted slice.
// Caller must hold r.mu.
func (r *Resolver) trackedSliceLocked() []string {
	uris := make([]string, 0, len(r.tracked))
	for u := range r.tracked {
		uris = append(uris, u)
	}
	sort.Strings(uris)
	return uris
}

// Tracked returns the sanitized URIs known to have a cached artifact.
func (r *Resolver) Tracked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackedSliceLocked()
}

// recordVariantHit bumps the telemetry counter for a normalization variant
// and persists the map. Counters only ever increase.
func (r *Resolver) recordVariantHit(ctx context.Context, label string) {
	r.mu.Lock()
	r.variantStats[label]++
	snapshot := make(map[string]int64, len(r.variantStats))
	for k, v := range r.variantStats {
		snapshot[k] = v
	}
	r.mu.Unlock()

	r.persist(ctx, variantStatsKey, snapshot)
}

// VariantStats returns a snapshot of the variant telemetry counters.
func (r *Resolver) VariantStats() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.variantStats))
	for k, v := range r.variantStats {
		out[k] = v
	}
	return out
}

// SetThumbhash stores the thumbhash placeholder for a URI, keyed by its
// sanitized form, and persists the map.
func (r *Resolver) SetThumbhash(ctx context.Context, uri, thumbhash string) {
	sanitized := SanitizeURI(uri)

	r.mu.Lock()
	r.thumbhashes[sanitized] = thumbhash
	snapshot := make(map[string]string, len(r.thumbhashes))
	for k, v := range r.thumbhashes {
		snapshot[k] = v
	}
	r.mu.Unlock()

	r.persist(ctx, thumbhashesKey, snapshot)
}

// Thumbhash returns the stored thumbhash for a URI, if any.
func (r *Resolver) Thumbhash(uri string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.thumbhashes[SanitizeURI(uri)]
	return h, ok
}
