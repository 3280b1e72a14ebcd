// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package imagecache

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/helmsman-media/helmsman/internal/connectors"
	"github.com/helmsman-media/helmsman/internal/kv"
	"github.com/helmsman-media/helmsman/internal/logging"
	"github.com/helmsman-media/helmsman/internal/metrics"
)

// DefaultMaxAge is how old a cached file may be before it is purged on
// discovery and treated as a miss.
const DefaultMaxAge = 7 * 24 * time.Hour

// Config assembles a Resolver's dependencies. KV, FS, and Dir are required;
// everything else has defaults.
type Config struct {
	KV       kv.Store
	FS       FileSystem
	Registry *connectors.Registry // optional; nil disables credential augmentation

	// Dir is the directory cached image files are written to.
	Dir string

	// MaxAge is the staleness cutoff for cached files. Default 7 days.
	MaxAge time.Duration

	// GateCapacity bounds concurrent downloads. Default 3.
	GateCapacity int

	// BreakerThreshold is the consecutive-failure count that opens the
	// download circuit breaker. Default 5.
	BreakerThreshold uint32

	// BreakerTimeout is how long the breaker stays open. Default 30s.
	BreakerTimeout time.Duration

	// Now overrides the time source, for tests. Default time.Now.
	Now func() time.Time
}

// Resolver maps remote artwork URIs to locally cached files.
type Resolver struct {
	kv      kv.Store
	fs      FileSystem
	reg     *connectors.Registry
	dir     string
	maxAge  time.Duration
	gate    *Gate
	breaker *gobreaker.CircuitBreaker[string]
	group   singleflight.Group
	now     func() time.Time
	log     zerolog.Logger

	mu           sync.Mutex
	tracked      map[string]struct{}
	variantStats map[string]int64
	thumbhashes  map[string]string
}

// New creates a Resolver and hydrates its persisted state from cfg.KV.
func New(ctx context.Context, cfg Config) *Resolver {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := &Resolver{
		kv:           cfg.KV,
		fs:           cfg.FS,
		reg:          cfg.Registry,
		dir:          cfg.Dir,
		maxAge:       cfg.MaxAge,
		gate:         NewGate(cfg.GateCapacity),
		now:          cfg.Now,
		log:          logging.With().Str("component", "imagecache").Logger(),
		tracked:      make(map[string]struct{}),
		variantStats: make(map[string]int64),
		thumbhashes:  make(map[string]string),
	}

	r.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "image-download",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(breakerStateValue(to))
			r.log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("download breaker state changed")
		},
	})

	r.loadState(ctx)
	return r
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// filePath returns the deterministic on-disk location for a URI.
func (r *Resolver) filePath(uri string) string {
	return filepath.Join(r.dir, cacheFileName(uri))
}

// Resolve returns a local file path for uri, downloading it if necessary.
// On total failure it returns the remote URI (credential-augmented when a
// connector matches) so the caller can still attempt a live fetch; Resolve
// never fails with an error under network-failure conditions.
//
// Concurrent calls for the same URI collapse into a single in-flight
// operation whose result every caller receives. The shared operation runs
// under the first caller's context.
func (r *Resolver) Resolve(ctx context.Context, uri string) string {
	sanitized := SanitizeURI(uri)

	result, _, _ := r.group.Do(sanitized, func() (any, error) {
		return r.resolve(ctx, uri, sanitized), nil
	})
	return result.(string)
}

// resolve is the single-flight body: lookup, gated prefetch, gated fallback
// download, then pass-through.
func (r *Resolver) resolve(ctx context.Context, uri, sanitized string) string {
	if path, label, ok := r.lookupCached(ctx, sanitized); ok {
		r.recordVariantHit(ctx, label)
		metrics.ImageVariantHits.WithLabelValues(label).Inc()
		metrics.ImageResolves.WithLabelValues("cache").Inc()
		return path
	}

	fetchURI := uri
	if r.reg != nil {
		fetchURI = r.reg.Augment(uri)
	}
	dest := r.filePath(sanitized)

	if err := r.gate.Acquire(ctx); err != nil {
		r.log.Debug().Err(err).Str("uri", sanitized).Msg("gate acquire aborted")
		metrics.ImageResolves.WithLabelValues("remote").Inc()
		return fetchURI
	}
	defer r.gate.Release()

	// Prefetch path: download through the circuit breaker.
	_, err := r.breaker.Execute(func() (string, error) {
		return dest, r.fs.DownloadToFile(ctx, fetchURI, dest)
	})
	if err == nil {
		metrics.ImageDownloads.WithLabelValues("prefetch").Inc()
		metrics.ImageResolves.WithLabelValues("download").Inc()
		r.track(ctx, sanitized)
		return dest
	}
	r.log.Debug().Err(err).Str("uri", sanitized).Msg("prefetch failed, trying direct download")

	// Fallback path: one direct attempt, bypassing the breaker. Covers the
	// breaker-open fast-fail so a single image can still come through.
	if err := r.fs.DownloadToFile(ctx, fetchURI, dest); err == nil {
		metrics.ImageDownloads.WithLabelValues("fallback").Inc()
		metrics.ImageResolves.WithLabelValues("download").Inc()
		r.track(ctx, sanitized)
		return dest
	}

	r.log.Warn().Str("uri", sanitized).Msg("all download paths failed, passing through remote uri")
	metrics.ImageDownloads.WithLabelValues("failed").Inc()
	metrics.ImageResolves.WithLabelValues("remote").Inc()
	return fetchURI
}

// lookupCached scans the URI's normalization variants for an existing fresh
// file. Stale files found along the way are purged and treated as misses.
func (r *Resolver) lookupCached(ctx context.Context, sanitized string) (string, string, bool) {
	for _, v := range variantsOf(sanitized) {
		path := r.filePath(v.URI)
		info, err := r.fs.Stat(ctx, path)
		if err != nil {
			r.log.Debug().Err(err).Str("path", path).Msg("stat failed during lookup")
			continue
		}
		if !info.Exists || info.IsDir {
			continue
		}
		if r.now().Sub(info.ModTime) > r.maxAge {
			r.purgeStale(ctx, v.URI, path)
			continue
		}
		return path, v.Label, true
	}
	return "", "", false
}

// purgeStale deletes an over-age cached file and forgets its URI.
func (r *Resolver) purgeStale(ctx context.Context, uri, path string) {
	if err := r.fs.Remove(ctx, path); err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to delete stale file")
		return
	}
	metrics.ImageStalePurges.Inc()
	r.log.Debug().Str("path", path).Msg("purged stale cached file")
	r.untrack(ctx, SanitizeURI(uri))
}

// CachedPath reports the local path for uri if a fresh cached file exists.
// Never touches the network.
func (r *Resolver) CachedPath(ctx context.Context, uri string) (string, bool) {
	path, _, ok := r.lookupCached(ctx, SanitizeURI(uri))
	return path, ok
}

// Prefetch resolves every URI, warming the cache. Parallelism is bounded by
// the download gate; the errgroup limit only stops Prefetch from spawning a
// goroutine per URI in huge batches. Returns how many URIs ended up cached
// locally.
func (r *Resolver) Prefetch(ctx context.Context, uris []string) int {
	var (
		mu     sync.Mutex
		cached int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.gate.Capacity() * 2)
	for _, uri := range uris {
		g.Go(func() error {
			result := r.Resolve(ctx, uri)
			if result != "" && !isRemote(result) {
				mu.Lock()
				cached++
				mu.Unlock()
			}
			return nil
		})
	}
	// Workers never return errors; Resolve absorbs failures.
	_ = g.Wait()
	return cached
}

// isRemote distinguishes a pass-through remote URI from a local path.
func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// CacheUsage sums the sizes of all tracked cached files, purging any that
// have gone stale. Stale files never count toward the total.
func (r *Resolver) CacheUsage(ctx context.Context) int64 {
	var total int64
	for _, uri := range r.Tracked() {
		path := r.filePath(uri)
		info, err := r.fs.Stat(ctx, path)
		if err != nil || !info.Exists {
			continue
		}
		if r.now().Sub(info.ModTime) > r.maxAge {
			r.purgeStale(ctx, uri, path)
			continue
		}
		total += info.Size
	}
	return total
}

// Sweep purges every tracked file past the staleness cutoff and returns the
// number purged. The janitor calls this periodically; resolves also purge
// lazily on discovery, so the sweep only accelerates disk reclamation.
func (r *Resolver) Sweep(ctx context.Context) int {
	purged := 0
	for _, uri := range r.Tracked() {
		path := r.filePath(uri)
		info, err := r.fs.Stat(ctx, path)
		if err != nil {
			continue
		}
		if !info.Exists {
			// File vanished out from under us; drop the tracking entry.
			r.untrack(ctx, uri)
			continue
		}
		if r.now().Sub(info.ModTime) > r.maxAge {
			r.purgeStale(ctx, uri, path)
			purged++
		}
	}
	return purged
}

// ClearAll deletes every tracked cached file and resets the resolver's
// persisted state.
func (r *Resolver) ClearAll(ctx context.Context) {
	for _, uri := range r.Tracked() {
		if err := r.fs.Remove(ctx, r.filePath(uri)); err != nil {
			r.log.Warn().Err(err).Str("uri", uri).Msg("failed to delete cached file")
		}
	}

	r.mu.Lock()
	r.tracked = make(map[string]struct{})
	r.variantStats = make(map[string]int64)
	r.thumbhashes = make(map[string]string)
	r.mu.Unlock()

	r.persist(ctx, trackedURIsKey, []string{})
	r.persist(ctx, variantStatsKey, map[string]int64{})
	r.persist(ctx, thumbhashesKey, map[string]string{})
	r.log.Info().Msg("image cache cleared")
}
