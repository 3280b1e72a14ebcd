// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

// Package metrics provides Prometheus instrumentation for the cache layer.
//
// Metrics are registered on the default registry via promauto and exposed at
// /metrics by the API router. Counters here are informational; none of the
// cache's correctness depends on them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts TTL-store lookups that returned a fresh entry.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helmsman_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"category"},
	)

	// CacheMisses counts TTL-store lookups that found nothing usable,
	// including entries discarded as expired or corrupt.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helmsman_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"category"},
	)

	// CacheExpirations counts entries removed by lazy expiry on read.
	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helmsman_cache_expirations_total",
			Help: "Total number of entries removed because their TTL elapsed",
		},
		[]string{"category"},
	)

	// CacheEvictions counts entries removed by the size-budget evictor.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helmsman_cache_evictions_total",
			Help: "Total number of entries evicted to enforce the size ceiling",
		},
	)

	// CacheSizeBytes tracks the aggregate serialized size of all entries
	// as of the most recent stats scan.
	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "helmsman_cache_size_bytes",
			Help: "Aggregate serialized size of all TTL cache entries",
		},
	)

	// ImageResolves counts resolver outcomes by source:
	// cache, download, fallback, remote.
	ImageResolves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helmsman_image_resolves_total",
			Help: "Total number of image resolve operations by outcome",
		},
		[]string{"source"},
	)

	// ImageVariantHits records which URI normalization variant produced a
	// cache hit. Mirrors the persisted variant-stats map.
	ImageVariantHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helmsman_image_variant_hits_total",
			Help: "Cache hits by URI normalization variant",
		},
		[]string{"variant"},
	)

	// ImageDownloads counts fallback download attempts by result.
	ImageDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helmsman_image_downloads_total",
			Help: "Total number of image download attempts by result",
		},
		[]string{"result"},
	)

	// ImageStalePurges counts cached files deleted for exceeding max age.
	ImageStalePurges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helmsman_image_stale_purges_total",
			Help: "Total number of cached image files purged as stale",
		},
	)

	// GateWaitSeconds observes time spent waiting on the download gate.
	GateWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helmsman_gate_wait_seconds",
			Help:    "Time spent waiting to acquire the download concurrency gate",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
	)

	// BreakerState reports the download circuit breaker state:
	// 0=closed, 1=half-open, 2=open.
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "helmsman_download_breaker_state",
			Help: "Download circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
