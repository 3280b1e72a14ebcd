// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/helmsman-media/helmsman/internal/kv"
	"github.com/helmsman-media/helmsman/internal/logging"
	"github.com/helmsman-media/helmsman/internal/metrics"
)

// DefaultCeiling is the default global size budget shared by all categories.
const DefaultCeiling int64 = 50 << 20 // 50 MiB

// Store is the TTL cache. All dependencies are injected at construction so
// the store can be exercised in isolation with a fake clock and an in-memory
// kv.Store.
//
// Every method absorbs storage and codec failures: reads degrade to misses,
// writes to no-ops. The store must never be a hard dependency for data the
// dashboard can re-fetch.
type Store struct {
	kv      kv.Store
	ttls    map[Category]time.Duration
	ceiling int64
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the TTL for one category.
func WithTTL(cat Category, ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttls[cat] = ttl
		}
	}
}

// WithCeiling overrides the global size budget in bytes.
func WithCeiling(bytes int64) Option {
	return func(s *Store) {
		if bytes > 0 {
			s.ceiling = bytes
		}
	}
}

// WithClock overrides the time source. Tests use this to advance time
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger overrides the store's logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New creates a Store over the given key-value backend with default TTLs
// (15 min logs, 5 min health) and the default 50 MiB ceiling.
func New(backend kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:      backend,
		ttls:    make(map[Category]time.Duration, len(Categories())),
		ceiling: DefaultCeiling,
		now:     time.Now,
		log:     logging.With().Str("component", "cache").Logger(),
	}
	for _, cat := range Categories() {
		s.ttls[cat] = cat.DefaultTTL()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured time-to-live for a category.
func (s *Store) TTL(cat Category) time.Duration {
	return s.ttls[cat]
}

// Ceiling returns the configured global size budget in bytes.
func (s *Store) Ceiling() int64 {
	return s.ceiling
}

// Put serializes value into an entry stamped with the current time and
// writes it under the category's namespace, then runs a best-effort eviction
// pass to keep the aggregate size under the ceiling.
//
// Failures are logged and swallowed; a failed write simply means the next
// Get is a miss.
func (s *Store) Put(ctx context.Context, cat Category, key string, value any) {
	raw, entry, err := EncodeEntry(value, s.now())
	if err != nil {
		s.log.Warn().Err(err).Str("category", cat.String()).Str("key", key).
			Msg("cache write skipped: encode failed")
		return
	}

	if err := s.kv.SetItem(ctx, cat.Key(key), raw); err != nil {
		s.log.Warn().Err(err).Str("category", cat.String()).Str("key", key).
			Msg("cache write failed")
		return
	}

	s.log.Debug().Str("category", cat.String()).Str("key", key).
		Int64("size", entry.Size).Msg("cached")

	s.enforceBudget(ctx)
}

// Get looks up the entry for (cat, key) and decodes it into out.
//
// Lazy expiry: if the entry's age exceeds the category TTL it is deleted
// from the backend and the lookup reports a miss. Corrupt entries are also
// reported as misses; they are replaced wholesale on the next Put.
func (s *Store) Get(ctx context.Context, cat Category, key string, out any) bool {
	entry, ok := s.readEntry(ctx, cat, key)
	if !ok {
		metrics.CacheMisses.WithLabelValues(cat.String()).Inc()
		return false
	}

	if entry.Expired(s.now(), s.ttls[cat]) {
		if err := s.kv.RemoveItem(ctx, cat.Key(key)); err != nil {
			s.log.Warn().Err(err).Str("category", cat.String()).Str("key", key).
				Msg("failed to remove expired entry")
		}
		s.log.Debug().Str("category", cat.String()).Str("key", key).
			Dur("age", entry.Age(s.now())).Msg("entry expired")
		metrics.CacheExpirations.WithLabelValues(cat.String()).Inc()
		metrics.CacheMisses.WithLabelValues(cat.String()).Inc()
		return false
	}

	if err := entry.Decode(out); err != nil {
		s.log.Warn().Err(err).Str("category", cat.String()).Str("key", key).
			Msg("cache entry corrupt, treating as miss")
		metrics.CacheMisses.WithLabelValues(cat.String()).Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues(cat.String()).Inc()
	return true
}

// Timestamp returns the write time of the entry for (cat, key) without
// enforcing the TTL. The dashboard uses this for "cached N minutes ago"
// labels, which remain meaningful even on expired-but-not-yet-removed
// entries.
func (s *Store) Timestamp(ctx context.Context, cat Category, key string) (time.Time, bool) {
	entry, ok := s.readEntry(ctx, cat, key)
	if !ok {
		return time.Time{}, false
	}
	return entry.Time(), true
}

// Clear removes every entry in the given category.
func (s *Store) Clear(ctx context.Context, cat Category) {
	keys, err := s.kv.Keys(ctx, cat.Prefix())
	if err != nil {
		s.log.Warn().Err(err).Str("category", cat.String()).Msg("clear failed to enumerate keys")
		return
	}
	removed := 0
	for _, k := range keys {
		if err := s.kv.RemoveItem(ctx, k); err != nil {
			s.log.Warn().Err(err).Str("key", k).Msg("clear failed to remove key")
			continue
		}
		removed++
	}
	s.log.Info().Str("category", cat.String()).Int("removed", removed).Msg("cache cleared")
}

// ClearAll removes every entry in every category.
func (s *Store) ClearAll(ctx context.Context) {
	for _, cat := range Categories() {
		s.Clear(ctx, cat)
	}
}

// Stats describes the store's current contents.
type Stats struct {
	TotalSize int64          `json:"totalSize"`
	Counts    map[string]int `json:"perCategoryCounts"`
	Oldest    time.Time      `json:"oldestTimestamp"`
	Newest    time.Time      `json:"newestTimestamp"`
}

// Stats scans every tracked key and aggregates sizes and timestamps. O(n)
// in the number of entries, which the eviction policy keeps small.
func (s *Store) Stats(ctx context.Context) Stats {
	stats := Stats{Counts: make(map[string]int, len(Categories()))}
	for _, cat := range Categories() {
		stats.Counts[cat.String()] = 0
	}

	for _, item := range s.scan(ctx) {
		stats.TotalSize += item.entry.Size
		stats.Counts[item.cat.String()]++
		ts := item.entry.Time()
		if stats.Oldest.IsZero() || ts.Before(stats.Oldest) {
			stats.Oldest = ts
		}
		if stats.Newest.IsZero() || ts.After(stats.Newest) {
			stats.Newest = ts
		}
	}

	metrics.CacheSizeBytes.Set(float64(stats.TotalSize))
	return stats
}

// readEntry fetches and decodes the raw entry for (cat, key), converting
// every failure into a miss.
func (s *Store) readEntry(ctx context.Context, cat Category, key string) (Entry, bool) {
	raw, ok, err := s.kv.GetItem(ctx, cat.Key(key))
	if err != nil {
		s.log.Warn().Err(err).Str("category", cat.String()).Str("key", key).
			Msg("cache read failed, treating as miss")
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}

	entry, err := DecodeEntry(raw)
	if err != nil {
		s.log.Warn().Err(err).Str("category", cat.String()).Str("key", key).
			Msg("cache entry unreadable, treating as miss")
		return Entry{}, false
	}
	return entry, true
}

// scannedEntry pairs a storage key with its decoded entry for stats and
// eviction scans.
type scannedEntry struct {
	key   string
	cat   Category
	entry Entry
}

// scan enumerates every readable entry across all categories. Unreadable
// entries are skipped; they will be replaced or evicted eventually.
func (s *Store) scan(ctx context.Context) []scannedEntry {
	var items []scannedEntry
	for _, cat := range Categories() {
		keys, err := s.kv.Keys(ctx, cat.Prefix())
		if err != nil {
			s.log.Warn().Err(err).Str("category", cat.String()).Msg("scan failed to enumerate keys")
			continue
		}
		for _, k := range keys {
			raw, ok, err := s.kv.GetItem(ctx, k)
			if err != nil || !ok {
				continue
			}
			entry, err := DecodeEntry(raw)
			if err != nil {
				continue
			}
			items = append(items, scannedEntry{key: k, cat: cat, entry: entry})
		}
	}
	return items
}
