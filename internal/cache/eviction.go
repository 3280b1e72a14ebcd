// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package cache

import (
	"context"
	"sort"

	"github.com/helmsman-media/helmsman/internal/metrics"
)

// enforceBudget keeps the aggregate entry size at or under the ceiling by
// removing the globally oldest-written entries first, irrespective of
// category. This is a write-order policy, not LRU-by-access: entries are
// immutable once written, so write time is the only ordering that exists.
//
// The newest entry is never removed by its own write's pass, so a single
// entry larger than the entire ceiling leaves the store transiently over
// budget; it becomes an ordinary eviction candidate on the next write and
// the store converges. Per-key delete failures are logged and the sweep
// continues with the remaining candidates.
func (s *Store) enforceBudget(ctx context.Context) {
	items := s.scan(ctx)

	var total int64
	for _, item := range items {
		total += item.entry.Size
	}
	if total <= s.ceiling {
		return
	}

	// Oldest first.
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.Timestamp < items[j].entry.Timestamp
	})

	evicted := 0
	for _, item := range items[:len(items)-1] {
		if total <= s.ceiling {
			break
		}
		if err := s.kv.RemoveItem(ctx, item.key); err != nil {
			s.log.Warn().Err(err).Str("key", item.key).Msg("eviction failed, skipping key")
			continue
		}
		total -= item.entry.Size
		evicted++
	}

	metrics.CacheEvictions.Add(float64(evicted))
	metrics.CacheSizeBytes.Set(float64(total))
	s.log.Info().Int("evicted", evicted).Int64("size", total).
		Int64("ceiling", s.ceiling).Msg("cache size budget enforced")
}
