// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/helmsman-media/helmsman/internal/kv"
	"github.com/helmsman-media/helmsman/internal/models"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// faultStore fails every operation, for exercising the degrade-to-miss path.
type faultStore struct{}

var errStorage = errors.New("storage unavailable")

func (faultStore) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errStorage
}
func (faultStore) SetItem(context.Context, string, string) error { return errStorage }
func (faultStore) RemoveItem(context.Context, string) error      { return errStorage }
func (faultStore) Keys(context.Context, string) ([]string, error) {
	return nil, errStorage
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := New(kv.NewMemoryStore(), WithClock(clock.Now))

	entries := []models.LogEntry{
		{ID: 1, Level: "warn", Message: "import failed", Logger: "ImportService", Time: clock.Now().Add(-time.Hour)},
		{ID: 2, Level: "info", Message: "scan complete", Time: clock.Now()},
	}
	store.Put(ctx, CategoryLogs, "sonarr", entries)

	var got []models.LogEntry
	if !store.Get(ctx, CategoryLogs, "sonarr", &got) {
		t.Fatal("expected hit immediately after put")
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Message != "import failed" || got[1].ID != 2 {
		t.Errorf("payload mismatch: %+v", got)
	}
	// Timestamps inside the payload must rehydrate as time.Time.
	if !got[0].Time.Equal(entries[0].Time) {
		t.Errorf("time not rehydrated: got %v, want %v", got[0].Time, entries[0].Time)
	}
}

func TestLazyExpiryRemovesEntry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	backend := kv.NewMemoryStore()
	store := New(backend, WithClock(clock.Now))

	store.Put(ctx, CategoryHealth, "all", models.HealthSnapshot{CheckedAt: clock.Now()})

	clock.Advance(DefaultHealthTTL + time.Second)

	var snap models.HealthSnapshot
	if store.Get(ctx, CategoryHealth, "all", &snap) {
		t.Fatal("expected miss after TTL elapsed")
	}

	// Lazy-expiry law: the read that detects expiry also deletes the entry.
	keys, err := backend.Keys(ctx, CategoryHealth.Prefix())
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expired entry still stored: %v", keys)
	}
}

func TestFreshEntryLeftUntouched(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	backend := kv.NewMemoryStore()
	store := New(backend, WithClock(clock.Now))

	store.Put(ctx, CategoryLogs, "radarr", []models.LogEntry{{ID: 7, Level: "info", Time: clock.Now()}})
	clock.Advance(DefaultLogsTTL - time.Minute)

	var got []models.LogEntry
	if !store.Get(ctx, CategoryLogs, "radarr", &got) {
		t.Fatal("expected hit within TTL")
	}
	if backend.Len() != 1 {
		t.Errorf("fresh entry removed or duplicated: %d items", backend.Len())
	}
}

func TestTimestampIgnoresTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := New(kv.NewMemoryStore(), WithClock(clock.Now))

	written := clock.Now()
	store.Put(ctx, CategoryHealth, "all", models.HealthSnapshot{CheckedAt: written})

	clock.Advance(DefaultHealthTTL * 3)

	ts, ok := store.Timestamp(ctx, CategoryHealth, "all")
	if !ok {
		t.Fatal("expected timestamp for expired-but-present entry")
	}
	if !ts.Equal(written.Truncate(time.Millisecond)) {
		t.Errorf("timestamp = %v, want %v", ts, written)
	}
}

func TestEndToEndHealthTTLScenario(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	backend := kv.NewMemoryStore()
	store := New(backend, WithClock(clock.Now))

	store.Put(ctx, CategoryHealth, "all", models.HealthSnapshot{
		Issues:    []models.HealthIssue{{Source: "sonarr", Type: "warning", Message: "indexer unavailable"}},
		CheckedAt: clock.Now(),
	})

	// 4 minutes in: still fresh.
	clock.Advance(4 * time.Minute)
	var snap models.HealthSnapshot
	if !store.Get(ctx, CategoryHealth, "all", &snap) {
		t.Fatal("expected hit at 4 minutes")
	}
	if !snap.HasIssues() {
		t.Error("payload lost issues")
	}

	// 6 minutes in: expired, removed.
	clock.Advance(2 * time.Minute)
	if store.Get(ctx, CategoryHealth, "all", &snap) {
		t.Fatal("expected miss at 6 minutes")
	}
	keys, _ := backend.Keys(ctx, "")
	if len(keys) != 0 {
		t.Errorf("key still present after expiry: %v", keys)
	}
}

func TestClearAndClearAll(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := New(backend)

	store.Put(ctx, CategoryLogs, "sonarr", []models.LogEntry{{ID: 1}})
	store.Put(ctx, CategoryLogs, "radarr", []models.LogEntry{{ID: 2}})
	store.Put(ctx, CategoryHealth, "all", models.HealthSnapshot{})

	store.Clear(ctx, CategoryLogs)
	if keys, _ := backend.Keys(ctx, CategoryLogs.Prefix()); len(keys) != 0 {
		t.Errorf("logs not cleared: %v", keys)
	}
	if keys, _ := backend.Keys(ctx, CategoryHealth.Prefix()); len(keys) != 1 {
		t.Errorf("health category affected by logs clear: %v", keys)
	}

	store.ClearAll(ctx)
	if backend.Len() != 0 {
		t.Errorf("ClearAll left %d items", backend.Len())
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := New(kv.NewMemoryStore(), WithClock(clock.Now))

	store.Put(ctx, CategoryLogs, "sonarr", []models.LogEntry{{ID: 1, Message: "a"}})
	clock.Advance(time.Minute)
	store.Put(ctx, CategoryHealth, "all", models.HealthSnapshot{CheckedAt: clock.Now()})

	stats := store.Stats(ctx)
	if stats.Counts["logs"] != 1 || stats.Counts["health"] != 1 {
		t.Errorf("counts = %v", stats.Counts)
	}
	if stats.TotalSize <= 0 {
		t.Errorf("TotalSize = %d, want > 0", stats.TotalSize)
	}
	if !stats.Oldest.Before(stats.Newest) {
		t.Errorf("oldest %v not before newest %v", stats.Oldest, stats.Newest)
	}
}

func TestStorageFailuresDegradeToMiss(t *testing.T) {
	ctx := context.Background()
	store := New(faultStore{})

	// Put must not panic or propagate.
	store.Put(ctx, CategoryLogs, "sonarr", []models.LogEntry{{ID: 1}})

	var got []models.LogEntry
	if store.Get(ctx, CategoryLogs, "sonarr", &got) {
		t.Error("expected miss from failing backend")
	}
	if _, ok := store.Timestamp(ctx, CategoryLogs, "sonarr"); ok {
		t.Error("expected no timestamp from failing backend")
	}

	// Clear and Stats are best-effort no-ops.
	store.Clear(ctx, CategoryLogs)
	stats := store.Stats(ctx)
	if stats.TotalSize != 0 {
		t.Errorf("stats from failing backend = %+v", stats)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := New(backend)

	if err := backend.SetItem(ctx, CategoryLogs.Key("sonarr"), "{not json"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	var got []models.LogEntry
	if store.Get(ctx, CategoryLogs, "sonarr", &got) {
		t.Error("expected miss for corrupt entry")
	}

	// Replaced wholesale on the next write.
	store.Put(ctx, CategoryLogs, "sonarr", []models.LogEntry{{ID: 9}})
	if !store.Get(ctx, CategoryLogs, "sonarr", &got) || got[0].ID != 9 {
		t.Errorf("entry not replaced after corruption: %+v", got)
	}
}

func TestLastWriteWinsOnSameKey(t *testing.T) {
	ctx := context.Background()
	store := New(kv.NewMemoryStore())

	store.Put(ctx, CategoryLogs, "sonarr", []models.LogEntry{{ID: 1}})
	store.Put(ctx, CategoryLogs, "sonarr", []models.LogEntry{{ID: 2}})

	var got []models.LogEntry
	if !store.Get(ctx, CategoryLogs, "sonarr", &got) {
		t.Fatal("expected hit")
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("got %+v, want the second write", got)
	}
}
