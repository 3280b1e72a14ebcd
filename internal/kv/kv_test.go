// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package kv

import (
	"context"
	"sort"
	"testing"
)

// storeUnderTest exercises the Store contract shared by all implementations.
func storeUnderTest(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// Missing key is a clean miss, not an error.
	_, ok, err := store.GetItem(ctx, "absent")
	if err != nil {
		t.Fatalf("GetItem(absent) error: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}

	// Round-trip.
	if err := store.SetItem(ctx, "cache:logs:sonarr", "v1"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	value, ok, err := store.GetItem(ctx, "cache:logs:sonarr")
	if err != nil || !ok {
		t.Fatalf("GetItem after set: value=%q ok=%v err=%v", value, ok, err)
	}
	if value != "v1" {
		t.Errorf("got %q, want v1", value)
	}

	// Overwrite.
	if err := store.SetItem(ctx, "cache:logs:sonarr", "v2"); err != nil {
		t.Fatalf("SetItem overwrite: %v", err)
	}
	value, _, _ = store.GetItem(ctx, "cache:logs:sonarr")
	if value != "v2" {
		t.Errorf("after overwrite got %q, want v2", value)
	}

	// Prefix enumeration.
	if err := store.SetItem(ctx, "cache:logs:radarr", "v3"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if err := store.SetItem(ctx, "cache:health:all", "v4"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	keys, err := store.Keys(ctx, "cache:logs:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(keys)
	want := []string{"cache:logs:radarr", "cache:logs:sonarr"}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	// Removal is idempotent.
	if err := store.RemoveItem(ctx, "cache:logs:sonarr"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if err := store.RemoveItem(ctx, "cache:logs:sonarr"); err != nil {
		t.Errorf("RemoveItem of absent key: %v", err)
	}
	_, ok, _ = store.GetItem(ctx, "cache:logs:sonarr")
	if ok {
		t.Error("key still present after removal")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	storeUnderTest(t, NewMemoryStore())
}

func TestBadgerStoreContract(t *testing.T) {
	store, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	storeUnderTest(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	if err := store.SetItem(ctx, "ImageCacheService:trackedUris", `["https://host/a.png"]`); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.GetItem(ctx, "ImageCacheService:trackedUris")
	if err != nil || !ok {
		t.Fatalf("GetItem after reopen: ok=%v err=%v", ok, err)
	}
	if value != `["https://host/a.png"]` {
		t.Errorf("unexpected value after reopen: %q", value)
	}
}
