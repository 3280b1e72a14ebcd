// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

// Package kv abstracts the on-device persistent key-value storage the cache
// layer is built on. The cache treats the store as a dependency: values are
// opaque strings, keys are flat, and enumeration is by prefix.
//
// Two implementations are provided: BadgerStore for durable on-disk storage
// and MemoryStore for tests and ephemeral deployments.
package kv

import "context"

// Store is the persistence contract consumed by the cache layer.
//
// GetItem reports (value, true, nil) when the key exists and ("", false, nil)
// when it does not; the error return is reserved for storage-level failures.
// Implementations must be safe for concurrent use.
type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
