// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

// Package cache implements the TTL key-value cache the dashboard reads its
// log and health data through.
//
// Entries are serialized with a single codec (payload + write timestamp +
// serialized size) and stored in a kv.Store under per-category key prefixes.
// Expiry is lazy: an expired entry is detected and removed on the read that
// finds it; there is no background sweeper. Aggregate size is kept under a
// global ceiling by evicting the oldest-written entries first after every
// write.
//
// The cache is deliberately never a hard dependency: every storage or codec
// failure is logged and degraded to a miss or no-op, since all cached data
// can be re-fetched from the managed services.
package cache
