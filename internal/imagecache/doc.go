// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

// Package imagecache resolves remote artwork URIs (posters, banners, fan
// art) to locally cached files.
//
// A resolve tries, in order: a cached-file lookup over the exact URI and a
// small set of normalization variants, a circuit-breaker-protected prefetch
// download, and a direct fallback download. Every downloaded file gets a
// deterministic content-hashed name, so a later lookup finds it again
// without re-downloading even across process restarts. If everything fails
// the original remote URI is returned so the caller can still attempt a
// live fetch; the resolver never returns an error for network failures.
//
// Concurrent resolves of the same URI coalesce into one in-flight operation,
// and all downloads pass through a fixed-capacity concurrency gate. URIs are
// sanitized (credentials stripped) before any form of them is persisted.
package imagecache
