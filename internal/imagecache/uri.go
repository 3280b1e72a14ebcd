// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package imagecache

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// sensitiveParams are query parameters stripped from URIs before anything
// derived from them is persisted. Matched case-insensitively.
var sensitiveParams = map[string]struct{}{
	"apikey":        {},
	"api_key":       {},
	"token":         {},
	"access_token":  {},
	"auth":          {},
	"authorization": {},
	"x-plex-token":  {},
	"x-emby-token":  {},
}

// SanitizeURI strips credentials from a URI: userinfo and any sensitive
// query parameters. The sanitized form is the only form ever written to
// storage. An unparseable URI is truncated at its query string, which
// over-strips but cannot leak a secret.
func SanitizeURI(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		if i := strings.IndexByte(uri, '?'); i >= 0 {
			return uri[:i]
		}
		return uri
	}

	parsed.User = nil

	query := parsed.Query()
	for name := range query {
		if _, ok := sensitiveParams[strings.ToLower(name)]; ok {
			query.Del(name)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// variant is one normalization of a URI tried during cached-path lookup.
type variant struct {
	Label string
	URI   string
}

// variantsOf returns the lookup candidates for a URI: the exact form, a
// re-encoded form (normalized percent-encoding), a decoded form, and a
// trailing-slash-stripped form. Duplicates are dropped, order preserved,
// so the exact form always wins ties.
func variantsOf(uri string) []variant {
	candidates := []variant{{Label: "exact", URI: uri}}

	if parsed, err := url.Parse(uri); err == nil {
		if encoded := parsed.String(); encoded != "" {
			candidates = append(candidates, variant{Label: "encoded", URI: encoded})
		}
	}
	if decoded, err := url.QueryUnescape(uri); err == nil {
		candidates = append(candidates, variant{Label: "decoded", URI: decoded})
	}
	candidates = append(candidates, variant{Label: "trimmed", URI: strings.TrimRight(uri, "/")})

	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, v := range candidates {
		if _, dup := seen[v.URI]; dup || v.URI == "" {
			continue
		}
		seen[v.URI] = struct{}{}
		out = append(out, v)
	}
	return out
}

// hashURI computes a 32-bit djb2 hash of a URI. The hash keys the
// deterministic cache filename, so it must stay stable across releases.
func hashURI(uri string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(uri); i++ {
		h = h*33 + uint32(uri[i])
	}
	return h
}

// imageExtensions are the file extensions recognized when sniffing a URI.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".avif": {},
}

// defaultExtension is used when a URI carries no recognizable extension.
const defaultExtension = ".jpg"

// extensionOf sniffs the trailing image extension from a URI's path,
// defaulting to a generic image extension.
func extensionOf(uri string) string {
	target := uri
	if parsed, err := url.Parse(uri); err == nil && parsed.Path != "" {
		target = parsed.Path
	}
	ext := strings.ToLower(path.Ext(target))
	if _, ok := imageExtensions[ext]; ok {
		return ext
	}
	return defaultExtension
}

// cacheFileName derives the deterministic local filename for a URI:
// image-<djb2 hash><ext>. Stable across calls and process restarts, which
// is what lets a later lookup find a previously downloaded file without
// touching the network.
func cacheFileName(uri string) string {
	return fmt.Sprintf("image-%08x%s", hashURI(uri), extensionOf(uri))
}
