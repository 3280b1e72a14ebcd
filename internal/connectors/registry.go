// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

// Package connectors tracks the managed service endpoints (Sonarr, Radarr,
// Jellyfin, ...) the dashboard talks to. The image resolver consults the
// registry to decide whether a URI belongs to a service that requires an
// API key before attempting network access.
package connectors

import (
	"net/url"
	"strings"
	"sync"
)

// Connector is one configured service endpoint.
type Connector struct {
	// Name identifies the service in logs ("sonarr", "radarr", ...).
	Name string

	// BaseURL is the root URL all of the service's resources live under.
	BaseURL string

	// APIKey is the service credential, appended as a query parameter when
	// fetching protected resources. Never persisted as part of a URI.
	APIKey string
}

// Registry is a read-mostly set of connectors. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns []Connector
}

// NewRegistry creates a registry from the configured connectors.
func NewRegistry(conns []Connector) *Registry {
	r := &Registry{conns: make([]Connector, len(conns))}
	copy(r.conns, conns)
	return r
}

// List returns a snapshot of all connectors.
func (r *Registry) List() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connector, len(r.conns))
	copy(out, r.conns)
	return out
}

// Replace swaps the registered connectors, for config reloads.
func (r *Registry) Replace(conns []Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = make([]Connector, len(conns))
	copy(r.conns, conns)
}

// Lookup returns the connector whose BaseURL is the longest prefix of uri.
func (r *Registry) Lookup(uri string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Connector
	found := false
	for _, c := range r.conns {
		base := strings.TrimRight(c.BaseURL, "/")
		if base == "" || !strings.HasPrefix(uri, base) {
			continue
		}
		if !found || len(base) > len(strings.TrimRight(best.BaseURL, "/")) {
			best = c
			found = true
		}
	}
	return best, found
}

// Augment appends the matching connector's API key to uri as an apikey
// query parameter. The returned URI is for network use only and must be
// sanitized before any form of it is persisted. URIs with no matching
// connector, no credential, or that cannot be parsed are returned unchanged.
func (r *Registry) Augment(uri string) string {
	conn, ok := r.Lookup(uri)
	if !ok || conn.APIKey == "" {
		return uri
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	query := parsed.Query()
	if query.Get("apikey") != "" {
		return uri
	}
	query.Set("apikey", conn.APIKey)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
