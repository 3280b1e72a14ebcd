// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

// Package models defines the domain payloads the cache layer stores on
// behalf of the dashboard: service log entries and health snapshots.
package models

import "time"

// LogEntry is a single log line fetched from a managed service
// (Sonarr, Radarr, Jellyfin, ...). Time round-trips through JSON as an
// RFC 3339 string and is rehydrated into a time.Time on decode.
type LogEntry struct {
	ID      int64     `json:"id"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Logger  string    `json:"logger,omitempty"`
	Time    time.Time `json:"time"`
}

// HealthIssue is one advisory reported by a managed service.
type HealthIssue struct {
	Source  string `json:"source"`
	Type    string `json:"type"`
	Message string `json:"message"`
	WikiURL string `json:"wikiUrl,omitempty"`
}

// HealthSnapshot aggregates the health issues of every configured service
// at a point in time.
type HealthSnapshot struct {
	Issues    []HealthIssue `json:"issues"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// HasIssues reports whether any service reported a problem.
func (s HealthSnapshot) HasIssues() bool {
	return len(s.Issues) > 0
}
