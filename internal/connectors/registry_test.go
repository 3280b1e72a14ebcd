// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package connectors

import (
	"strings"
	"testing"
)

func testRegistry() *Registry {
	return NewRegistry([]Connector{
		{Name: "sonarr", BaseURL: "https://media.local/sonarr/", APIKey: "sonarr-key"},
		{Name: "radarr", BaseURL: "https://media.local/radarr", APIKey: "radarr-key"},
		{Name: "jellyfin", BaseURL: "https://media.local", APIKey: ""},
	})
}

func TestLookupLongestPrefixWins(t *testing.T) {
	r := testRegistry()

	conn, ok := r.Lookup("https://media.local/sonarr/MediaCover/1/poster.jpg")
	if !ok {
		t.Fatal("expected a match")
	}
	if conn.Name != "sonarr" {
		t.Errorf("matched %q, want sonarr (longest prefix)", conn.Name)
	}

	conn, ok = r.Lookup("https://media.local/Items/abc/Images/Primary")
	if !ok || conn.Name != "jellyfin" {
		t.Errorf("matched %v/%v, want jellyfin", conn, ok)
	}

	if _, ok := r.Lookup("https://elsewhere.example/img.png"); ok {
		t.Error("unexpected match for foreign host")
	}
}

func TestAugmentAppendsAPIKey(t *testing.T) {
	r := testRegistry()

	out := r.Augment("https://media.local/radarr/MediaCover/2/fanart.jpg")
	if !strings.Contains(out, "apikey=radarr-key") {
		t.Errorf("credential not appended: %q", out)
	}

	// Existing apikey parameter is left alone.
	pre := "https://media.local/radarr/a.png?apikey=existing"
	if got := r.Augment(pre); got != pre {
		t.Errorf("existing credential replaced: %q", got)
	}

	// No credential configured: unchanged.
	plain := "https://media.local/Items/abc/Images/Primary"
	if got := r.Augment(plain); got != plain {
		t.Errorf("uri changed without credential: %q", got)
	}

	// Unmatched URI: unchanged.
	foreign := "https://elsewhere.example/img.png"
	if got := r.Augment(foreign); got != foreign {
		t.Errorf("foreign uri changed: %q", got)
	}
}

func TestReplaceSwapsConnectors(t *testing.T) {
	r := testRegistry()
	r.Replace([]Connector{{Name: "lidarr", BaseURL: "https://media.local/lidarr", APIKey: "k"}})

	if _, ok := r.Lookup("https://media.local/sonarr/x.png"); ok {
		t.Error("old connector still matched after Replace")
	}
	if conn, ok := r.Lookup("https://media.local/lidarr/x.png"); !ok || conn.Name != "lidarr" {
		t.Errorf("new connector not matched: %v/%v", conn, ok)
	}
	if len(r.List()) != 1 {
		t.Errorf("List() = %d connectors, want 1", len(r.List()))
	}
}
