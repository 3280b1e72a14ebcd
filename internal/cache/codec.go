// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package cache

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Entry is the wire form of a cached value: the serialized payload plus the
// metadata the store and evictor operate on. Entries are immutable once
// written; a re-cache overwrites the whole entry.
//
// Size always reflects the byte length of Data at write time and is never
// recomputed. Timestamps inside the payload (for example LogEntry.Time)
// are stored as RFC 3339 strings and rehydrated into time.Time values on
// decode; keeping encode and decode in this one place is what guarantees
// every reader and writer agrees on that format.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // ms since epoch, write time
	Size      int64           `json:"size"`      // bytes of Data at write time
}

// EncodeEntry serializes value into an Entry stamped with now and returns
// the entry's own serialized form, ready for the key-value store.
func EncodeEntry(value any, now time.Time) (string, Entry, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", Entry{}, fmt.Errorf("marshal payload: %w", err)
	}

	entry := Entry{
		Data:      payload,
		Timestamp: now.UnixMilli(),
		Size:      int64(len(payload)),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return "", Entry{}, fmt.Errorf("marshal entry: %w", err)
	}
	return string(raw), entry, nil
}

// DecodeEntry parses the stored form of an entry.
func DecodeEntry(raw string) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, fmt.Errorf("unmarshal entry: %w", err)
	}
	return entry, nil
}

// Decode unmarshals the entry's payload into out.
func (e Entry) Decode(out any) error {
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

// Time returns the entry's write time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Age returns how long ago the entry was written, relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Time())
}

// Expired reports whether the entry's age exceeds ttl at now.
func (e Entry) Expired(now time.Time, ttl time.Duration) bool {
	return e.Age(now) > ttl
}
