// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package cache

import "time"

// Category is a closed enumeration of the cacheable data kinds. Each
// category owns a key namespace and a default TTL; all categories share the
// global size ceiling.
type Category int

const (
	// CategoryLogs caches per-service log pages.
	CategoryLogs Category = iota

	// CategoryHealth caches the aggregated health snapshot.
	CategoryHealth
)

// Default TTLs per category.
const (
	DefaultLogsTTL   = 15 * time.Minute
	DefaultHealthTTL = 5 * time.Minute
)

// CategoryFromString maps a category name back to its Category.
func CategoryFromString(name string) (Category, bool) {
	switch name {
	case "logs":
		return CategoryLogs, true
	case "health":
		return CategoryHealth, true
	default:
		return 0, false
	}
}

// Categories returns every known category, in declaration order.
func Categories() []Category {
	return []Category{CategoryLogs, CategoryHealth}
}

// String returns the category name used in logs and metric labels.
func (c Category) String() string {
	switch c {
	case CategoryLogs:
		return "logs"
	case CategoryHealth:
		return "health"
	default:
		return "unknown"
	}
}

// Prefix returns the key namespace the category's entries live under.
func (c Category) Prefix() string {
	switch c {
	case CategoryLogs:
		return "cache:logs:"
	case CategoryHealth:
		return "cache:health:"
	default:
		return "cache:unknown:"
	}
}

// DefaultTTL returns the category's built-in time-to-live.
func (c Category) DefaultTTL() time.Duration {
	switch c {
	case CategoryLogs:
		return DefaultLogsTTL
	case CategoryHealth:
		return DefaultHealthTTL
	default:
		return DefaultHealthTTL
	}
}

// Key builds the full storage key for a logical cache key in this category.
func (c Category) Key(key string) string {
	return c.Prefix() + key
}
