// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package imagecache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/helmsman-media/helmsman/internal/logging"
)

// DefaultSweepInterval is how often the janitor sweeps for stale files.
const DefaultSweepInterval = 6 * time.Hour

// Janitor periodically sweeps the image cache for files past the staleness
// cutoff. Resolves already purge stale files lazily on discovery; the
// janitor only reclaims disk for images nothing is asking for anymore.
//
// Janitor implements suture.Service and is run under the supervisor tree.
type Janitor struct {
	resolver *Resolver
	interval time.Duration
	log      zerolog.Logger
}

// NewJanitor creates a janitor sweeping at the given interval.
// Non-positive intervals fall back to DefaultSweepInterval.
func NewJanitor(resolver *Resolver, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		resolver: resolver,
		interval: interval,
		log:      logging.With().Str("component", "janitor").Logger(),
	}
}

// Serve runs the sweep loop until ctx is canceled.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.log.Info().Dur("interval", j.interval).Msg("janitor started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			purged := j.resolver.Sweep(ctx)
			if purged > 0 {
				j.log.Info().Int("purged", purged).Msg("stale image sweep complete")
			}
		}
	}
}

// String names the service in supervisor logs.
func (j *Janitor) String() string {
	return "imagecache-janitor"
}
