// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package imagecache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/helmsman-media/helmsman/internal/metrics"
)

// DefaultGateCapacity bounds how many downloads may run at once.
const DefaultGateCapacity = 3

// Gate is a counting semaphore that bounds concurrent network-bound resolve
// operations. Waiters are served in FIFO order. Every acquire must be paired
// with a release on both success and failure paths; callers use
// defer gate.Release() immediately after a successful Acquire.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
}

// NewGate creates a gate admitting up to capacity concurrent holders.
// Non-positive capacities fall back to DefaultGateCapacity.
func NewGate(capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultGateCapacity
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire download slot: %w", err)
	}
	metrics.GateWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// TryAcquire claims a slot without blocking.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release frees a slot claimed by Acquire or TryAcquire.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Capacity returns the configured slot count.
func (g *Gate) Capacity() int {
	return g.capacity
}
