package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/gfmartins/crimecluster/internal/store"
)

// Sweeper expires jobs stuck in pending or processing. It runs on its own
// ticker, decoupled from the worker's lifetime: the sweep only flips store
// state through a conditional update, it never preempts a running
// computation, and it cannot race a completion write because terminal jobs
// are out of its reach.
type Sweeper struct {
	store       store.Store
	interval    time.Duration
	expireAfter time.Duration
}

// NewSweeper creates a Sweeper.
func NewSweeper(st store.Store, interval, expireAfter time.Duration) *Sweeper {
	return &Sweeper{store: st, interval: interval, expireAfter: expireAfter}
}

// Run blocks, sweeping at the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	slog.Info("expiry sweeper started", "interval", s.interval, "expire_after", s.expireAfter)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.store.ExpireStaleJobs(ctx, s.expireAfter)
			if err != nil {
				slog.Error("expire stale jobs", "error", err)
				continue
			}
			if n > 0 {
				slog.Warn("expired stale jobs", "count", n)
			}
		}
	}
}
