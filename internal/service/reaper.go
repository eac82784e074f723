package service

import (
	"context"
	"log"
	"time"
)

// DefaultReaperInterval is how often the background sweep runs.
const DefaultReaperInterval = time.Hour

// Reaper periodically sweeps the record store as a safety net independent of
// any live request.
type Reaper struct {
	retention *RetentionService
	interval  time.Duration
}

func NewReaper(retention *RetentionService, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	return &Reaper{retention: retention, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// The immediate sweep means a restart never extends retention by a full
// interval. Sweep errors are logged, never fatal.
func (r *Reaper) Run(ctx context.Context) {
	log.Printf("[Reaper] starting, interval %s", r.interval)
	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Reaper] stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	result, err := r.retention.Sweep(ctx)
	if err != nil {
		log.Printf("[Reaper] sweep failed: %v", err)
		return
	}
	log.Printf("[Reaper] sweep complete: %d deleted, %d user(s) affected", result.Deleted, result.UsersAffected)
}
