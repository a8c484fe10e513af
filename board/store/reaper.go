package store

import (
	"context"
	"log/slog"
	"time"
)

const DefaultReapInterval = time.Minute

// Sweeper deletes idle rooms and reports what it removed. The session
// handler implements it so sweeps serialize with command handling.
type Sweeper interface {
	ReapIdleRooms() []string
}

// Reaper periodically asks a Sweeper to remove idle rooms.
type Reaper struct {
	sweeper  Sweeper
	interval time.Duration
	log      *slog.Logger
}

// NewReaper creates a reaper ticking every interval.
func NewReaper(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{sweeper: sweeper, interval: interval, log: logger}
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.sweeper.ReapIdleRooms(); len(removed) > 0 {
				r.log.Info("reaper.sweep", "removed", len(removed))
			}
		}
	}
}
