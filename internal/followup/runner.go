package followup

import (
	"context"
	"log/slog"
	"time"
)

// Runner calls a Scheduler on a fixed interval until its context ends.
type Runner struct {
	scheduler *Scheduler
	interval  time.Duration
	log       *slog.Logger
}

func NewRunner(s *Scheduler, interval time.Duration, log *slog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{scheduler: s, interval: interval, log: log}
}

// Run blocks. Failed passes are logged and retried on the next tick.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("follow-up runner started", "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("follow-up runner stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// RunOnce logs its own failures.
	_, _ = r.scheduler.RunOnce(ctx)
}
