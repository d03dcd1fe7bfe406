package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"bc-history/internal/barchart"
)

// RunFlow runs job once, or on every tick of cfg.Schedule until ctx is done.
//
// In scheduled mode an aborted run (e.g. quota exhausted) ends only that run;
// the next tick starts a fresh one.
func RunFlow(ctx context.Context, cfg *Config, job func(context.Context) error) error {
	if cfg.Schedule == "" {
		return job(ctx)
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	id, err := c.AddFunc(cfg.Schedule, func() {
		slog.Info("scheduled run starting")
		if err := job(ctx); err != nil {
			if barchart.IsFatal(err) {
				slog.Error("scheduled run aborted, waiting for next tick", "error", err)
				return
			}
			slog.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register schedule %q: %w", cfg.Schedule, err)
	}

	c.Start()
	slog.Info("scheduler started", "schedule", cfg.Schedule, "next_run", c.Entry(id).Next.Format("2006-01-02 15:04:05"))
	<-ctx.Done()
	slog.Info("stopping scheduler")
	<-c.Stop().Done()
	return nil
}
