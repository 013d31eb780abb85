package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepFunc performs one sweep and returns how many entries it evicted.
type SweepFunc func(ctx context.Context) int

// Janitor runs a sweep on a fixed interval for the lifetime of the process.
type Janitor struct {
	cron     *cron.Cron
	sweep    SweepFunc
	interval time.Duration
	logger   *slog.Logger
}

// NewJanitor schedules sweep every interval. Nothing runs until Start.
func NewJanitor(sweep SweepFunc, interval time.Duration, logger *slog.Logger) (*Janitor, error) {
	if sweep == nil {
		return nil, fmt.Errorf("janitor: sweep func is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("janitor: interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cl := cronLogger{logger: logger}
	j := &Janitor{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweep:    sweep,
		interval: interval,
		logger:   logger,
	}
	if _, err := j.cron.AddFunc("@every "+interval.String(), j.run); err != nil {
		return nil, fmt.Errorf("janitor: schedule sweep: %w", err)
	}
	return j, nil
}

// Start begins the background schedule.
func (j *Janitor) Start() {
	j.logger.Info("artifact janitor started", "interval", j.interval)
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		j.logger.Info("artifact janitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single sweep synchronously.
func (j *Janitor) RunOnce() int {
	return j.sweep(context.Background())
}

func (j *Janitor) run() {
	if n := j.RunOnce(); n > 0 {
		j.logger.Debug("background sweep evicted artifacts", "count", n)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
