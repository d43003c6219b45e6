package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jalrakshak/outbreak-engine/internal/engine"
	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// Runner executes one detection run.
type Runner interface {
	Run(ctx context.Context, trigger *models.ReportTrigger) engine.RunSummary
}

// Dispatcher starts detection runs in the background so submissions return as soon
// as the record is stored. Runs use a detached context and are never cancelled.
type Dispatcher struct {
	runner Runner
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher wraps runner.
func NewDispatcher(logger *slog.Logger, runner Runner) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{runner: runner, logger: logger}
}

// Dispatch schedules a run and reports whether it was accepted. Runs are refused once
// Close has been called.
func (d *Dispatcher) Dispatch(trigger *models.ReportTrigger) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("detection run panicked", slog.Any("panic", r))
			}
		}()

		summary := d.runner.Run(context.Background(), trigger)
		d.logger.Debug("background detection finished",
			slog.Int("created", len(summary.Created)),
			slog.Int("suppressed", summary.Suppressed),
			slog.Int("failed", summary.Failed),
		)
	}()
	return true
}

// Close stops accepting runs and waits for in-flight ones until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for detection runs: %w", ctx.Err())
	}
}
