// Package worker hosts background workers started alongside the HTTP server.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/feeschedule"
)

// ActivationSweeper periodically promotes scheduled fee schedules whose
// effective date has arrived. The sweep is a fallback for municipalities
// that schedule activations for off-hours; activation is also triggered
// lazily on read.
type ActivationSweeper struct {
	schedules *feeschedule.Service
	logger    *zap.Logger

	sweepInterval time.Duration

	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewActivationSweeper creates a sweeper
func NewActivationSweeper(schedules *feeschedule.Service, sweepInterval time.Duration, logger *zap.Logger) *ActivationSweeper {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &ActivationSweeper{
		schedules:     schedules,
		logger:        logger,
		sweepInterval: sweepInterval,
	}
}

// Start starts the sweep loop
func (w *ActivationSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("activation sweeper is already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true

	w.logger.Info("ActivationSweeper started",
		zap.Duration("sweep_interval", w.sweepInterval))

	go w.sweepLoop()

	return nil
}

// Stop stops the sweep loop
func (w *ActivationSweeper) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isRunning {
		return
	}

	w.isRunning = false
	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("ActivationSweeper stopped")
}

// Name returns the worker name for identification
func (w *ActivationSweeper) Name() string {
	return "ActivationSweeper"
}

func (w *ActivationSweeper) sweepLoop() {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	// Sweep once immediately so a restart picks up anything that came due
	// while the service was down
	w.sweep()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ActivationSweeper) sweep() {
	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer cancel()

	activated, err := w.schedules.ActivateDue(ctx, time.Now())
	if err != nil {
		w.logger.Error("Fee schedule activation sweep failed", zap.Error(err))
		return
	}
	if activated > 0 {
		w.logger.Info("Fee schedules activated", zap.Int("count", activated))
	}
}
