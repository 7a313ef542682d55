package service

import (
	"context"
	"sync"
	"time"

	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/meridianpay/ledger-backend/internal/ledger"
	"github.com/rs/zerolog"
)

// OverdueWorker is a background worker that periodically flags past-due
// installments on active loans and refreshes their overdue accumulator.
// Defaulting a loan stays an explicit operator action; the worker only
// keeps the overdue bookkeeping current.
type OverdueWorker struct {
	loanRepo domain.LoanRepository
	engine   *ledger.Engine
	logger   zerolog.Logger
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// OverdueWorkerConfig holds configuration for the overdue worker
type OverdueWorkerConfig struct {
	Interval time.Duration // How often to run the sweep
}

// DefaultOverdueWorkerConfig returns sensible defaults
func DefaultOverdueWorkerConfig() OverdueWorkerConfig {
	return OverdueWorkerConfig{
		Interval: 1 * time.Hour,
	}
}

// NewOverdueWorker creates a new overdue worker
func NewOverdueWorker(loanRepo domain.LoanRepository, engine *ledger.Engine, logger zerolog.Logger, config OverdueWorkerConfig) *OverdueWorker {
	if config.Interval <= 0 {
		config.Interval = 1 * time.Hour
	}

	return &OverdueWorker{
		loanRepo: loanRepo,
		engine:   engine,
		logger:   logger.With().Str("component", "overdue_worker").Logger(),
		interval: config.Interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweep
func (w *OverdueWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Msg("Starting overdue worker")

	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *OverdueWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping overdue worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Overdue worker stopped")
}

// run is the main loop for the worker
func (w *OverdueWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	// Run immediately on startup
	w.SweepOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-w.stopCh:
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs one overdue sweep across all active loans. A version
// conflict on a single loan is skipped: a concurrent payment just won
// the race and the next tick will see the fresh state.
func (w *OverdueWorker) SweepOnce(ctx context.Context) {
	start := time.Now()
	loans, err := w.loanRepo.ListByStatus(ctx, domain.LoanStatusActive)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to list active loans")
		return
	}

	flagged := 0
	skipped := 0
	asOf := time.Now().UTC()
	for _, loan := range loans {
		updated, changed := w.engine.MarkOverdue(loan, asOf)
		if !changed {
			continue
		}

		err := w.loanRepo.UpdateLedger(ctx, updated, nil)
		if err == domain.ErrVersionConflict {
			skipped++
			continue
		}
		if err != nil {
			w.logger.Error().
				Err(err).
				Str("loan_id", loan.ID.String()).
				Msg("Failed to persist overdue sweep")
			continue
		}
		flagged++
	}

	w.logger.Info().
		Int("loans_checked", len(loans)).
		Int("loans_flagged", flagged).
		Int("conflicts_skipped", skipped).
		Dur("duration", time.Since(start)).
		Msg("Overdue sweep complete")
}
