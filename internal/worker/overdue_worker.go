package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/internal/observability/metrics"
)

// OverdueWorker periodically counts active and overdue loans and reflects
// them in the gauges. It never changes loan status; an overdue loan stays
// ACTIVE until the book comes back.
type OverdueWorker struct {
	loanRepository domain.LoanRepository
	logger         *slog.Logger
	interval       time.Duration
}

// NewOverdueWorker creates a new overdue scanner.
func NewOverdueWorker(loanRepo domain.LoanRepository, logger *slog.Logger, interval time.Duration) *OverdueWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &OverdueWorker{
		loanRepository: loanRepo,
		logger:         logger,
		interval:       interval,
	}
}

// Start begins the scan loop, returning when ctx is cancelled.
func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("overdue scanner started", slog.Duration("interval", w.interval))

	// Prime the gauges immediately instead of waiting a full interval.
	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue scanner stopped")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *OverdueWorker) scan(ctx context.Context) {
	scanCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	active, err := w.loanRepository.CountActive(scanCtx)
	if err != nil {
		w.logger.Error("failed to count active loans", slog.String("error", err.Error()))
		return
	}
	metrics.SetActiveLoans(active)

	overdue, err := w.loanRepository.CountOverdue(scanCtx, time.Now())
	if err != nil {
		w.logger.Error("failed to count overdue loans", slog.String("error", err.Error()))
		return
	}
	metrics.SetOverdueLoans(overdue)

	if overdue > 0 {
		w.logger.Warn("overdue loans outstanding",
			slog.Int64("overdue", overdue),
			slog.Int64("active", active),
		)
	} else {
		w.logger.Debug("overdue scan complete", slog.Int64("active", active))
	}
}
