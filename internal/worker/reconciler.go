package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/config"
	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/ports"
	"github.com/DanielPopoola/coach-settlement/internal/core/service"
	"github.com/robfig/cron/v3"
)

// Reconciler settles captured records whose in-request settlement never ran,
// for example because the process died between capture and settlement.
type Reconciler struct {
	ledger    ports.LedgerRepository
	settler   service.Settler
	schedule  string
	olderThan time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReconciler(
	ledger ports.LedgerRepository,
	settler service.Settler,
	cfg config.ReconcilerConfig,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		ledger:    ledger,
		settler:   settler,
		schedule:  cfg.Schedule,
		olderThan: cfg.OlderThan,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// Start schedules a reconciliation cycle and blocks until ctx is cancelled.
// Running cycles are allowed to finish before it returns.
func (r *Reconciler) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.schedule, func() { r.RunOnce(ctx) }); err != nil {
		return err
	}

	r.logger.Info("starting background reconciler",
		"schedule", r.schedule,
		"older_than", r.olderThan,
		"batch_size", r.batchSize,
	)
	c.Start()

	<-ctx.Done()
	r.logger.Info("stopping background reconciler")
	<-c.Stop().Done()
	return nil
}

// RunOnce executes a single reconciliation cycle and reports how many records
// were settled.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	pending, err := r.ledger.FindUnsettledCaptures(ctx, r.olderThan, r.batchSize)
	if err != nil {
		r.logger.Error("failed to fetch unsettled captures", "error", err)
		return 0
	}

	if len(pending) == 0 {
		return 0
	}

	r.logger.Info("reconciling unsettled captures", "count", len(pending))

	settled := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return settled
		}
		if r.settle(ctx, p) {
			settled++
		}
	}
	return settled
}

func (r *Reconciler) settle(ctx context.Context, p *domain.PaymentRecord) bool {
	result, err := r.settler.Settle(ctx, p)
	if err != nil {
		r.logger.Error("reconciliation failed for payment",
			"order_id", p.OrderID,
			"business_type", p.BusinessType,
			"error", err,
		)
		return false
	}

	r.logger.Info("reconciled payment",
		"order_id", p.OrderID,
		"outcome", result.Outcome,
	)
	return result.Outcome == service.OutcomeApplied
}
