package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/ports"
	"github.com/DanielPopoola/coach-settlement/internal/metrics"
)

type SettlementOutcome string

const (
	OutcomeApplied        SettlementOutcome = "applied"
	OutcomeSkipped        SettlementOutcome = "skipped"
	OutcomeAlreadySettled SettlementOutcome = "already_settled"
)

// SettlementResult describes what a strategy did with a captured record.
type SettlementResult struct {
	Outcome    SettlementOutcome
	Commission domain.Commission
	Plan       *domain.Plan
	Reason     string
}

// SettlementStrategy turns a captured record into bookkeeping for one business type.
type SettlementStrategy interface {
	Settle(ctx context.Context, p *domain.PaymentRecord) (*SettlementResult, error)
}

// SettlementEngine dispatches captured records to the strategy registered for
// their business type.
type SettlementEngine struct {
	mu         sync.RWMutex
	strategies map[domain.BusinessType]SettlementStrategy
	logger     *slog.Logger
}

func NewSettlementEngine(logger *slog.Logger) *SettlementEngine {
	return &SettlementEngine{
		strategies: make(map[domain.BusinessType]SettlementStrategy),
		logger:     logger,
	}
}

// NewDefaultSettlementEngine registers the plan purchase strategy and the
// pending extension points for subscriptions and MLM commissions.
func NewDefaultSettlementEngine(tx ports.TransactionCoordinator, catalog ports.CatalogRepository, logger *slog.Logger) *SettlementEngine {
	e := NewSettlementEngine(logger)
	e.Register(domain.BusinessCoachPlanPurchase, NewCoachPlanPurchaseStrategy(tx, catalog, logger))
	e.Register(domain.BusinessPlatformSubscription, NewNoopStrategy(domain.BusinessPlatformSubscription, logger))
	e.Register(domain.BusinessMLMCommission, NewNoopStrategy(domain.BusinessMLMCommission, logger))
	return e
}

func (e *SettlementEngine) Register(bt domain.BusinessType, s SettlementStrategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[bt] = s
}

// Settle runs the strategy for p.BusinessType. Failures come back as a
// SettlementError; the capture that preceded the call is never undone.
func (e *SettlementEngine) Settle(ctx context.Context, p *domain.PaymentRecord) (*SettlementResult, error) {
	if !p.IsCaptured() {
		return nil, domain.NewInvalidStateError(p.Status, "settle")
	}

	e.mu.RLock()
	strategy, ok := e.strategies[p.BusinessType]
	e.mu.RUnlock()

	if !ok {
		e.logger.Info("no settlement strategy registered, skipping",
			"order_id", p.OrderID,
			"business_type", p.BusinessType,
		)
		metrics.IncSettlement(string(p.BusinessType), string(OutcomeSkipped))
		return &SettlementResult{Outcome: OutcomeSkipped, Reason: "no strategy registered"}, nil
	}

	result, err := strategy.Settle(ctx, p)
	if err != nil {
		metrics.IncSettlement(string(p.BusinessType), "failed")
		return nil, domain.NewSettlementError(p.OrderID, err)
	}

	metrics.IncSettlement(string(p.BusinessType), string(result.Outcome))
	return result, nil
}

// CoachPlanPurchaseStrategy splits plan revenue between coach and platform and
// bumps the plan and product sales counters.
type CoachPlanPurchaseStrategy struct {
	tx      ports.TransactionCoordinator
	catalog ports.CatalogRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewCoachPlanPurchaseStrategy(tx ports.TransactionCoordinator, catalog ports.CatalogRepository, logger *slog.Logger) *CoachPlanPurchaseStrategy {
	return &CoachPlanPurchaseStrategy{
		tx:      tx,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

var errMissingPlan = errors.New("payment record has no plan")

// Settle claims the record and applies the counters in one transaction, so a
// replay after a partial failure either does everything or nothing.
func (s *CoachPlanPurchaseStrategy) Settle(ctx context.Context, p *domain.PaymentRecord) (*SettlementResult, error) {
	if p.PlanID == nil || *p.PlanID == "" {
		return nil, errMissingPlan
	}

	plan, err := s.catalog.FindPlan(ctx, *p.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", *p.PlanID, err)
	}
	if plan.Product == nil {
		return nil, fmt.Errorf("plan %s has no parent product", plan.ID)
	}

	commission := domain.SplitCommission(p.Amount, plan.Product.CommissionSettings)

	claimed := false
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, ledger ports.LedgerRepository, catalog ports.CatalogRepository) error {
		ok, err := ledger.ClaimSettlement(ctx, p.OrderID, commission, s.now())
		if err != nil {
			return fmt.Errorf("failed to write commission: %w", err)
		}
		if !ok {
			return nil
		}
		claimed = true

		if err := catalog.IncrementPlanSales(ctx, plan.ID, domain.PlanSale{
			Revenue:            p.Amount,
			CoachCommission:    commission.CoachCommission,
			PlatformCommission: commission.PlatformCommission,
		}); err != nil {
			return fmt.Errorf("failed to update plan counters: %w", err)
		}

		if err := catalog.IncrementProductSales(ctx, plan.ProductID, p.Amount); err != nil {
			return fmt.Errorf("failed to update product counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !claimed {
		s.logger.Info("settlement already applied", "order_id", p.OrderID)
		return &SettlementResult{Outcome: OutcomeAlreadySettled, Plan: plan}, nil
	}

	s.logger.Info("settlement applied",
		"order_id", p.OrderID,
		"plan_id", plan.ID,
		"product_id", plan.ProductID,
		"platform_commission", commission.PlatformCommission.String(),
		"coach_commission", commission.CoachCommission.String(),
	)

	return &SettlementResult{
		Outcome:    OutcomeApplied,
		Commission: commission,
		Plan:       plan,
	}, nil
}

// NoopStrategy is a registered extension point whose bookkeeping is not built yet.
type NoopStrategy struct {
	businessType domain.BusinessType
	logger       *slog.Logger
}

func NewNoopStrategy(bt domain.BusinessType, logger *slog.Logger) *NoopStrategy {
	return &NoopStrategy{businessType: bt, logger: logger}
}

func (s *NoopStrategy) Settle(ctx context.Context, p *domain.PaymentRecord) (*SettlementResult, error) {
	s.logger.Warn("settlement not implemented for business type, no-op",
		"order_id", p.OrderID,
		"business_type", s.businessType,
	)
	return &SettlementResult{
		Outcome: OutcomeSkipped,
		Reason:  fmt.Sprintf("settlement for %s is not implemented", s.businessType),
	}, nil
}
