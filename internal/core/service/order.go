package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/ports"
	"github.com/DanielPopoola/coach-settlement/internal/metrics"
	"github.com/google/uuid"
)

type CreateOrderCommand struct {
	PlanID     string
	BuyerID    string
	BuyerRole  domain.BuyerRole
	BuyerEmail *string
	BuyerPhone *string
}

type OrderResult struct {
	Payment     *domain.PaymentRecord
	Order       *domain.GatewayOrder
	Plan        *domain.Plan
	AmountMinor int64
	KeyID       string
}

// OrderService opens gateway orders for plan purchases.
type OrderService struct {
	ledger  ports.LedgerRepository
	catalog ports.CatalogRepository
	gateway ports.GatewayPort
	keyID   string
	logger  *slog.Logger
	now     func() time.Time
}

func NewOrderService(
	ledger ports.LedgerRepository,
	catalog ports.CatalogRepository,
	gateway ports.GatewayPort,
	keyID string,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		ledger:  ledger,
		catalog: catalog,
		gateway: gateway,
		keyID:   keyID,
		logger:  logger,
		now:     time.Now,
	}
}

// CreatePlanOrder creates the gateway order first and only then writes the
// created ledger row, so a failed or timed-out gateway call leaves no row behind.
func (s *OrderService) CreatePlanOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderResult, error) {
	if cmd.PlanID == "" {
		return nil, domain.NewMissingFieldError("planId")
	}
	if cmd.BuyerID == "" {
		return nil, domain.NewMissingFieldError("buyerId")
	}

	plan, err := s.catalog.FindPlan(ctx, cmd.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsPurchasable() {
		return nil, domain.NewPlanNotFoundError(cmd.PlanID)
	}

	amountMinor, err := domain.ToMinorUnits(plan.Price, plan.Currency)
	if err != nil {
		return nil, err
	}
	if amountMinor <= 0 {
		return nil, domain.NewValidationError("plan price converts to a non-positive amount")
	}

	correlationID := uuid.New().String()
	receipt := domain.NewReceiptID()
	notes := map[string]string{
		"correlation_id": correlationID,
		"business_type":  string(domain.BusinessCoachPlanPurchase),
		"plan_id":        plan.ID,
		"coach_id":       plan.CoachID,
		"buyer_id":       cmd.BuyerID,
	}

	order, err := s.gateway.CreateOrder(ctx, domain.GatewayOrderRequest{
		Amount:   amountMinor,
		Currency: plan.Currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		metrics.IncOrder("gateway_error")
		s.logger.Error("failed to create gateway order",
			"plan_id", plan.ID,
			"correlation_id", correlationID,
			"error", err,
		)
		return nil, err
	}

	rec, err := domain.NewPlanPurchaseRecord(order.ID, plan, domain.Buyer{
		ID:    cmd.BuyerID,
		Role:  cmd.BuyerRole,
		Email: cmd.BuyerEmail,
		Phone: cmd.BuyerPhone,
	}, receipt, notes, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.ledger.CreatePayment(ctx, rec); err != nil {
		metrics.IncOrder("ledger_error")
		return nil, err
	}

	metrics.IncOrder("created")
	s.logger.Info("order created",
		"order_id", order.ID,
		"plan_id", plan.ID,
		"amount_minor", amountMinor,
		"correlation_id", correlationID,
	)

	return &OrderResult{
		Payment:     rec,
		Order:       order,
		Plan:        plan,
		AmountMinor: amountMinor,
		KeyID:       s.keyID,
	}, nil
}
