package ports

import (
	"context"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerRepository is the persistent store of payment records. Every status
// change is a conditional update; the bool results report whether this call
// performed the transition.
type LedgerRepository interface {
	CreatePayment(ctx context.Context, p *domain.PaymentRecord) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.PaymentRecord, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)
	// FindByPaymentIDForUpdate locks the record until the surrounding transaction ends.
	FindByPaymentIDForUpdate(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)

	MarkCaptured(ctx context.Context, orderID string, details domain.CaptureDetails) (bool, error)
	MarkFailed(ctx context.Context, orderID string, details domain.FailureDetails) (bool, error)
	MarkRefunded(ctx context.Context, orderID string, refundedAt time.Time) (bool, error)

	// ClaimSettlement writes the commission block once. A false result means
	// another caller already settled the record.
	ClaimSettlement(ctx context.Context, orderID string, commission domain.Commission, settledAt time.Time) (bool, error)

	AppendRefund(ctx context.Context, orderID string, refund domain.Refund) error
	UpdateRefundStatus(ctx context.Context, refundID string, status domain.RefundStatus) error

	FindUnsettledCaptures(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.PaymentRecord, error)
}

// CatalogRepository reads plans and products and applies settlement counters.
type CatalogRepository interface {
	// FindPlan returns the plan with its parent product populated.
	FindPlan(ctx context.Context, planID string) (*domain.Plan, error)
	IncrementPlanSales(ctx context.Context, planID string, sale domain.PlanSale) error
	IncrementProductSales(ctx context.Context, productID string, revenue decimal.Decimal) error
}

// TransactionCoordinator runs fn with repositories bound to a single transaction.
type TransactionCoordinator interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, ledger LedgerRepository, catalog CatalogRepository) error) error
}
