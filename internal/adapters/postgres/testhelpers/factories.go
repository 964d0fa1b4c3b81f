package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// SeedPlan inserts a product with a 20/80 split and a public 999.00 INR plan.
func (td *TestDatabase) SeedPlan(t *testing.T, planID, productID string) {
	t.Helper()
	ctx := context.Background()

	_, err := td.DB.Pool.Exec(ctx, `
		INSERT INTO products (id, name, platform_commission_percentage, coach_commission_percentage)
		VALUES ($1, '1:1 Coaching', 20, 80)`, productID)
	require.NoError(t, err)

	_, err = td.DB.Pool.Exec(ctx, `
		INSERT INTO plans (id, product_id, coach_id, name, price, currency, status, is_public)
		VALUES ($1, $2, 'coach-1', 'Strength Plan', 999.00, 'INR', 'active', TRUE)`, planID, productID)
	require.NoError(t, err)
}

// NewCreatedRecord builds an unsaved created record for planID.
func NewCreatedRecord(orderID, planID string) *domain.PaymentRecord {
	coachID, email := "coach-1", "buyer@example.com"
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.PaymentRecord{
		ID:           uuid.New(),
		OrderID:      orderID,
		Amount:       decimal.RequireFromString("999.00"),
		Currency:     domain.CurrencyINR,
		Status:       domain.StatusCreated,
		BusinessType: domain.BusinessCoachPlanPurchase,
		BuyerID:      "buyer-1",
		BuyerRole:    domain.RoleCustomer,
		BuyerEmail:   &email,
		PlanID:       &planID,
		CoachID:      &coachID,
		Receipt:      domain.NewReceiptID(),
		Notes:        map[string]string{"correlation_id": uuid.NewString()},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
