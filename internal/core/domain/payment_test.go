package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlan(t *testing.T, price string) *domain.Plan {
	t.Helper()
	return &domain.Plan{
		ID:        "plan-1",
		ProductID: "prod-1",
		CoachID:   "coach-1",
		Name:      "12 week strength",
		Price:     decimal.RequireFromString(price),
		Currency:  domain.CurrencyINR,
		Status:    domain.PlanActive,
		IsPublic:  true,
	}
}

func TestNewPlanPurchaseRecord(t *testing.T) {
	now := time.Now()

	t.Run("creates record in created state", func(t *testing.T) {
		rec, err := domain.NewPlanPurchaseRecord("order_1", newPlan(t, "999.00"), domain.Buyer{ID: "buyer-1"}, "rcpt_1", nil, now)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusCreated, rec.Status)
		assert.Equal(t, domain.BusinessCoachPlanPurchase, rec.BusinessType)
		assert.Equal(t, domain.RoleCustomer, rec.BuyerRole)
		assert.Equal(t, "plan-1", *rec.PlanID)
		assert.Equal(t, "coach-1", *rec.CoachID)
		assert.Nil(t, rec.PaymentID)
		assert.Nil(t, rec.Signature)
		assert.True(t, rec.Commission.IsZero())
		assert.True(t, decimal.RequireFromString("999").Equal(rec.Amount))
	})

	t.Run("rejects missing order id", func(t *testing.T) {
		_, err := domain.NewPlanPurchaseRecord("", newPlan(t, "999.00"), domain.Buyer{ID: "buyer-1"}, "rcpt_1", nil, now)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	})

	t.Run("rejects missing buyer", func(t *testing.T) {
		_, err := domain.NewPlanPurchaseRecord("order_1", newPlan(t, "999.00"), domain.Buyer{}, "rcpt_1", nil, now)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	})

	t.Run("rejects zero price", func(t *testing.T) {
		_, err := domain.NewPlanPurchaseRecord("order_1", newPlan(t, "0"), domain.Buyer{ID: "buyer-1"}, "rcpt_1", nil, now)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	})
}

func TestPaymentRecord_StateTransitions(t *testing.T) {
	tests := []struct {
		from    domain.PaymentStatus
		to      domain.PaymentStatus
		allowed bool
	}{
		{domain.StatusCreated, domain.StatusCaptured, true},
		{domain.StatusCreated, domain.StatusFailed, true},
		{domain.StatusCreated, domain.StatusRefunded, false},
		{domain.StatusCaptured, domain.StatusRefunded, true},
		{domain.StatusCaptured, domain.StatusFailed, false},
		{domain.StatusCaptured, domain.StatusCreated, false},
		{domain.StatusFailed, domain.StatusCaptured, false},
		{domain.StatusRefunded, domain.StatusCaptured, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" to "+string(tt.to), func(t *testing.T) {
			rec := &domain.PaymentRecord{Status: tt.from}
			assert.Equal(t, tt.allowed, rec.CanTransitionTo(tt.to))
		})
	}
}

func TestPaymentRecord_RefundTotals(t *testing.T) {
	rec := &domain.PaymentRecord{
		Status: domain.StatusCaptured,
		Amount: decimal.RequireFromString("999.00"),
		Refunds: []domain.Refund{
			{RefundID: "rfnd_1", Amount: decimal.RequireFromString("100.00"), Status: domain.RefundProcessed},
			{RefundID: "rfnd_2", Amount: decimal.RequireFromString("50.00"), Status: domain.RefundPending},
			{RefundID: "rfnd_3", Amount: decimal.RequireFromString("25.00"), Status: domain.RefundFailed},
		},
	}

	assert.True(t, decimal.RequireFromString("100").Equal(rec.ProcessedRefundTotal()))
	assert.True(t, decimal.RequireFromString("150").Equal(rec.CommittedRefundTotal()))
	assert.True(t, decimal.RequireFromString("849").Equal(rec.RefundableBalance()))
	assert.False(t, rec.IsFullyRefunded())
	assert.Equal(t, 1, rec.FindRefund("rfnd_2"))
	assert.Equal(t, -1, rec.FindRefund("rfnd_9"))

	t.Run("processed refunds covering the amount to the cent count as full", func(t *testing.T) {
		full := &domain.PaymentRecord{
			Amount: decimal.RequireFromString("999.00"),
			Refunds: []domain.Refund{
				{Amount: decimal.RequireFromString("333.33"), Status: domain.RefundProcessed},
				{Amount: decimal.RequireFromString("333.33"), Status: domain.RefundProcessed},
				{Amount: decimal.RequireFromString("332.34"), Status: domain.RefundProcessed},
			},
		}
		assert.True(t, full.IsFullyRefunded())
		assert.True(t, full.RefundableBalance().IsZero())
	})
}

func TestNewPurchaseEvent_Channels(t *testing.T) {
	email := "buyer@example.com"
	rec := &domain.PaymentRecord{OrderID: "order_1", BuyerID: "buyer-1", BuyerEmail: &email}

	ev := domain.NewPurchaseEvent(rec, "Plan", time.Now())

	assert.Equal(t, []domain.NotificationChannel{domain.ChannelEmail}, ev.Channels)
	assert.Equal(t, domain.NotificationPurchaseCompleted, ev.Type)
}

func TestNewReceiptID(t *testing.T) {
	id := domain.NewReceiptID()

	assert.LessOrEqual(t, len(id), domain.MaxReceiptLength)
	assert.Contains(t, id, "rcpt_")
	assert.NotEqual(t, id, domain.NewReceiptID())
}
