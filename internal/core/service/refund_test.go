package service

import (
	"context"
	"testing"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestRefundService_PartialRefundStaysCaptured(t *testing.T) {
	f := newFixture(t)
	seedCapturedOrder(t, f.store, "order_1", "pay_1")

	reason := "customer request"
	result, err := f.refunds.Refund(context.Background(), RefundCommand{
		PaymentID: "pay_1",
		Amount:    amount("100.00"),
		Reason:    &reason,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCaptured, result.Payment.Status)
	assert.True(t, decimal.RequireFromString("100").Equal(result.Refund.Amount))
	assert.Equal(t, domain.RefundProcessed, result.Refund.Status)

	rec, _ := f.store.FindByOrderID(context.Background(), "order_1")
	require.Len(t, rec.Refunds, 1)
	assert.Equal(t, reason, *rec.Refunds[0].Reason)
	assert.Equal(t, domain.StatusCaptured, rec.Status)
}

func TestRefundService_RemainingBalanceFlipsToRefunded(t *testing.T) {
	f := newFixture(t)
	seedCapturedOrder(t, f.store, "order_1", "pay_1")

	_, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1", Amount: amount("333.33")})
	require.NoError(t, err)

	result, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1"})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("665.67").Equal(result.Refund.Amount))
	assert.Equal(t, domain.StatusRefunded, result.Payment.Status)

	rec, _ := f.store.FindByOrderID(context.Background(), "order_1")
	assert.Len(t, rec.Refunds, 2)
	assert.Equal(t, domain.StatusRefunded, rec.Status)
	assert.NotNil(t, rec.RefundedAt)
}

func TestRefundService_DefaultsToFullAmount(t *testing.T) {
	f := newFixture(t)
	seedCapturedOrder(t, f.store, "order_1", "pay_1")

	var sentMinor int64
	f.gateway.CreateRefundFn = func(ctx context.Context, paymentID string, req domain.GatewayRefundRequest) (*domain.GatewayRefund, error) {
		sentMinor = req.Amount
		return &domain.GatewayRefund{ID: "rfnd_1", PaymentID: paymentID, Amount: req.Amount, Status: "processed"}, nil
	}

	result, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1"})

	require.NoError(t, err)
	assert.Equal(t, int64(99900), sentMinor)
	assert.Equal(t, domain.StatusRefunded, result.Payment.Status)
}

func TestRefundService_PendingFullRefundStaysCaptured(t *testing.T) {
	f := newFixture(t)
	seedCapturedOrder(t, f.store, "order_1", "pay_1")
	f.gateway.CreateRefundFn = func(ctx context.Context, paymentID string, req domain.GatewayRefundRequest) (*domain.GatewayRefund, error) {
		return &domain.GatewayRefund{ID: "rfnd_1", PaymentID: paymentID, Amount: req.Amount, Status: "pending"}, nil
	}

	result, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCaptured, result.Payment.Status)

	// the pending refund holds the whole balance
	_, err = f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1", Amount: amount("1.00")})
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))

	rec, err := f.refunds.ApplyRefundEvent(context.Background(), &domain.GatewayRefund{
		ID: "rfnd_1", PaymentID: "pay_1", Amount: 99900, Status: "processed",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, rec.Status)
	assert.Len(t, rec.Refunds, 1)
}

func TestRefundService_Guard(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture)
	}{
		{"created", func(t *testing.T, f *fixture) {
			rec := seedCreatedOrder(t, f.store, "order_1")
			pid := "pay_1"
			rec.PaymentID = &pid
			f.store.AddPayment(rec)
		}},
		{"failed", func(t *testing.T, f *fixture) {
			rec := seedCreatedOrder(t, f.store, "order_1")
			pid := "pay_1"
			rec.PaymentID = &pid
			rec.Status = domain.StatusFailed
			f.store.AddPayment(rec)
		}},
		{"refunded", func(t *testing.T, f *fixture) {
			rec := seedCapturedOrder(t, f.store, "order_1", "pay_1")
			rec.Status = domain.StatusRefunded
			f.store.AddPayment(rec)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)

			_, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1"})

			assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidState))
			rec, _ := f.store.FindByOrderID(context.Background(), "order_1")
			assert.Empty(t, rec.Refunds)
			assert.Equal(t, 0, f.gateway.GetCalls("CreateRefund"))
		})
	}
}

func TestRefundService_GatewayFailureLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	seedCapturedOrder(t, f.store, "order_1", "pay_1")
	f.gateway.CreateRefundFn = func(ctx context.Context, paymentID string, req domain.GatewayRefundRequest) (*domain.GatewayRefund, error) {
		return nil, domain.NewGatewayError("The payment has been fully refunded already", nil)
	}

	_, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1"})

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeGateway))
	rec, _ := f.store.FindByOrderID(context.Background(), "order_1")
	assert.Empty(t, rec.Refunds)
	assert.Equal(t, domain.StatusCaptured, rec.Status)
	assert.Empty(t, f.notifier.Events())
}

func TestRefundService_AmountValidation(t *testing.T) {
	f := newFixture(t)
	seedCapturedOrder(t, f.store, "order_1", "pay_1")

	_, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1", Amount: amount("1000.00")})
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))

	_, err = f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1", Amount: amount("0")})
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))

	_, err = f.refunds.Refund(context.Background(), RefundCommand{})
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))

	assert.Equal(t, 0, f.gateway.GetCalls("CreateRefund"))
}

func TestRefundService_RejectsSubMinorUnitAmounts(t *testing.T) {
	f := newFixture(t)
	seedCapturedOrder(t, f.store, "order_1", "pay_1")

	for _, a := range []string{"0.004", "998.995", "100.001"} {
		_, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1", Amount: amount(a)})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation), a)
	}

	assert.Equal(t, 0, f.gateway.GetCalls("CreateRefund"))
	rec, _ := f.store.FindByOrderID(context.Background(), "order_1")
	assert.Empty(t, rec.Refunds)
}

func TestRefundService_BalanceComparedInMinorUnits(t *testing.T) {
	f := newFixture(t)
	rec := seedCapturedOrder(t, f.store, "order_1", "pay_1")
	// A stored fraction below one paisa is not refundable.
	rec.Amount = decimal.RequireFromString("999.004")
	f.store.AddPayment(rec)

	var sent int64
	f.gateway.CreateRefundFn = func(ctx context.Context, paymentID string, req domain.GatewayRefundRequest) (*domain.GatewayRefund, error) {
		sent = req.Amount
		return &domain.GatewayRefund{ID: "rfnd_1", PaymentID: paymentID, Amount: req.Amount, Status: "processed"}, nil
	}

	_, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1", Amount: amount("999.01")})
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))

	result, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_1"})
	require.NoError(t, err)
	assert.Equal(t, int64(99900), sent)
	assert.True(t, decimal.RequireFromString("999.00").Equal(result.Refund.Amount))
}

func TestRefundService_UnknownPayment(t *testing.T) {
	f := newFixture(t)

	_, err := f.refunds.Refund(context.Background(), RefundCommand{PaymentID: "pay_missing"})

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentNotFound))
}

func TestRefundService_ApplyRefundEvent_AppendsOnce(t *testing.T) {
	f := newFixture(t)
	seedCapturedOrder(t, f.store, "order_1", "pay_1")
	event := &domain.GatewayRefund{ID: "rfnd_9", PaymentID: "pay_1", Amount: 5000, Status: "pending"}

	rec, err := f.refunds.ApplyRefundEvent(context.Background(), event)
	require.NoError(t, err)
	require.Len(t, rec.Refunds, 1)
	assert.True(t, decimal.RequireFromString("50").Equal(rec.Refunds[0].Amount))

	rec, err = f.refunds.ApplyRefundEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Len(t, rec.Refunds, 1)
	assert.Equal(t, domain.StatusCaptured, rec.Status)
	assert.Len(t, f.notifier.Events(), 1)
}

func TestRefundService_ApplyRefundEvent_RejectsUncaptured(t *testing.T) {
	f := newFixture(t)
	rec := seedCreatedOrder(t, f.store, "order_1")
	pid := "pay_1"
	rec.PaymentID = &pid
	f.store.AddPayment(rec)

	_, err := f.refunds.ApplyRefundEvent(context.Background(), &domain.GatewayRefund{ID: "rfnd_1", PaymentID: "pay_1", Amount: 100, Status: "processed"})

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidState))
}
