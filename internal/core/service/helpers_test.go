package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/signature"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	testKeyID         = "rzp_test_key"
	testKeySecret     = "key_secret"
	testWebhookSecret = "webhook_secret"
	testPlanID        = "plan-strength"
	testProductID     = "prod-coaching"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedPlan adds the 999.00 INR plan with a 20/80 platform/coach split.
func seedPlan(t *testing.T, store *MockStore) {
	t.Helper()
	store.AddPlan(&domain.Plan{
		ID:        testPlanID,
		ProductID: testProductID,
		CoachID:   "coach-1",
		Name:      "Strength Plan",
		Price:     decimal.RequireFromString("999.00"),
		Currency:  domain.CurrencyINR,
		Status:    domain.PlanActive,
		IsPublic:  true,
	}, &domain.Product{
		ID:   testProductID,
		Name: "1:1 Coaching",
		CommissionSettings: domain.CommissionSettings{
			PlatformCommissionPercentage: decimal.NewFromInt(20),
			CoachCommissionPercentage:    decimal.NewFromInt(80),
		},
	})
}

func seedCreatedOrder(t *testing.T, store *MockStore, orderID string) *domain.PaymentRecord {
	t.Helper()
	planID, coachID, email := testPlanID, "coach-1", "buyer@example.com"
	rec := &domain.PaymentRecord{
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
		Receipt:      "rcpt_test",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	store.AddPayment(rec)
	return rec
}

// seedCapturedOrder adds a captured, settled record.
func seedCapturedOrder(t *testing.T, store *MockStore, orderID, paymentID string) *domain.PaymentRecord {
	t.Helper()
	rec := seedCreatedOrder(t, store, orderID)
	now := time.Now()
	sig := sign(orderID, paymentID)
	rec.Status = domain.StatusCaptured
	rec.PaymentID = &paymentID
	rec.Signature = &sig
	rec.CapturedAt = &now
	rec.SettledAt = &now
	store.AddPayment(rec)
	return rec
}

func sign(orderID, paymentID string) string {
	return signature.Sign([]byte(orderID+"|"+paymentID), testKeySecret)
}

type fixture struct {
	store    *MockStore
	gateway  *MockGatewayPort
	notifier *MockNotifier
	settler  *CountingSettler
	capture  *CaptureService
	refunds  *RefundService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMockStore()
	seedPlan(t, store)
	gateway := &MockGatewayPort{}
	notifier := &MockNotifier{}
	settler := &CountingSettler{Inner: NewDefaultSettlementEngine(store, store, testLogger())}

	return &fixture{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		settler:  settler,
		capture:  NewCaptureService(store, gateway, settler, notifier, testKeySecret, testLogger()),
		refunds:  NewRefundService(store, gateway, notifier, testLogger()),
	}
}
