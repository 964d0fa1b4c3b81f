package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/config"
	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	planID    = "plan-strength"
	productID = "prod-coaching"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.ReconcilerConfig {
	return config.ReconcilerConfig{
		Enabled:   true,
		Schedule:  "@every 1h",
		OlderThan: 2 * time.Minute,
		BatchSize: 10,
	}
}

func newStore(t *testing.T) *service.MockStore {
	t.Helper()
	store := service.NewMockStore()
	store.AddPlan(&domain.Plan{
		ID:        planID,
		ProductID: productID,
		CoachID:   "coach-1",
		Name:      "Strength Plan",
		Price:     decimal.RequireFromString("999.00"),
		Currency:  domain.CurrencyINR,
		Status:    domain.PlanActive,
		IsPublic:  true,
	}, &domain.Product{
		ID:   productID,
		Name: "1:1 Coaching",
		CommissionSettings: domain.CommissionSettings{
			PlatformCommissionPercentage: decimal.NewFromInt(20),
			CoachCommissionPercentage:    decimal.NewFromInt(80),
		},
	})
	return store
}

// addCapture seeds a captured record whose settlement has not run.
func addCapture(store *service.MockStore, orderID string, capturedAgo time.Duration) *domain.PaymentRecord {
	plan, paymentID := planID, "pay_"+orderID
	capturedAt := time.Now().Add(-capturedAgo)
	rec := &domain.PaymentRecord{
		ID:           uuid.New(),
		OrderID:      orderID,
		PaymentID:    &paymentID,
		Amount:       decimal.RequireFromString("999.00"),
		Currency:     domain.CurrencyINR,
		Status:       domain.StatusCaptured,
		BusinessType: domain.BusinessCoachPlanPurchase,
		BuyerID:      "buyer-1",
		BuyerRole:    domain.RoleCustomer,
		PlanID:       &plan,
		Receipt:      "rcpt_" + orderID,
		CapturedAt:   &capturedAt,
		CreatedAt:    capturedAt,
		UpdatedAt:    capturedAt,
	}
	store.AddPayment(rec)
	return rec
}

func TestReconciler_SettlesStaleCaptures(t *testing.T) {
	store := newStore(t)
	addCapture(store, "order_stale", 10*time.Minute)

	engine := service.NewDefaultSettlementEngine(store, store, testLogger())
	r := NewReconciler(store, engine, testConfig(), testLogger())

	settled := r.RunOnce(context.Background())
	assert.Equal(t, 1, settled)

	rec, err := store.FindByOrderID(context.Background(), "order_stale")
	require.NoError(t, err)
	require.NotNil(t, rec.SettledAt)
	assert.Equal(t, "799.2", rec.Commission.CoachCommission.String())
	assert.Equal(t, "199.8", rec.Commission.PlatformCommission.String())
	assert.EqualValues(t, 1, store.Plan(planID).TotalSales)

	// A second cycle finds nothing left to settle.
	assert.Equal(t, 0, r.RunOnce(context.Background()))
	assert.EqualValues(t, 1, store.Plan(planID).TotalSales)
}

func TestReconciler_LeavesRecentCapturesToTheRequestPath(t *testing.T) {
	store := newStore(t)
	addCapture(store, "order_fresh", 10*time.Second)

	settler := &service.CountingSettler{}
	r := NewReconciler(store, settler, testConfig(), testLogger())

	assert.Equal(t, 0, r.RunOnce(context.Background()))
	assert.Equal(t, 0, settler.Calls())
}

func TestReconciler_RespectsBatchSize(t *testing.T) {
	store := newStore(t)
	for _, id := range []string{"order_a", "order_b", "order_c"} {
		addCapture(store, id, time.Hour)
	}

	cfg := testConfig()
	cfg.BatchSize = 2
	settler := &service.CountingSettler{}
	r := NewReconciler(store, settler, cfg, testLogger())

	r.RunOnce(context.Background())
	assert.Equal(t, 2, settler.Calls())
}

func TestReconciler_ContinuesAfterSettlementError(t *testing.T) {
	store := newStore(t)
	addCapture(store, "order_a", time.Hour)
	addCapture(store, "order_b", time.Hour)

	settler := &service.CountingSettler{Err: errors.New("db unavailable")}
	r := NewReconciler(store, settler, testConfig(), testLogger())

	assert.Equal(t, 0, r.RunOnce(context.Background()))
	assert.Equal(t, 2, settler.Calls())
}

func TestReconciler_StartRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule = "not a schedule"
	r := NewReconciler(newStore(t), &service.CountingSettler{}, cfg, testLogger())

	assert.Error(t, r.Start(context.Background()))
}

func TestReconciler_StartStopsOnCancel(t *testing.T) {
	r := NewReconciler(newStore(t), &service.CountingSettler{}, testConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop after cancel")
	}
}
