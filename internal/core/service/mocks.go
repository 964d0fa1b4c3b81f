package service

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockStore is an in-memory ledger and catalog. WithTransaction runs one
// transaction at a time and restores the previous state when fn fails.
type MockStore struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	payments map[string]*domain.PaymentRecord
	plans    map[string]*domain.Plan
	products map[string]*domain.Product
	calls    map[string]int

	CreatePaymentFn         func(ctx context.Context, p *domain.PaymentRecord) error
	MarkCapturedFn          func(ctx context.Context, orderID string, details domain.CaptureDetails) (bool, error)
	ClaimSettlementFn       func(ctx context.Context, orderID string, commission domain.Commission, settledAt time.Time) (bool, error)
	AppendRefundFn          func(ctx context.Context, orderID string, refund domain.Refund) error
	FindPlanFn              func(ctx context.Context, planID string) (*domain.Plan, error)
	IncrementPlanSalesFn    func(ctx context.Context, planID string, sale domain.PlanSale) error
	IncrementProductSalesFn func(ctx context.Context, productID string, revenue decimal.Decimal) error
}

func NewMockStore() *MockStore {
	return &MockStore{
		payments: make(map[string]*domain.PaymentRecord),
		plans:    make(map[string]*domain.Plan),
		products: make(map[string]*domain.Product),
		calls:    make(map[string]int),
	}
}

func (m *MockStore) inc(method string) {
	m.calls[method]++
}

// GetCalls returns how many times method ran without an Fn override.
func (m *MockStore) GetCalls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

// AddPlan seeds a plan and its parent product.
func (m *MockStore) AddPlan(plan *domain.Plan, product *domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.ID] = clonePlan(plan)
	m.products[product.ID] = cloneProduct(product)
}

// AddPayment seeds a ledger record.
func (m *MockStore) AddPayment(p *domain.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.OrderID] = clonePayment(p)
}

func (m *MockStore) Plan(id string) *domain.Plan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clonePlan(m.plans[id])
}

func (m *MockStore) Product(id string) *domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneProduct(m.products[id])
}

func (m *MockStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, ledger ports.LedgerRepository, catalog ports.CatalogRepository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(ctx, m, m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *MockStore) CreatePayment(ctx context.Context, p *domain.PaymentRecord) error {
	if m.CreatePaymentFn != nil {
		return m.CreatePaymentFn(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inc("CreatePayment")
	if _, ok := m.payments[p.OrderID]; ok {
		return fmt.Errorf("payment for order %s already exists", p.OrderID)
	}
	m.payments[p.OrderID] = clonePayment(p)
	return nil
}

func (m *MockStore) FindByOrderID(ctx context.Context, orderID string) (*domain.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[orderID]; ok {
		return clonePayment(p), nil
	}
	return nil, domain.NewPaymentNotFoundError(orderID)
}

func (m *MockStore) FindByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p := m.byPaymentID(paymentID); p != nil {
		return clonePayment(p), nil
	}
	return nil, domain.NewPaymentNotFoundError(paymentID)
}

func (m *MockStore) FindByPaymentIDForUpdate(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	return m.FindByPaymentID(ctx, paymentID)
}

func (m *MockStore) MarkCaptured(ctx context.Context, orderID string, details domain.CaptureDetails) (bool, error) {
	if m.MarkCapturedFn != nil {
		return m.MarkCapturedFn(ctx, orderID, details)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inc("MarkCaptured")

	p, ok := m.payments[orderID]
	if !ok {
		return false, domain.NewPaymentNotFoundError(orderID)
	}
	if p.Status != domain.StatusCreated {
		return false, nil
	}
	if other := m.byPaymentID(details.PaymentID); other != nil && other.OrderID != orderID {
		return false, domain.NewDuplicatePaymentIDError(details.PaymentID)
	}

	paymentID, sig, at := details.PaymentID, details.Signature, details.CapturedAt
	p.Status = domain.StatusCaptured
	p.PaymentID = &paymentID
	p.Signature = &sig
	p.Method = details.Method
	p.CapturedAt = &at
	p.UpdatedAt = at
	return true, nil
}

func (m *MockStore) MarkFailed(ctx context.Context, orderID string, details domain.FailureDetails) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inc("MarkFailed")

	p, ok := m.payments[orderID]
	if !ok {
		return false, domain.NewPaymentNotFoundError(orderID)
	}
	if p.Status != domain.StatusCreated {
		return false, nil
	}
	code, desc, at := details.ErrorCode, details.ErrorDescription, details.FailedAt
	p.Status = domain.StatusFailed
	p.ErrorCode = &code
	p.ErrorDescription = &desc
	p.FailedAt = &at
	return true, nil
}

func (m *MockStore) MarkRefunded(ctx context.Context, orderID string, refundedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inc("MarkRefunded")

	p, ok := m.payments[orderID]
	if !ok {
		return false, domain.NewPaymentNotFoundError(orderID)
	}
	if p.Status != domain.StatusCaptured {
		return false, nil
	}
	p.Status = domain.StatusRefunded
	p.RefundedAt = &refundedAt
	return true, nil
}

func (m *MockStore) ClaimSettlement(ctx context.Context, orderID string, commission domain.Commission, settledAt time.Time) (bool, error) {
	if m.ClaimSettlementFn != nil {
		return m.ClaimSettlementFn(ctx, orderID, commission, settledAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inc("ClaimSettlement")

	p, ok := m.payments[orderID]
	if !ok {
		return false, domain.NewPaymentNotFoundError(orderID)
	}
	if !p.NeedsSettlement() {
		return false, nil
	}
	p.Commission = commission
	p.SettledAt = &settledAt
	return true, nil
}

func (m *MockStore) AppendRefund(ctx context.Context, orderID string, refund domain.Refund) error {
	if m.AppendRefundFn != nil {
		return m.AppendRefundFn(ctx, orderID, refund)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inc("AppendRefund")

	p, ok := m.payments[orderID]
	if !ok {
		return domain.NewPaymentNotFoundError(orderID)
	}
	if p.FindRefund(refund.RefundID) >= 0 {
		return fmt.Errorf("refund %s already recorded", refund.RefundID)
	}
	p.Refunds = append(p.Refunds, refund)
	return nil
}

func (m *MockStore) UpdateRefundStatus(ctx context.Context, refundID string, status domain.RefundStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inc("UpdateRefundStatus")

	for _, p := range m.payments {
		if idx := p.FindRefund(refundID); idx >= 0 {
			p.Refunds[idx].Status = status
			return nil
		}
	}
	return fmt.Errorf("refund %s not found", refundID)
}

func (m *MockStore) FindUnsettledCaptures(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-olderThan)
	var out []*domain.PaymentRecord
	for _, p := range m.payments {
		if len(out) >= limit {
			break
		}
		if p.BusinessType != domain.BusinessCoachPlanPurchase || !p.NeedsSettlement() {
			continue
		}
		if p.CapturedAt != nil && p.CapturedAt.Before(cutoff) {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

func (m *MockStore) FindPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	if m.FindPlanFn != nil {
		return m.FindPlanFn(ctx, planID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	plan, ok := m.plans[planID]
	if !ok {
		return nil, domain.NewPlanNotFoundError(planID)
	}
	out := clonePlan(plan)
	out.Product = cloneProduct(m.products[plan.ProductID])
	return out, nil
}

func (m *MockStore) IncrementPlanSales(ctx context.Context, planID string, sale domain.PlanSale) error {
	if m.IncrementPlanSalesFn != nil {
		return m.IncrementPlanSalesFn(ctx, planID, sale)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inc("IncrementPlanSales")

	plan, ok := m.plans[planID]
	if !ok {
		return domain.NewPlanNotFoundError(planID)
	}
	plan.TotalSales++
	plan.TotalRevenue = plan.TotalRevenue.Add(sale.Revenue)
	plan.CommissionEarned = plan.CommissionEarned.Add(sale.CoachCommission)
	plan.PlatformCommissionPaid = plan.PlatformCommissionPaid.Add(sale.PlatformCommission)
	return nil
}

func (m *MockStore) IncrementProductSales(ctx context.Context, productID string, revenue decimal.Decimal) error {
	if m.IncrementProductSalesFn != nil {
		return m.IncrementProductSalesFn(ctx, productID, revenue)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inc("IncrementProductSales")

	product, ok := m.products[productID]
	if !ok {
		return fmt.Errorf("product %s not found", productID)
	}
	product.TotalSales++
	product.TotalRevenue = product.TotalRevenue.Add(revenue)
	return nil
}

func (m *MockStore) byPaymentID(paymentID string) *domain.PaymentRecord {
	for _, p := range m.payments {
		if p.HasPaymentID(paymentID) {
			return p
		}
	}
	return nil
}

type storeSnapshot struct {
	payments map[string]*domain.PaymentRecord
	plans    map[string]*domain.Plan
	products map[string]*domain.Product
}

func (m *MockStore) snapshot() storeSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := storeSnapshot{
		payments: make(map[string]*domain.PaymentRecord, len(m.payments)),
		plans:    make(map[string]*domain.Plan, len(m.plans)),
		products: make(map[string]*domain.Product, len(m.products)),
	}
	for k, v := range m.payments {
		s.payments[k] = clonePayment(v)
	}
	for k, v := range m.plans {
		s.plans[k] = clonePlan(v)
	}
	for k, v := range m.products {
		s.products[k] = cloneProduct(v)
	}
	return s
}

func (m *MockStore) restore(s storeSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = s.payments
	m.plans = s.plans
	m.products = s.products
}

func clonePayment(p *domain.PaymentRecord) *domain.PaymentRecord {
	if p == nil {
		return nil
	}
	out := *p
	out.Refunds = append([]domain.Refund(nil), p.Refunds...)
	if p.Notes != nil {
		out.Notes = maps.Clone(p.Notes)
	}
	return &out
}

func clonePlan(p *domain.Plan) *domain.Plan {
	if p == nil {
		return nil
	}
	out := *p
	out.Product = nil
	return &out
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// MockGatewayPort
type MockGatewayPort struct {
	mu             sync.Mutex
	calls          map[string]int
	Delay          time.Duration
	CreateOrderFn  func(ctx context.Context, req domain.GatewayOrderRequest) (*domain.GatewayOrder, error)
	FetchPaymentFn func(ctx context.Context, paymentID string) (*domain.GatewayPayment, error)
	CreateRefundFn func(ctx context.Context, paymentID string, req domain.GatewayRefundRequest) (*domain.GatewayRefund, error)
}

func (m *MockGatewayPort) inc(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

func (m *MockGatewayPort) GetCalls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockGatewayPort) CreateOrder(ctx context.Context, req domain.GatewayOrderRequest) (*domain.GatewayOrder, error) {
	m.inc("CreateOrder")
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.CreateOrderFn != nil {
		return m.CreateOrderFn(ctx, req)
	}
	return &domain.GatewayOrder{
		ID:        "order_" + uuid.NewString()[:14],
		Amount:    req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		CreatedAt: time.Now().Unix(),
	}, nil
}

func (m *MockGatewayPort) FetchPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error) {
	m.inc("FetchPayment")
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.FetchPaymentFn != nil {
		return m.FetchPaymentFn(ctx, paymentID)
	}
	method, vpa := "upi", "buyer@okbank"
	return &domain.GatewayPayment{
		ID:     paymentID,
		Status: "captured",
		Method: &method,
		VPA:    &vpa,
	}, nil
}

func (m *MockGatewayPort) CreateRefund(ctx context.Context, paymentID string, req domain.GatewayRefundRequest) (*domain.GatewayRefund, error) {
	m.inc("CreateRefund")
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.CreateRefundFn != nil {
		return m.CreateRefundFn(ctx, paymentID, req)
	}
	return &domain.GatewayRefund{
		ID:        "rfnd_" + uuid.NewString()[:14],
		PaymentID: paymentID,
		Amount:    req.Amount,
		Status:    string(domain.RefundProcessed),
		Notes:     req.Notes,
		CreatedAt: time.Now().Unix(),
	}, nil
}

// MockNotifier records every event handed to it.
type MockNotifier struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
}

func (m *MockNotifier) Notify(ctx context.Context, event domain.NotificationEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockNotifier) Events() []domain.NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.NotificationEvent(nil), m.events...)
}

// CountingSettler counts how often settlement is invoked and delegates to Inner when set.
type CountingSettler struct {
	Inner Settler
	Err   error
	calls atomic.Int32
}

func (c *CountingSettler) Settle(ctx context.Context, p *domain.PaymentRecord) (*SettlementResult, error) {
	c.calls.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Inner != nil {
		return c.Inner.Settle(ctx, p)
	}
	return &SettlementResult{Outcome: OutcomeApplied}, nil
}

func (c *CountingSettler) Calls() int {
	return int(c.calls.Load())
}
