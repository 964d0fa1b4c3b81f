// Package domain defines the ledger, catalog and money types of the settlement core.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current state of a payment record in its lifecycle
type PaymentStatus string

const (
	StatusCreated  PaymentStatus = "created"
	StatusCaptured PaymentStatus = "captured"
	StatusFailed   PaymentStatus = "failed"
	StatusRefunded PaymentStatus = "refunded"
)

// BusinessType selects the settlement strategy that runs after capture.
type BusinessType string

const (
	BusinessCoachPlanPurchase    BusinessType = "coach_plan_purchase"
	BusinessPlatformSubscription BusinessType = "platform_subscription"
	BusinessMLMCommission        BusinessType = "mlm_commission"
	BusinessCoachPayout          BusinessType = "coach_payout"
	BusinessRefund               BusinessType = "refund"
	BusinessOther                BusinessType = "other"
)

type BuyerRole string

const (
	RoleCoach    BuyerRole = "coach"
	RoleCustomer BuyerRole = "customer"
	RoleAdmin    BuyerRole = "admin"
	RoleSystem   BuyerRole = "system"
)

// PaymentRecord is the ledger entry for one order attempt.
type PaymentRecord struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      string          `json:"orderId"`
	PaymentID    *string         `json:"paymentId,omitempty"`
	Signature    *string         `json:"-"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     Currency        `json:"currency"`
	Status       PaymentStatus   `json:"status"`
	BusinessType BusinessType    `json:"businessType"`

	BuyerID    string    `json:"buyerId"`
	BuyerRole  BuyerRole `json:"buyerRole"`
	BuyerEmail *string   `json:"buyerEmail,omitempty"`
	BuyerPhone *string   `json:"buyerPhone,omitempty"`
	PlanID     *string   `json:"planId,omitempty"`
	CoachID    *string   `json:"coachId,omitempty"`

	Receipt string            `json:"receipt"`
	Notes   map[string]string `json:"notes,omitempty"`

	Method PaymentMethod `json:"method"`

	Commission Commission `json:"commission"`
	SettledAt  *time.Time `json:"settledAt,omitempty"`

	Refunds []Refund `json:"refunds"`

	ErrorCode        *string `json:"errorCode,omitempty"`
	ErrorDescription *string `json:"errorDescription,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	FailedAt   *time.Time `json:"failedAt,omitempty"`
	RefundedAt *time.Time `json:"refundedAt,omitempty"`
}

// PaymentMethod is the instrument metadata reported by the gateway.
type PaymentMethod struct {
	Method *string `json:"paymentMethod,omitempty"`
	Bank   *string `json:"bank,omitempty"`
	Wallet *string `json:"wallet,omitempty"`
	VPA    *string `json:"vpa,omitempty"`
}

// CaptureDetails is everything the created → captured transition writes.
type CaptureDetails struct {
	PaymentID  string
	Signature  string
	Method     PaymentMethod
	CapturedAt time.Time
}

// FailureDetails is everything the created → failed transition writes.
type FailureDetails struct {
	ErrorCode        string
	ErrorDescription string
	FailedAt         time.Time
}

// CanTransitionTo validates whether a record can move from its current status to target.
//
// Valid transitions are:
//   - created → captured, failed
//   - captured → refunded
func (p *PaymentRecord) CanTransitionTo(target PaymentStatus) bool {
	switch p.Status {
	case StatusCreated:
		return target == StatusCaptured || target == StatusFailed
	case StatusCaptured:
		return target == StatusRefunded
	default:
		return false
	}
}

func (p *PaymentRecord) IsTerminal() bool {
	return p.Status == StatusFailed || p.Status == StatusRefunded
}

// IsCaptured reports whether the gateway has confirmed the money, including
// records that were later refunded.
func (p *PaymentRecord) IsCaptured() bool {
	return p.Status == StatusCaptured || p.Status == StatusRefunded
}

// NeedsSettlement reports whether the settlement engine still owes work on this record.
func (p *PaymentRecord) NeedsSettlement() bool {
	return p.IsCaptured() && p.SettledAt == nil
}

// HasPaymentID reports whether paymentID is the one recorded at capture.
func (p *PaymentRecord) HasPaymentID(paymentID string) bool {
	return p.PaymentID != nil && *p.PaymentID == paymentID
}

// Buyer identifies who is paying for an order.
type Buyer struct {
	ID    string
	Role  BuyerRole
	Email *string
	Phone *string
}

// NewPlanPurchaseRecord builds the created-state ledger entry for a confirmed gateway order.
func NewPlanPurchaseRecord(orderID string, plan *Plan, buyer Buyer, receipt string, notes map[string]string, now time.Time) (*PaymentRecord, error) {
	if orderID == "" {
		return nil, NewMissingFieldError("orderId")
	}
	if buyer.ID == "" {
		return nil, NewMissingFieldError("buyerId")
	}
	if !plan.Currency.IsValid() {
		return nil, NewValidationError("unsupported plan currency: " + string(plan.Currency))
	}
	if !plan.Price.IsPositive() {
		return nil, NewValidationError("plan price must be positive")
	}
	role := buyer.Role
	if role == "" {
		role = RoleCustomer
	}

	planID := plan.ID
	coachID := plan.CoachID
	return &PaymentRecord{
		ID:           uuid.New(),
		OrderID:      orderID,
		Amount:       plan.Price,
		Currency:     plan.Currency,
		Status:       StatusCreated,
		BusinessType: BusinessCoachPlanPurchase,
		BuyerID:      buyer.ID,
		BuyerRole:    role,
		BuyerEmail:   buyer.Email,
		BuyerPhone:   buyer.Phone,
		PlanID:       &planID,
		CoachID:      &coachID,
		Receipt:      receipt,
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
