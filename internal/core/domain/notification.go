package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelWhatsApp NotificationChannel = "whatsapp"
)

type NotificationType string

const (
	NotificationPurchaseCompleted NotificationType = "purchase.completed"
	NotificationRefundRecorded    NotificationType = "refund.recorded"
)

// NotificationEvent is handed to the notification queue after a ledger mutation commits.
type NotificationEvent struct {
	ID         uuid.UUID             `json:"id"`
	Type       NotificationType      `json:"type"`
	Channels   []NotificationChannel `json:"channels"`
	OrderID    string                `json:"orderId"`
	PaymentID  string                `json:"paymentId,omitempty"`
	PlanID     string                `json:"planId,omitempty"`
	PlanName   string                `json:"planName,omitempty"`
	CoachID    string                `json:"coachId,omitempty"`
	BuyerID    string                `json:"buyerId"`
	BuyerEmail string                `json:"buyerEmail,omitempty"`
	BuyerPhone string                `json:"buyerPhone,omitempty"`
	Amount     decimal.Decimal       `json:"amount"`
	Currency   Currency              `json:"currency"`
	OccurredAt time.Time             `json:"occurredAt"`
}

// NewPurchaseEvent builds the event sent to the buyer once a capture commits.
// Channels are chosen from the contact details present on the record.
func NewPurchaseEvent(p *PaymentRecord, planName string, now time.Time) NotificationEvent {
	ev := NotificationEvent{
		ID:         uuid.New(),
		Type:       NotificationPurchaseCompleted,
		OrderID:    p.OrderID,
		PlanName:   planName,
		BuyerID:    p.BuyerID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		OccurredAt: now,
	}
	if p.PaymentID != nil {
		ev.PaymentID = *p.PaymentID
	}
	if p.PlanID != nil {
		ev.PlanID = *p.PlanID
	}
	if p.CoachID != nil {
		ev.CoachID = *p.CoachID
	}
	if p.BuyerEmail != nil && *p.BuyerEmail != "" {
		ev.BuyerEmail = *p.BuyerEmail
		ev.Channels = append(ev.Channels, ChannelEmail)
	}
	if p.BuyerPhone != nil && *p.BuyerPhone != "" {
		ev.BuyerPhone = *p.BuyerPhone
		ev.Channels = append(ev.Channels, ChannelWhatsApp)
	}
	return ev
}

// NewRefundEvent builds the event sent to the buyer when a refund is recorded.
func NewRefundEvent(p *PaymentRecord, refund Refund, now time.Time) NotificationEvent {
	ev := NewPurchaseEvent(p, "", now)
	ev.ID = uuid.New()
	ev.Type = NotificationRefundRecorded
	ev.Amount = refund.Amount
	return ev
}
