package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/signature"
	"github.com/DanielPopoola/coach-settlement/internal/metrics"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
	EventRefundCreated   = "refund.created"
	EventRefundProcessed = "refund.processed"
	EventRefundFailed    = "refund.failed"
)

// WebhookEvent is the envelope of every gateway callback.
type WebhookEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

type WebhookPayload struct {
	Payment *struct {
		Entity domain.GatewayPayment `json:"entity"`
	} `json:"payment,omitempty"`
	Refund *struct {
		Entity domain.GatewayRefund `json:"entity"`
	} `json:"refund,omitempty"`
}

type PaymentEventHandler interface {
	CaptureFromWebhook(ctx context.Context, payment *domain.GatewayPayment, webhookSignature string) (*domain.PaymentRecord, error)
	FailFromWebhook(ctx context.Context, payment *domain.GatewayPayment) (*domain.PaymentRecord, error)
}

type RefundEventHandler interface {
	ApplyRefundEvent(ctx context.Context, refund *domain.GatewayRefund) (*domain.PaymentRecord, error)
}

// WebhookDispatcher authenticates gateway callbacks and routes them by event type.
type WebhookDispatcher struct {
	payments PaymentEventHandler
	refunds  RefundEventHandler
	secret   string
	logger   *slog.Logger
}

func NewWebhookDispatcher(payments PaymentEventHandler, refunds RefundEventHandler, secret string, logger *slog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		payments: payments,
		refunds:  refunds,
		secret:   secret,
		logger:   logger,
	}
}

// Dispatch verifies rawBody against signatureHeader before parsing it. The only
// error it returns is a signature mismatch; once the sender is authenticated,
// processing failures are logged and the delivery is acknowledged.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, rawBody []byte, signatureHeader string) error {
	ok, err := signature.VerifyWebhook(rawBody, signatureHeader, d.secret)
	if err != nil || !ok {
		d.logger.Warn("rejected webhook with invalid signature")
		metrics.IncSignatureFailure("webhook")
		return domain.NewSignatureMismatchError()
	}

	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		d.logger.Error("failed to decode authenticated webhook", "error", err)
		metrics.IncWebhookEvent("malformed", "failed")
		return nil
	}

	result := "processed"
	if err := d.route(ctx, signatureHeader, &event); err != nil {
		result = "failed"
		d.logger.Error("webhook processing failed",
			"event", event.Event,
			"error", err,
		)
	}
	metrics.IncWebhookEvent(event.Event, result)
	return nil
}

func (d *WebhookDispatcher) route(ctx context.Context, signatureHeader string, event *WebhookEvent) error {
	switch event.Event {
	case EventPaymentCaptured, EventOrderPaid:
		payment, err := paymentEntity(event)
		if err != nil {
			return err
		}
		_, err = d.payments.CaptureFromWebhook(ctx, payment, signatureHeader)
		return err

	case EventPaymentFailed:
		payment, err := paymentEntity(event)
		if err != nil {
			return err
		}
		_, err = d.payments.FailFromWebhook(ctx, payment)
		return err

	case EventRefundCreated, EventRefundProcessed, EventRefundFailed:
		if event.Payload.Refund == nil {
			return domain.NewValidationError(event.Event + " webhook has no refund entity")
		}
		refund := event.Payload.Refund.Entity
		_, err := d.refunds.ApplyRefundEvent(ctx, &refund)
		return err

	default:
		d.logger.Info("acknowledging unhandled webhook event", "event", event.Event)
		return nil
	}
}

func paymentEntity(event *WebhookEvent) (*domain.GatewayPayment, error) {
	if event.Payload.Payment == nil {
		return nil, domain.NewValidationError(event.Event + " webhook has no payment entity")
	}
	payment := event.Payload.Payment.Entity
	return &payment, nil
}
