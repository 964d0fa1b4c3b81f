package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/ports"
	"github.com/DanielPopoola/coach-settlement/internal/core/signature"
	"github.com/DanielPopoola/coach-settlement/internal/metrics"
)

// CaptureSource names what triggered a capture.
type CaptureSource string

const (
	SourceVerify  CaptureSource = "verify"
	SourceWebhook CaptureSource = "webhook"
)

// Settler is the settlement step run by whoever wins the capture.
type Settler interface {
	Settle(ctx context.Context, p *domain.PaymentRecord) (*SettlementResult, error)
}

type VerifyPaymentCommand struct {
	OrderID   string
	PaymentID string
	Signature string
}

// CaptureService owns the created → captured and created → failed transitions.
type CaptureService struct {
	ledger    ports.LedgerRepository
	gateway   ports.GatewayPort
	settler   Settler
	notifier  ports.Notifier
	keySecret string
	logger    *slog.Logger
	now       func() time.Time
}

func NewCaptureService(
	ledger ports.LedgerRepository,
	gateway ports.GatewayPort,
	settler Settler,
	notifier ports.Notifier,
	keySecret string,
	logger *slog.Logger,
) *CaptureService {
	return &CaptureService{
		ledger:    ledger,
		gateway:   gateway,
		settler:   settler,
		notifier:  notifier,
		keySecret: keySecret,
		logger:    logger,
		now:       time.Now,
	}
}

// VerifyPayment handles the client's post-checkout callback. A repeated call
// with the same payment id returns the captured record without settling again.
func (s *CaptureService) VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) (*domain.PaymentRecord, error) {
	if err := validateVerify(cmd); err != nil {
		return nil, err
	}

	rec, err := s.ledger.FindByOrderID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	ok, err := signature.VerifyOrderPayment(cmd.OrderID, cmd.PaymentID, cmd.Signature, s.keySecret)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if !ok {
		s.logger.Warn("payment signature mismatch", "order_id", cmd.OrderID)
		metrics.IncSignatureFailure("order_payment")
		metrics.IncCapture(string(SourceVerify), "rejected")
		return nil, domain.NewSignatureMismatchError()
	}

	done, err := s.checkCapturable(rec, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if done {
		metrics.IncCapture(string(SourceVerify), "already_captured")
		return rec, nil
	}

	return s.capture(ctx, rec, domain.CaptureDetails{
		PaymentID:  cmd.PaymentID,
		Signature:  cmd.Signature,
		Method:     s.lookupMethod(ctx, cmd.OrderID, cmd.PaymentID),
		CapturedAt: s.now(),
	}, SourceVerify)
}

// CaptureFromWebhook applies an authenticated payment.captured event. The
// webhook signature header is stored as the capture signature.
func (s *CaptureService) CaptureFromWebhook(ctx context.Context, payment *domain.GatewayPayment, webhookSignature string) (*domain.PaymentRecord, error) {
	if payment.OrderID == "" || payment.ID == "" {
		return nil, domain.NewValidationError("webhook payment entity is missing order_id or id")
	}

	rec, err := s.ledger.FindByOrderID(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}

	done, err := s.checkCapturable(rec, payment.ID)
	if err != nil {
		return nil, err
	}
	if done {
		metrics.IncCapture(string(SourceWebhook), "already_captured")
		return rec, nil
	}

	return s.capture(ctx, rec, domain.CaptureDetails{
		PaymentID:  payment.ID,
		Signature:  webhookSignature,
		Method:     payment.PaymentMethod(),
		CapturedAt: s.now(),
	}, SourceWebhook)
}

// FailFromWebhook applies an authenticated payment.failed event. Records that
// already left the created state are left alone.
func (s *CaptureService) FailFromWebhook(ctx context.Context, payment *domain.GatewayPayment) (*domain.PaymentRecord, error) {
	if payment.OrderID == "" {
		return nil, domain.NewValidationError("webhook payment entity is missing order_id")
	}

	details := domain.FailureDetails{
		ErrorCode:        deref(payment.ErrorCode),
		ErrorDescription: deref(payment.ErrorDescription),
		FailedAt:         s.now(),
	}

	swapped, err := s.ledger.MarkFailed(ctx, payment.OrderID, details)
	if err != nil {
		return nil, fmt.Errorf("failed to mark payment failed: %w", err)
	}

	rec, err := s.ledger.FindByOrderID(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}

	if !swapped {
		s.logger.Info("ignoring payment failure for record not in created state",
			"order_id", payment.OrderID,
			"status", rec.Status,
		)
		return rec, nil
	}

	s.logger.Info("payment marked failed",
		"order_id", payment.OrderID,
		"payment_id", payment.ID,
		"error_code", details.ErrorCode,
	)
	return rec, nil
}

// checkCapturable returns done=true when the record was already captured with
// this payment id.
func (s *CaptureService) checkCapturable(rec *domain.PaymentRecord, paymentID string) (bool, error) {
	switch {
	case rec.IsCaptured() && rec.HasPaymentID(paymentID):
		return true, nil
	case rec.Status != domain.StatusCreated:
		return false, domain.NewInvalidStateError(rec.Status, "capture")
	default:
		return false, nil
	}
}

func (s *CaptureService) capture(ctx context.Context, rec *domain.PaymentRecord, details domain.CaptureDetails, source CaptureSource) (*domain.PaymentRecord, error) {
	swapped, err := s.ledger.MarkCaptured(ctx, rec.OrderID, details)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeDuplicatePaymentID) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to mark payment captured: %w", err)
	}

	current, err := s.ledger.FindByOrderID(ctx, rec.OrderID)
	if err != nil {
		return nil, err
	}

	if !swapped {
		if current.IsCaptured() && current.HasPaymentID(details.PaymentID) {
			s.logger.Info("payment already captured", "order_id", rec.OrderID, "source", source)
			metrics.IncCapture(string(source), "already_captured")
			return current, nil
		}
		metrics.IncCapture(string(source), "rejected")
		return nil, domain.NewInvalidStateError(current.Status, "capture")
	}

	s.logger.Info("payment captured",
		"order_id", current.OrderID,
		"payment_id", details.PaymentID,
		"source", source,
	)
	metrics.IncCapture(string(source), "captured")

	result, err := s.settler.Settle(ctx, current)
	if err != nil {
		s.logger.Error("settlement failed after capture",
			"order_id", current.OrderID,
			"payment_id", details.PaymentID,
			"error", err,
		)
	} else if result.Outcome == OutcomeApplied {
		if settled, err := s.ledger.FindByOrderID(ctx, rec.OrderID); err == nil {
			current = settled
		}
	}

	planName := ""
	if result != nil && result.Plan != nil {
		planName = result.Plan.Name
	}
	s.notifier.Notify(ctx, domain.NewPurchaseEvent(current, planName, s.now()))

	return current, nil
}

// lookupMethod enriches the ledger with instrument metadata. The signature is
// authoritative, so a failed lookup only costs the metadata.
func (s *CaptureService) lookupMethod(ctx context.Context, orderID, paymentID string) domain.PaymentMethod {
	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		s.logger.Warn("failed to fetch payment details, capturing without method metadata",
			"order_id", orderID,
			"payment_id", paymentID,
			"error", err,
		)
		return domain.PaymentMethod{}
	}
	return payment.PaymentMethod()
}

func validateVerify(cmd VerifyPaymentCommand) error {
	switch {
	case cmd.OrderID == "":
		return domain.NewMissingFieldError("providerOrderId")
	case cmd.PaymentID == "":
		return domain.NewMissingFieldError("providerPaymentId")
	case cmd.Signature == "":
		return domain.NewMissingFieldError("signature")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
