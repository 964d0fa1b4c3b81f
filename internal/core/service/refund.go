package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/ports"
	"github.com/DanielPopoola/coach-settlement/internal/metrics"
	"github.com/shopspring/decimal"
)

type RefundCommand struct {
	PaymentID string
	// Amount defaults to the remaining refundable balance.
	Amount *decimal.Decimal
	Reason *string
}

type RefundResult struct {
	Refund  domain.Refund
	Payment *domain.PaymentRecord
}

// RefundService appends refunds to captured records. All refund paths lock the
// ledger row, so concurrent refunds of one payment are applied one at a time.
type RefundService struct {
	tx       ports.TransactionCoordinator
	gateway  ports.GatewayPort
	notifier ports.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewRefundService(tx ports.TransactionCoordinator, gateway ports.GatewayPort, notifier ports.Notifier, logger *slog.Logger) *RefundService {
	return &RefundService{
		tx:       tx,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Refund issues a refund through the gateway and records it. If the gateway
// call fails the transaction rolls back and nothing is appended.
func (s *RefundService) Refund(ctx context.Context, cmd RefundCommand) (*RefundResult, error) {
	if cmd.PaymentID == "" {
		return nil, domain.NewMissingFieldError("paymentId")
	}
	if cmd.Amount != nil && !cmd.Amount.IsPositive() {
		return nil, domain.NewValidationError("refund amount must be positive")
	}

	var result *RefundResult
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, ledger ports.LedgerRepository, _ ports.CatalogRepository) error {
		rec, err := ledger.FindByPaymentIDForUpdate(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		if rec.Status != domain.StatusCaptured {
			return domain.NewInvalidStateError(rec.Status, "refund")
		}

		balance, err := domain.FloorMinorUnits(rec.RefundableBalance(), rec.Currency)
		if err != nil {
			return err
		}
		minor := balance
		if cmd.Amount != nil {
			if minor, err = domain.ExactMinorUnits(*cmd.Amount, rec.Currency); err != nil {
				return err
			}
		}
		if minor <= 0 {
			return domain.NewValidationError("no refundable balance remaining")
		}
		if minor > balance {
			return domain.NewValidationError(fmt.Sprintf("refund amount %s exceeds refundable balance %s",
				domain.FromMinorUnits(minor, rec.Currency), domain.FromMinorUnits(balance, rec.Currency)))
		}
		amount := domain.FromMinorUnits(minor, rec.Currency)

		notes := map[string]string{"order_id": rec.OrderID}
		if cmd.Reason != nil {
			notes["reason"] = *cmd.Reason
		}

		gr, err := s.gateway.CreateRefund(ctx, cmd.PaymentID, domain.GatewayRefundRequest{
			Amount: minor,
			Notes:  notes,
		})
		if err != nil {
			return err
		}

		refunded := amount
		if gr.Amount > 0 {
			refunded = domain.FromMinorUnits(gr.Amount, rec.Currency)
		}

		refund := domain.Refund{
			RefundID:  gr.ID,
			Amount:    refunded,
			Status:    domain.ParseRefundStatus(gr.Status),
			Reason:    cmd.Reason,
			CreatedAt: s.now(),
		}

		if err := s.record(ctx, ledger, rec, refund); err != nil {
			return err
		}

		result = &RefundResult{Refund: refund, Payment: rec}
		return nil
	})
	if err != nil {
		metrics.IncRefund("request", "failed")
		return nil, err
	}

	metrics.IncRefund("request", "recorded")
	s.logger.Info("refund recorded",
		"order_id", result.Payment.OrderID,
		"payment_id", cmd.PaymentID,
		"refund_id", result.Refund.RefundID,
		"amount", result.Refund.Amount.String(),
		"payment_status", result.Payment.Status,
	)
	s.notifier.Notify(ctx, domain.NewRefundEvent(result.Payment, result.Refund, s.now()))

	return result, nil
}

// ApplyRefundEvent records a refund reported by the gateway. A refund already on
// the record has its status updated; an unknown one is appended.
func (s *RefundService) ApplyRefundEvent(ctx context.Context, gr *domain.GatewayRefund) (*domain.PaymentRecord, error) {
	if gr.ID == "" || gr.PaymentID == "" {
		return nil, domain.NewValidationError("refund entity is missing id or payment_id")
	}

	var rec *domain.PaymentRecord
	appended := false
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, ledger ports.LedgerRepository, _ ports.CatalogRepository) error {
		var err error
		rec, err = ledger.FindByPaymentIDForUpdate(ctx, gr.PaymentID)
		if err != nil {
			return err
		}

		status := domain.ParseRefundStatus(gr.Status)

		if idx := rec.FindRefund(gr.ID); idx >= 0 {
			if rec.Refunds[idx].Status == status {
				return nil
			}
			if err := ledger.UpdateRefundStatus(ctx, gr.ID, status); err != nil {
				return err
			}
			rec.Refunds[idx].Status = status
			return s.flipIfFullyRefunded(ctx, ledger, rec)
		}

		if rec.Status != domain.StatusCaptured {
			return domain.NewInvalidStateError(rec.Status, "refund")
		}

		refund := domain.Refund{
			RefundID:  gr.ID,
			Amount:    domain.FromMinorUnits(gr.Amount, rec.Currency),
			Status:    status,
			CreatedAt: s.now(),
		}
		if reason, ok := gr.Notes["reason"]; ok {
			refund.Reason = &reason
		}
		appended = true
		return s.record(ctx, ledger, rec, refund)
	})
	if err != nil {
		metrics.IncRefund("webhook", "failed")
		return nil, err
	}

	metrics.IncRefund("webhook", "recorded")
	if appended {
		s.notifier.Notify(ctx, domain.NewRefundEvent(rec, rec.Refunds[len(rec.Refunds)-1], s.now()))
	}
	return rec, nil
}

func (s *RefundService) record(ctx context.Context, ledger ports.LedgerRepository, rec *domain.PaymentRecord, refund domain.Refund) error {
	if err := ledger.AppendRefund(ctx, rec.OrderID, refund); err != nil {
		return fmt.Errorf("failed to append refund: %w", err)
	}
	rec.Refunds = append(rec.Refunds, refund)
	return s.flipIfFullyRefunded(ctx, ledger, rec)
}

// flipIfFullyRefunded moves a captured record to refunded once processed
// refunds cover the captured amount.
func (s *RefundService) flipIfFullyRefunded(ctx context.Context, ledger ports.LedgerRepository, rec *domain.PaymentRecord) error {
	if rec.Status != domain.StatusCaptured || !rec.IsFullyRefunded() {
		return nil
	}

	now := s.now()
	swapped, err := ledger.MarkRefunded(ctx, rec.OrderID, now)
	if err != nil {
		return fmt.Errorf("failed to mark payment refunded: %w", err)
	}
	if swapped {
		rec.Status = domain.StatusRefunded
		rec.RefundedAt = &now
	}
	return nil
}
