package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const paymentIDIndex = "payments_payment_id_key"

const paymentColumns = `
	id, order_id, payment_id, signature, amount, currency, status, business_type,
	buyer_id, buyer_role, buyer_email, buyer_phone, plan_id, coach_id,
	receipt, notes, method, bank, wallet, vpa,
	commission_amount, platform_commission, coach_commission, settled_at,
	error_code, error_description,
	created_at, updated_at, captured_at, failed_at, refunded_at`

type LedgerRepository struct {
	q Executor
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

func (r *LedgerRepository) CreatePayment(ctx context.Context, p *domain.PaymentRecord) error {
	query := `INSERT INTO payments (
				id, order_id, payment_id, signature, amount, currency, status, business_type,
				buyer_id, buyer_role, buyer_email, buyer_phone, plan_id, coach_id,
				receipt, notes, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	notes := p.Notes
	if notes == nil {
		notes = map[string]string{}
	}

	_, err := r.q.Exec(ctx, query,
		p.ID,
		p.OrderID,
		p.PaymentID,
		p.Signature,
		p.Amount,
		p.Currency,
		p.Status,
		p.BusinessType,
		p.BuyerID,
		p.BuyerRole,
		p.BuyerEmail,
		p.BuyerPhone,
		p.PlanID,
		p.CoachID,
		p.Receipt,
		notes,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err, paymentIDIndex) && p.PaymentID != nil {
			return domain.NewDuplicatePaymentIDError(*p.PaymentID)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *LedgerRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	return r.findOne(ctx, orderID, query, orderID)
}

func (r *LedgerRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1`
	return r.findOne(ctx, paymentID, query, paymentID)
}

// FindByPaymentIDForUpdate must run inside a transaction to hold the lock.
func (r *LedgerRepository) FindByPaymentIDForUpdate(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1 FOR UPDATE`
	return r.findOne(ctx, paymentID, query, paymentID)
}

func (r *LedgerRepository) MarkCaptured(ctx context.Context, orderID string, d domain.CaptureDetails) (bool, error) {
	query := `UPDATE payments SET status = 'captured',
				payment_id = $2, signature = $3,
				method = $4, bank = $5, wallet = $6, vpa = $7,
				captured_at = $8, updated_at = $8
			  WHERE order_id = $1 AND status = 'created'`

	tag, err := r.q.Exec(ctx, query,
		orderID,
		d.PaymentID,
		d.Signature,
		d.Method.Method,
		d.Method.Bank,
		d.Method.Wallet,
		d.Method.VPA,
		d.CapturedAt,
	)
	if err != nil {
		if IsUniqueViolation(err, paymentIDIndex) {
			return false, domain.NewDuplicatePaymentIDError(d.PaymentID)
		}
		return false, fmt.Errorf("failed to mark payment captured: %w", err)
	}
	return r.swapped(ctx, orderID, tag.RowsAffected())
}

func (r *LedgerRepository) MarkFailed(ctx context.Context, orderID string, d domain.FailureDetails) (bool, error) {
	query := `UPDATE payments SET status = 'failed',
				error_code = $2, error_description = $3,
				failed_at = $4, updated_at = $4
			  WHERE order_id = $1 AND status = 'created'`

	tag, err := r.q.Exec(ctx, query, orderID, d.ErrorCode, d.ErrorDescription, d.FailedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return r.swapped(ctx, orderID, tag.RowsAffected())
}

func (r *LedgerRepository) MarkRefunded(ctx context.Context, orderID string, refundedAt time.Time) (bool, error) {
	query := `UPDATE payments SET status = 'refunded', refunded_at = $2, updated_at = $2
			  WHERE order_id = $1 AND status = 'captured'`

	tag, err := r.q.Exec(ctx, query, orderID, refundedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment refunded: %w", err)
	}
	return r.swapped(ctx, orderID, tag.RowsAffected())
}

func (r *LedgerRepository) ClaimSettlement(ctx context.Context, orderID string, c domain.Commission, settledAt time.Time) (bool, error) {
	query := `UPDATE payments SET
				commission_amount = $2, platform_commission = $3, coach_commission = $4,
				settled_at = $5, updated_at = NOW()
			  WHERE order_id = $1
				AND status IN ('captured', 'refunded')
				AND settled_at IS NULL`

	tag, err := r.q.Exec(ctx, query, orderID, c.CommissionAmount, c.PlatformCommission, c.CoachCommission, settledAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim settlement: %w", err)
	}
	return r.swapped(ctx, orderID, tag.RowsAffected())
}

func (r *LedgerRepository) AppendRefund(ctx context.Context, orderID string, refund domain.Refund) error {
	query := `INSERT INTO payment_refunds (refund_id, payment_record_id, amount, status, reason, created_at)
			  SELECT $2, id, $3, $4, $5, $6 FROM payments WHERE order_id = $1`

	tag, err := r.q.Exec(ctx, query,
		orderID,
		refund.RefundID,
		refund.Amount,
		refund.Status,
		refund.Reason,
		refund.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("refund %s already recorded: %w", refund.RefundID, err)
		}
		return fmt.Errorf("failed to append refund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewPaymentNotFoundError(orderID)
	}
	return nil
}

func (r *LedgerRepository) UpdateRefundStatus(ctx context.Context, refundID string, status domain.RefundStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE payment_refunds SET status = $2 WHERE refund_id = $1`, refundID, status)
	if err != nil {
		return fmt.Errorf("failed to update refund status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("refund %s not found", refundID)
	}
	return nil
}

// FindUnsettledCaptures lists plan purchases captured before now-olderThan
// that have no commission block yet, oldest first.
func (r *LedgerRepository) FindUnsettledCaptures(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.PaymentRecord, error) {
	cutoff := time.Now().Add(-olderThan)

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE status IN ('captured', 'refunded')
				AND settled_at IS NULL
				AND business_type = $1
				AND captured_at < $2
			  ORDER BY captured_at ASC
			  LIMIT $3`

	rows, err := r.q.Query(ctx, query, domain.BusinessCoachPlanPurchase, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query unsettled captures: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaymentRecord, error) {
		return scanPayment(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan unsettled captures: %w", err)
	}

	for _, rec := range records {
		if err := r.loadRefunds(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *LedgerRepository) findOne(ctx context.Context, key, query string, args ...any) (*domain.PaymentRecord, error) {
	rec, err := scanPayment(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPaymentNotFoundError(key)
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	if err := r.loadRefunds(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *LedgerRepository) loadRefunds(ctx context.Context, rec *domain.PaymentRecord) error {
	query := `SELECT refund_id, amount, status, reason, created_at
			  FROM payment_refunds
			  WHERE payment_record_id = $1
			  ORDER BY created_at, refund_id`

	rows, err := r.q.Query(ctx, query, rec.ID)
	if err != nil {
		return fmt.Errorf("query refunds: %w", err)
	}

	refunds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Refund, error) {
		var rf domain.Refund
		err := row.Scan(&rf.RefundID, &rf.Amount, &rf.Status, &rf.Reason, &rf.CreatedAt)
		return rf, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan refunds: %w", err)
	}

	rec.Refunds = refunds
	return nil
}

// swapped turns a conditional update's row count into the transition result,
// telling a lost race apart from a missing record.
func (r *LedgerRepository) swapped(ctx context.Context, orderID string, affected int64) (bool, error) {
	if affected > 0 {
		return true, nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = $1)`, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check payment existence: %w", err)
	}
	if !exists {
		return false, domain.NewPaymentNotFoundError(orderID)
	}
	return false, nil
}

func scanPayment(row pgx.Row) (*domain.PaymentRecord, error) {
	var (
		p                                  domain.PaymentRecord
		commission, platform, coachPortion decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.PaymentID,
		&p.Signature,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.BusinessType,
		&p.BuyerID,
		&p.BuyerRole,
		&p.BuyerEmail,
		&p.BuyerPhone,
		&p.PlanID,
		&p.CoachID,
		&p.Receipt,
		&p.Notes,
		&p.Method.Method,
		&p.Method.Bank,
		&p.Method.Wallet,
		&p.Method.VPA,
		&commission,
		&platform,
		&coachPortion,
		&p.SettledAt,
		&p.ErrorCode,
		&p.ErrorDescription,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.CapturedAt,
		&p.FailedAt,
		&p.RefundedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Commission = domain.Commission{
		CommissionAmount:   commission.Decimal,
		PlatformCommission: platform.Decimal,
		CoachCommission:    coachPortion.Decimal,
	}
	return &p, nil
}
