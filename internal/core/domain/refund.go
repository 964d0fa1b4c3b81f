package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundFailed    RefundStatus = "failed"
)

// Refund is one append-only entry in a record's refund history.
type Refund struct {
	RefundID  string          `json:"refundId"`
	Amount    decimal.Decimal `json:"amount"`
	Status    RefundStatus    `json:"status"`
	Reason    *string         `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ParseRefundStatus maps a gateway refund status onto ours. Unknown values are pending.
func ParseRefundStatus(s string) RefundStatus {
	switch RefundStatus(s) {
	case RefundProcessed:
		return RefundProcessed
	case RefundFailed:
		return RefundFailed
	default:
		return RefundPending
	}
}

// ProcessedRefundTotal sums refunds the gateway has confirmed.
func (p *PaymentRecord) ProcessedRefundTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		if r.Status == RefundProcessed {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// CommittedRefundTotal sums every refund that has not failed. Pending refunds
// still hold funds, so they count against the refundable balance.
func (p *PaymentRecord) CommittedRefundTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		if r.Status != RefundFailed {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// RefundableBalance is the amount still available for new refunds.
func (p *PaymentRecord) RefundableBalance() decimal.Decimal {
	balance := p.Amount.Sub(p.CommittedRefundTotal())
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// IsFullyRefunded reports whether processed refunds reach the captured amount.
func (p *PaymentRecord) IsFullyRefunded() bool {
	return p.ProcessedRefundTotal().GreaterThanOrEqual(p.Amount)
}

// FindRefund returns the index of refundID in the history, or -1.
func (p *PaymentRecord) FindRefund(refundID string) int {
	for i, r := range p.Refunds {
		if r.RefundID == refundID {
			return i
		}
	}
	return -1
}
