package service

import (
	"context"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/ports"
)

type QueryService struct {
	ledger ports.LedgerRepository
}

func NewQueryService(ledger ports.LedgerRepository) *QueryService {
	return &QueryService{ledger: ledger}
}

func (s *QueryService) GetPaymentByOrderID(ctx context.Context, orderID string) (*domain.PaymentRecord, error) {
	if orderID == "" {
		return nil, domain.NewMissingFieldError("orderId")
	}
	return s.ledger.FindByOrderID(ctx, orderID)
}
