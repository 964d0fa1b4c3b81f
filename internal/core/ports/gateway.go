package ports

import (
	"context"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
)

// GatewayPort defines the behavior of the external payment provider.
type GatewayPort interface {
	CreateOrder(ctx context.Context, req domain.GatewayOrderRequest) (*domain.GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error)
	CreateRefund(ctx context.Context, paymentID string, req domain.GatewayRefundRequest) (*domain.GatewayRefund, error)
}
