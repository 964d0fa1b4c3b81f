package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/config"
	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/ports"
)

// RetryClient retries reads only. Order and refund creation are not
// idempotent on the gateway side and go through once.
type RetryClient struct {
	inner      ports.GatewayPort
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryClient(inner ports.GatewayPort, cfg config.RetryConfig) *RetryClient {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryClient{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: maxRetries,
	}
}

func (r *RetryClient) CreateOrder(ctx context.Context, req domain.GatewayOrderRequest) (*domain.GatewayOrder, error) {
	return r.inner.CreateOrder(ctx, req)
}

func (r *RetryClient) FetchPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error) {
	return retry(r, ctx, func(ctx context.Context) (*domain.GatewayPayment, error) {
		return r.inner.FetchPayment(ctx, paymentID)
	})
}

func (r *RetryClient) CreateRefund(ctx context.Context, paymentID string, req domain.GatewayRefundRequest) (*domain.GatewayRefund, error) {
	return r.inner.CreateRefund(ctx, paymentID, req)
}

func retry[T any](r *RetryClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			timer := time.NewTimer(r.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if providerErr, ok := AsProviderError(err); ok {
		return providerErr.IsRetryable()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// Transport failures and timeouts.
	return true
}

// backoff doubles the base delay per attempt and adds up to one base delay of jitter.
func (r *RetryClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	if r.baseDelay <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(r.baseDelay)))
	return base + jitter
}
