package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/service"
	"github.com/go-playground/validator"
)

type OrderService interface {
	CreatePlanOrder(ctx context.Context, cmd service.CreateOrderCommand) (*service.OrderResult, error)
}

type VerifyService interface {
	VerifyPayment(ctx context.Context, cmd service.VerifyPaymentCommand) (*domain.PaymentRecord, error)
}

type WebhookDispatcher interface {
	Dispatch(ctx context.Context, rawBody []byte, signatureHeader string) error
}

type RefundService interface {
	Refund(ctx context.Context, cmd service.RefundCommand) (*service.RefundResult, error)
}

type QueryService interface {
	GetPaymentByOrderID(ctx context.Context, orderID string) (*domain.PaymentRecord, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Orders   OrderService
	Verify   VerifyService
	Webhooks WebhookDispatcher
	Refunds  RefundService
	Query    QueryService
	Health   Pinger
}

// WebhookPath is where the gateway delivers webhooks.
const WebhookPath = "/api/v1/webhooks/razorpay"

type Options struct {
	SignatureHeader string
	MaxWebhookBytes int64
}

type PaymentHandler struct {
	orderService   OrderService
	verifyService  VerifyService
	webhooks       WebhookDispatcher
	refundService  RefundService
	queryService   QueryService
	health         Pinger
	validate       *validator.Validate
	logger         *slog.Logger
	sigHeader      string
	maxWebhookSize int64
}

func NewPaymentHandler(svc Services, opts Options, logger *slog.Logger) *PaymentHandler {
	if opts.SignatureHeader == "" {
		opts.SignatureHeader = "X-Razorpay-Signature"
	}
	if opts.MaxWebhookBytes <= 0 {
		opts.MaxWebhookBytes = 1 << 20
	}
	return &PaymentHandler{
		orderService:   svc.Orders,
		verifyService:  svc.Verify,
		webhooks:       svc.Webhooks,
		refundService:  svc.Refunds,
		queryService:   svc.Query,
		health:         svc.Health,
		validate:       validator.New(),
		logger:         logger,
		sigHeader:      opts.SignatureHeader,
		maxWebhookSize: opts.MaxWebhookBytes,
	}
}

// RegisterRoutes mounts the public routes on mux and wraps the ledger-mutating
// admin routes with admin.
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /api/v1/orders", h.HandleCreateOrder)
	mux.HandleFunc("POST /api/v1/payments/verify", h.HandleVerifyPayment)
	mux.HandleFunc("POST "+WebhookPath, h.HandleWebhook)
	mux.Handle("POST /api/v1/payments/{paymentId}/refunds", admin(http.HandlerFunc(h.HandleRefund)))
	mux.Handle("GET /api/v1/orders/{orderId}/payment", admin(http.HandlerFunc(h.HandleGetPaymentByOrder)))
	mux.HandleFunc("GET /healthz", h.HandleHealth)
}
