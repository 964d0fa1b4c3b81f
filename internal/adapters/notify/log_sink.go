package notify

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
)

// LogSink records events in the service log. It is the only sink when Redis
// is disabled.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, event domain.NotificationEvent) error {
	s.logger.InfoContext(ctx, "notification",
		"event_id", event.ID,
		"type", event.Type,
		"channels", event.Channels,
		"order_id", event.OrderID,
		"buyer_id", event.BuyerID,
		"amount", event.Amount.String(),
		"currency", event.Currency,
	)
	return nil
}
