package ports

import (
	"context"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
)

// Notifier hands events to an asynchronous delivery queue. Notify must not block.
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent)
}
