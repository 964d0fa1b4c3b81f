// Package notify delivers notification events off the request path.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/config"
	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/metrics"
)

// Sink delivers one event to one downstream system.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event domain.NotificationEvent) error
}

// Dispatcher is a bounded queue drained by a fixed worker pool. Notify never
// blocks; when the queue is full the event is dropped and counted.
type Dispatcher struct {
	queue   chan domain.NotificationEvent
	sinks   []Sink
	workers int
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	started bool
}

func NewDispatcher(cfg config.NotificationConfig, logger *slog.Logger, sinks ...Sink) *Dispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		queue:   make(chan domain.NotificationEvent, queueSize),
		sinks:   sinks,
		workers: workers,
		timeout: cfg.DeliveryTimeout,
		logger:  logger,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, event domain.NotificationEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher stopped")
		return
	}

	select {
	case d.queue <- event:
		metrics.SetNotificationQueueDepth(len(d.queue))
	default:
		d.drop(event, "queue full")
	}
}

// Start launches the workers. Delivery contexts derive from ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	d.logger.Info("starting notification dispatcher",
		"workers", d.workers,
		"queue_size", cap(d.queue),
		"sinks", len(d.sinks),
	)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(context.WithoutCancel(ctx))
	}
}

// Stop closes the queue and waits for queued events to be delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for event := range d.queue {
		metrics.SetNotificationQueueDepth(len(d.queue))
		d.deliver(ctx, event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event domain.NotificationEvent) {
	for _, sink := range d.sinks {
		deliveryCtx, cancel := ctx, context.CancelFunc(func() {})
		if d.timeout > 0 {
			deliveryCtx, cancel = context.WithTimeout(ctx, d.timeout)
		}
		err := sink.Deliver(deliveryCtx, event)
		cancel()

		if err != nil {
			metrics.IncNotification(sink.Name(), "failed")
			d.logger.Error("notification delivery failed",
				"sink", sink.Name(),
				"event_id", event.ID,
				"type", event.Type,
				"order_id", event.OrderID,
				"error", err,
			)
			continue
		}
		metrics.IncNotification(sink.Name(), "delivered")
	}
}

func (d *Dispatcher) drop(event domain.NotificationEvent, reason string) {
	metrics.IncNotification("queue", "dropped")
	d.logger.Warn("dropping notification",
		"reason", reason,
		"event_id", event.ID,
		"type", event.Type,
		"order_id", event.OrderID,
	)
}
