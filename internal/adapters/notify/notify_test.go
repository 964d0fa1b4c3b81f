package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/config"
	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSink struct {
	mu      sync.Mutex
	events  []domain.NotificationEvent
	block   chan struct{}
	err     error
	started chan struct{}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(ctx context.Context, event domain.NotificationEvent) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) Events() []domain.NotificationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.NotificationEvent(nil), s.events...)
}

func newEvent(orderID string) domain.NotificationEvent {
	return domain.NotificationEvent{
		ID:       uuid.New(),
		Type:     domain.NotificationPurchaseCompleted,
		Channels: []domain.NotificationChannel{domain.ChannelEmail, domain.ChannelWhatsApp},
		OrderID:  orderID,
		BuyerID:  "buyer-1",
		Amount:   decimal.RequireFromString("999.00"),
		Currency: domain.CurrencyINR,
	}
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	first, second := &recordingSink{}, &recordingSink{err: errors.New("down")}
	d := NewDispatcher(config.NotificationConfig{Workers: 2, QueueSize: 8, DeliveryTimeout: time.Second}, testLogger(), first, second)
	d.Start(context.Background())

	d.Notify(context.Background(), newEvent("order_1"))
	d.Notify(context.Background(), newEvent("order_2"))
	d.Stop()

	assert.Len(t, first.Events(), 2)
	assert.Len(t, second.Events(), 2, "a failing sink does not stop delivery")
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{}), started: make(chan struct{}, 1)}
	d := NewDispatcher(config.NotificationConfig{Workers: 1, QueueSize: 1}, testLogger(), sink)
	d.Start(context.Background())

	d.Notify(context.Background(), newEvent("order_1"))
	<-sink.started

	done := make(chan struct{})
	go func() {
		d.Notify(context.Background(), newEvent("order_2")) // fills the queue
		d.Notify(context.Background(), newEvent("order_3")) // dropped
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	sink.started = nil
	close(sink.block)
	d.Stop()

	require.Len(t, sink.Events(), 2)
	assert.Equal(t, "order_1", sink.Events()[0].OrderID)
	assert.Equal(t, "order_2", sink.Events()[1].OrderID)
}

func TestDispatcher_NotifyAfterStop(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(config.NotificationConfig{Workers: 1, QueueSize: 4}, testLogger(), sink)
	d.Start(context.Background())
	d.Stop()

	assert.NotPanics(t, func() { d.Notify(context.Background(), newEvent("order_1")) })
	assert.Empty(t, sink.Events())
	d.Stop()
}

type fakeStreams struct {
	mu   sync.Mutex
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStreams) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.args = append(f.args, a)
	return redis.NewStringResult("1700000000000-0", f.err)
}

func TestRedisStreamSink_OneEntryPerChannel(t *testing.T) {
	streams := &fakeStreams{}
	sink := NewRedisStreamSink(streams, config.RedisConfig{StreamPrefix: "notifications:", MaxLen: 100})
	event := newEvent("order_1")

	require.NoError(t, sink.Deliver(context.Background(), event))

	require.Len(t, streams.args, 2)
	assert.Equal(t, "notifications:email", streams.args[0].Stream)
	assert.Equal(t, "notifications:whatsapp", streams.args[1].Stream)
	assert.True(t, streams.args[0].Approx)

	values := streams.args[0].Values.(map[string]interface{})
	assert.Equal(t, event.ID.String(), values["event_id"])
	var decoded domain.NotificationEvent
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &decoded))
	assert.Equal(t, "order_1", decoded.OrderID)
}

func TestRedisStreamSink_Error(t *testing.T) {
	sink := NewRedisStreamSink(&fakeStreams{err: errors.New("connection refused")}, config.RedisConfig{StreamPrefix: "n:"})

	err := sink.Deliver(context.Background(), newEvent("order_1"))

	assert.ErrorContains(t, err, "xadd n:email")
}

func TestRedisStreamSink_NoChannels(t *testing.T) {
	streams := &fakeStreams{}
	event := newEvent("order_1")
	event.Channels = nil

	require.NoError(t, NewRedisStreamSink(streams, config.RedisConfig{}).Deliver(context.Background(), event))
	assert.Empty(t, streams.args)
}
