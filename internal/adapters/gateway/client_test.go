package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/adapters/gateway"
	"github.com/DanielPopoola/coach-settlement/internal/config"
	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc) *gateway.HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return gateway.NewHTTPClient(config.GatewayConfig{
		BaseURL:   server.URL + "/",
		KeyID:     "rzp_test_key",
		KeySecret: "key_secret",
		Timeout:   2 * time.Second,
	})
}

func TestHTTPClient_CreateOrder(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "key_secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, float64(99900), req["amount"])
		assert.Equal(t, "INR", req["currency"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","entity":"order","amount":99900,"currency":"INR","receipt":"rcpt_1","status":"created","created_at":1700000000}`))
	})

	order, err := client.CreateOrder(context.Background(), domain.GatewayOrderRequest{
		Amount:   99900,
		Currency: domain.CurrencyINR,
		Receipt:  "rcpt_1",
		Notes:    map[string]string{"plan_id": "plan-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(99900), order.Amount)
	assert.Equal(t, "created", order.Status)
}

func TestHTTPClient_FetchPayment(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/pay_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"pay_1","order_id":"order_abc","amount":99900,"currency":"INR","status":"captured","method":"upi","vpa":"buyer@okbank"}`))
	})

	payment, err := client.FetchPayment(context.Background(), "pay_1")

	require.NoError(t, err)
	assert.Equal(t, "order_abc", payment.OrderID)
	method := payment.PaymentMethod()
	require.NotNil(t, method.Method)
	assert.Equal(t, "upi", *method.Method)
	assert.Equal(t, "buyer@okbank", *method.VPA)
}

func TestHTTPClient_CreateRefund(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_1/refund", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"rfnd_1","payment_id":"pay_1","amount":50000,"currency":"INR","status":"processed"}`))
	})

	refund, err := client.CreateRefund(context.Background(), "pay_1", domain.GatewayRefundRequest{Amount: 50000})

	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", refund.ID)
	assert.Equal(t, "processed", refund.Status)
}

func TestHTTPClient_ProviderError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`))
	})

	_, err := client.CreateOrder(context.Background(), domain.GatewayOrderRequest{Amount: 10, Currency: domain.CurrencyINR})

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeGateway))
	providerErr, ok := gateway.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "BAD_REQUEST_ERROR", providerErr.Code)
	assert.Equal(t, http.StatusBadRequest, providerErr.StatusCode)
	assert.False(t, providerErr.IsRetryable())
}

func TestHTTPClient_UnstructuredError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := client.FetchPayment(context.Background(), "pay_1")

	providerErr, ok := gateway.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "upstream unavailable", providerErr.Description)
	assert.True(t, providerErr.IsRetryable())
}

func TestHTTPClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := gateway.NewHTTPClient(config.GatewayConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond})

	_, err := client.FetchPayment(context.Background(), "pay_1")

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeGateway))
	_, ok := gateway.AsProviderError(err)
	assert.False(t, ok)
}
