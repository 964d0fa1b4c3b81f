package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/adapters/handler"
	"github.com/stretchr/testify/require"
)

// FakeRazorpay serves the subset of the provider API the service calls.
type FakeRazorpay struct {
	*httptest.Server

	mu       sync.Mutex
	seq      int
	orders   map[string]map[string]any
	payments map[string]string
	refunds  int
}

func NewFakeRazorpay() *FakeRazorpay {
	f := &FakeRazorpay{
		orders:   make(map[string]map[string]any),
		payments: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/orders", f.createOrder)
	mux.HandleFunc("GET /v1/payments/{id}", f.fetchPayment)
	mux.HandleFunc("POST /v1/payments/{id}/refund", f.createRefund)
	f.Server = httptest.NewServer(mux)
	return f
}

// Pay records a captured payment against orderID, as if the buyer had
// completed checkout.
func (f *FakeRazorpay) Pay(orderID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	paymentID := fmt.Sprintf("pay_e2e%04d", f.seq)
	f.payments[paymentID] = orderID
	return paymentID
}

func (f *FakeRazorpay) RefundCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refunds
}

func (f *FakeRazorpay) createOrder(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProviderError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "invalid body")
		return
	}

	f.mu.Lock()
	f.seq++
	id := fmt.Sprintf("order_e2e%04d", f.seq)
	f.orders[id] = req
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"entity":     "order",
		"amount":     req["amount"],
		"currency":   req["currency"],
		"receipt":    req["receipt"],
		"status":     "created",
		"created_at": time.Now().Unix(),
	})
}

func (f *FakeRazorpay) fetchPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f.mu.Lock()
	orderID, ok := f.payments[id]
	var amount any
	if ok {
		amount = f.orders[orderID]["amount"]
	}
	f.mu.Unlock()

	if !ok {
		writeProviderError(w, http.StatusNotFound, "BAD_REQUEST_ERROR", "The id provided does not exist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"entity":   "payment",
		"order_id": orderID,
		"amount":   amount,
		"currency": "INR",
		"status":   "captured",
		"method":   "upi",
		"vpa":      "buyer@okhdfc",
	})
}

func (f *FakeRazorpay) createRefund(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProviderError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "invalid body")
		return
	}

	f.mu.Lock()
	f.refunds++
	id := fmt.Sprintf("rfnd_e2e%04d", f.refunds)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"entity":     "refund",
		"payment_id": r.PathValue("id"),
		"amount":     req["amount"],
		"currency":   "INR",
		"status":     "processed",
		"notes":      []any{},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProviderError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "description": description},
	})
}

// TestClient wraps HTTP calls to the settlement service.
type TestClient struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

func NewTestClient(baseURL, adminToken string) *TestClient {
	return &TestClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminToken: adminToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Do sends body as JSON and decodes the envelope into out when data is present.
func (c *TestClient) Do(t *testing.T, method, path string, body any, headers map[string]string, out any) (int, *handler.APIError) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if resp.StatusCode >= 400 {
		var envelope handler.APIResponse
		require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
		return resp.StatusCode, envelope.Error
	}

	if out != nil {
		envelope := struct {
			Success bool            `json:"success"`
			Data    json.RawMessage `json:"data"`
		}{}
		require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
		require.NoError(t, json.Unmarshal(envelope.Data, out), string(raw))
	}
	return resp.StatusCode, nil
}

func (c *TestClient) Admin() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.adminToken}
}

// PostWebhook delivers raw with the given signature and returns the status code.
func (c *TestClient) PostWebhook(t *testing.T, raw []byte, sig string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/webhooks/razorpay", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("X-Razorpay-Signature", sig)
	}

	resp, err := c.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}
