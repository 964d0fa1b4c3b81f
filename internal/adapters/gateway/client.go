package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/config"
	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/metrics"
)

// HTTPClient talks to the Razorpay-style REST API with basic auth.
type HTTPClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

func NewHTTPClient(cfg config.GatewayConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *HTTPClient) CreateOrder(ctx context.Context, req domain.GatewayOrderRequest) (*domain.GatewayOrder, error) {
	started := time.Now()
	order, err := sendRequest[domain.GatewayOrderRequest, domain.GatewayOrder](c, ctx, http.MethodPost, "/v1/orders", &req)
	metrics.ObserveGatewayCall("create_order", started, err)
	return order, err
}

func (c *HTTPClient) FetchPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error) {
	started := time.Now()
	path := "/v1/payments/" + url.PathEscape(paymentID)
	payment, err := sendRequest[any, domain.GatewayPayment](c, ctx, http.MethodGet, path, nil)
	metrics.ObserveGatewayCall("fetch_payment", started, err)
	return payment, err
}

func (c *HTTPClient) CreateRefund(ctx context.Context, paymentID string, req domain.GatewayRefundRequest) (*domain.GatewayRefund, error) {
	started := time.Now()
	path := "/v1/payments/" + url.PathEscape(paymentID) + "/refund"
	refund, err := sendRequest[domain.GatewayRefundRequest, domain.GatewayRefund](c, ctx, http.MethodPost, path, &req)
	metrics.ObserveGatewayCall("create_refund", started, err)
	return refund, err
}

// sendRequest performs one call. Every failure comes back as a GATEWAY_ERROR
// domain error; API rejections also carry a *ProviderError in the chain.
func sendRequest[Req any, Resp any](c *HTTPClient, ctx context.Context, method, path string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Accept", "application/json")
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewGatewayError("gateway request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewGatewayError("failed to read gateway response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		providerErr := &ProviderError{StatusCode: resp.StatusCode}
		var errResp providerErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error.Code != "" {
			providerErr.Code = errResp.Error.Code
			providerErr.Description = errResp.Error.Description
		} else {
			providerErr.Code = http.StatusText(resp.StatusCode)
			providerErr.Description = strings.TrimSpace(string(body))
		}
		return nil, domain.NewGatewayError(providerErr.Description, providerErr)
	}

	var out Resp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, domain.NewGatewayError("error decoding gateway response", err)
	}

	return &out, nil
}
