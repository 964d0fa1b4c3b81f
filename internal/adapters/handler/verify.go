package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/service"
	"github.com/shopspring/decimal"
)

type VerifyPaymentRequest struct {
	ProviderOrderID   string `json:"providerOrderId" validate:"required" example:"order_NXk2bFz0abcd12"`
	ProviderPaymentID string `json:"providerPaymentId" validate:"required" example:"pay_NXk3cGz1efgh34"`
	Signature         string `json:"signature" validate:"required" example:"9d0c1f..."`
}

type VerifyPaymentResponse struct {
	PaymentID string               `json:"paymentId"`
	OrderID   string               `json:"orderId"`
	Status    domain.PaymentStatus `json:"status"`
	Amount    decimal.Decimal      `json:"amount"`
	Currency  domain.Currency      `json:"currency"`
}

// HandleVerifyPayment captures a payment from the checkout callback
// @Summary      Verify a checkout payment
// @Description  Verifies the checkout signature, captures the ledger record and runs settlement.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request  body      VerifyPaymentRequest  true  "Checkout callback fields"
// @Success      200      {object}  APIResponse           "Payment captured"
// @Failure      400      {object}  APIResponse           "Invalid request, signature or state"
// @Failure      404      {object}  APIResponse           "Order not found"
// @Router       /api/v1/payments/verify [post]
func (h *PaymentHandler) HandleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req VerifyPaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(w, h.logger, domain.NewValidationError("request body is not valid JSON"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, h.logger, validationError(err))
		return
	}

	rec, err := h.verifyService.VerifyPayment(r.Context(), service.VerifyPaymentCommand{
		OrderID:   req.ProviderOrderID,
		PaymentID: req.ProviderPaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	resp := VerifyPaymentResponse{
		OrderID:  rec.OrderID,
		Status:   rec.Status,
		Amount:   rec.Amount,
		Currency: rec.Currency,
	}
	if rec.PaymentID != nil {
		resp.PaymentID = *rec.PaymentID
	}
	respondWithJSON(w, http.StatusOK, resp)
}
