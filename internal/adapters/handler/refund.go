package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/service"
	"github.com/shopspring/decimal"
)

type RefundRequest struct {
	// Amount in major units; omitted means the remaining refundable balance.
	Amount *decimal.Decimal `json:"amount,omitempty" swaggertype:"string" example:"499.50"`
	Reason *string          `json:"reason,omitempty" validate:"omitempty,max=255" example:"requested by customer"`
}

type RefundResponse struct {
	RefundID      string               `json:"refundId"`
	Amount        decimal.Decimal      `json:"amount"`
	Status        domain.RefundStatus  `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
}

// HandleRefund issues a refund against a captured payment
// @Summary      Refund a payment
// @Description  Issues a gateway refund and appends it to the ledger. The record flips to refunded once processed refunds cover the amount.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        paymentId  path      string         true  "Gateway payment id"
// @Param        request    body      RefundRequest  false "Amount and reason"
// @Success      200        {object}  APIResponse    "Refund recorded"
// @Failure      400        {object}  APIResponse    "Invalid amount or payment not captured"
// @Failure      401        {object}  APIResponse    "Missing or invalid admin token"
// @Failure      404        {object}  APIResponse    "Payment not found"
// @Failure      502        {object}  APIResponse    "Gateway error"
// @Router       /api/v1/payments/{paymentId}/refunds [post]
func (h *PaymentHandler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("paymentId")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req RefundRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondWithError(w, h.logger, domain.NewValidationError("request body is not valid JSON"))
			return
		}
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, h.logger, validationError(err))
		return
	}

	result, err := h.refundService.Refund(r.Context(), service.RefundCommand{
		PaymentID: paymentID,
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, RefundResponse{
		RefundID:      result.Refund.RefundID,
		Amount:        result.Refund.Amount,
		Status:        result.Refund.Status,
		PaymentStatus: result.Payment.Status,
	})
}
