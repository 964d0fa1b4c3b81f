package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
)

// HandleWebhook passes the raw body to the dispatcher untouched; the
// signature covers the exact bytes the gateway sent.
// @Summary      Gateway webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Razorpay-Signature  header  string  true  "HMAC-SHA256 of the raw body"
// @Success      200  {object}  map[string]bool  "Delivery acknowledged"
// @Failure      400  {object}  map[string]bool  "Signature mismatch"
// @Router       /api/v1/webhooks/razorpay [post]
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxWebhookSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("webhook body too large", "limit", h.maxWebhookSize)
		}
		writeWebhookAck(w, http.StatusBadRequest, false)
		return
	}

	if err := h.webhooks.Dispatch(r.Context(), body, r.Header.Get(h.sigHeader)); err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeSignatureMismatch) {
			writeWebhookAck(w, http.StatusBadRequest, false)
			return
		}
		h.logger.Error("webhook dispatch failed", "error", err)
	}

	writeWebhookAck(w, http.StatusOK, true)
}

func writeWebhookAck(w http.ResponseWriter, status int, received bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]bool{"received": received})
}
