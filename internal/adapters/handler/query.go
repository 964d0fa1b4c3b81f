package handler

import (
	"net/http"
)

// HandleGetPaymentByOrder returns the full ledger record for an order
// @Summary      Get payment by order
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        orderId  path      string       true  "Gateway order id"
// @Success      200      {object}  APIResponse  "Ledger record"
// @Failure      401      {object}  APIResponse  "Missing or invalid admin token"
// @Failure      404      {object}  APIResponse  "Order not found"
// @Router       /api/v1/orders/{orderId}/payment [get]
func (h *PaymentHandler) HandleGetPaymentByOrder(w http.ResponseWriter, r *http.Request) {
	payment, err := h.queryService.GetPaymentByOrderID(r.Context(), r.PathValue("orderId"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			respondWithJSON(w, http.StatusServiceUnavailable, &APIError{
				Code:    "UNAVAILABLE",
				Message: "database unreachable",
			})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
