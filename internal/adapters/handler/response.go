package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
	}

	if response.Success {
		response.Data = data
	} else {
		if apiErr, ok := data.(*APIError); ok {
			response.Error = apiErr
		}
	}

	_ = json.NewEncoder(w).Encode(response)
}

// statusFor maps a domain error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case domain.ErrCodeValidation, domain.ErrCodeSignatureMismatch,
		domain.ErrCodeInvalidState, domain.ErrCodeDuplicatePaymentID:
		return http.StatusBadRequest
	case domain.ErrCodePaymentNotFound, domain.ErrCodePlanNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError writes the envelope for err. Errors that are not domain
// errors, or whose code has no client-facing status, become a generic 500.
func respondWithError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := "INTERNAL_ERROR"
	message := "internal server error"
	status := http.StatusInternalServerError

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		status = statusFor(domainErr.Code)
		if status != http.StatusInternalServerError {
			code = domainErr.Code
			message = domainErr.Message
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}

	respondWithJSON(w, status, &APIError{
		Code:    code,
		Message: message,
	})
}

func validationError(err error) error {
	return domain.NewValidationError(err.Error())
}
