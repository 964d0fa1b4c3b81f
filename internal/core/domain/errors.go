package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodePaymentNotFound    = "PAYMENT_NOT_FOUND"
	ErrCodePlanNotFound       = "PLAN_NOT_FOUND"
	ErrCodeSignatureMismatch  = "SIGNATURE_MISMATCH"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeDuplicatePaymentID = "DUPLICATE_PAYMENT_ID"
	ErrCodeGateway            = "GATEWAY_ERROR"
	ErrCodeSettlement         = "SETTLEMENT_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
)

func NewValidationError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

func NewMissingFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewPaymentNotFoundError(orderID string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment record not found: %s", orderID),
	}
}

func NewPlanNotFoundError(planID string) *DomainError {
	return &DomainError{
		Code:    ErrCodePlanNotFound,
		Message: fmt.Sprintf("plan not found or not available: %s", planID),
	}
}

// NewSignatureMismatchError never says which input failed.
func NewSignatureMismatchError() *DomainError {
	return &DomainError{
		Code:    ErrCodeSignatureMismatch,
		Message: "signature verification failed",
	}
}

func NewInvalidStateError(current PaymentStatus, operation string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf("cannot %s payment in %s state", operation, current),
	}
}

func NewDuplicatePaymentIDError(paymentID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicatePaymentID,
		Message: fmt.Sprintf("payment id %s is already recorded against another order", paymentID),
	}
}

func NewGatewayError(message string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeGateway,
		Message: message,
		Err:     err,
	}
}

func NewSettlementError(orderID string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeSettlement,
		Message: fmt.Sprintf("settlement failed for order %s", orderID),
		Err:     err,
	}
}

func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

// IsErrorCode reports whether any DomainError in err's chain carries code.
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
