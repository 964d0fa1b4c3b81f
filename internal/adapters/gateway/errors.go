package gateway

import (
	"errors"
	"fmt"
)

// ProviderError is a non-2xx answer from the gateway API.
type ProviderError struct {
	Code        string
	Description string
	StatusCode  int
}

// providerErrorResponse matches {"error":{"code":...,"description":...}}.
type providerErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Reason      string `json:"reason"`
	} `json:"error"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gateway error [%s]: %s (status: %d)", e.Code, e.Description, e.StatusCode)
}

func (e *ProviderError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func AsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	ok := errors.As(err, &providerErr)
	return providerErr, ok
}
