package domain

import (
	"bytes"
	"encoding/json"
)

// Notes is the provider's key/value annotation map. Empty notes are sent as
// a JSON array, which decodes to an empty map.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		*n = Notes{}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}
	*n = m
	return nil
}

type GatewayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency Currency          `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type GatewayOrder struct {
	ID        string   `json:"id"`
	Amount    int64    `json:"amount"`
	Currency  Currency `json:"currency"`
	Receipt   string   `json:"receipt"`
	Status    string   `json:"status"`
	CreatedAt int64    `json:"created_at"`
}

// GatewayPayment is the provider's canonical payment object. The same shape
// arrives inside payment.* webhook payloads.
type GatewayPayment struct {
	ID               string   `json:"id"`
	OrderID          string   `json:"order_id"`
	Amount           int64    `json:"amount"`
	Currency         Currency `json:"currency"`
	Status           string   `json:"status"`
	Method           *string  `json:"method"`
	Bank             *string  `json:"bank"`
	Wallet           *string  `json:"wallet"`
	VPA              *string  `json:"vpa"`
	Email            *string  `json:"email"`
	Contact          *string  `json:"contact"`
	ErrorCode        *string  `json:"error_code"`
	ErrorDescription *string  `json:"error_description"`
	CreatedAt        int64    `json:"created_at"`
}

// PaymentMethod extracts the instrument metadata stored on the ledger.
func (g *GatewayPayment) PaymentMethod() PaymentMethod {
	return PaymentMethod{
		Method: g.Method,
		Bank:   g.Bank,
		Wallet: g.Wallet,
		VPA:    g.VPA,
	}
}

type GatewayRefundRequest struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type GatewayRefund struct {
	ID        string   `json:"id"`
	PaymentID string   `json:"payment_id"`
	Amount    int64    `json:"amount"`
	Currency  Currency `json:"currency"`
	Status    string   `json:"status"`
	Notes     Notes    `json:"notes,omitempty"`
	CreatedAt int64    `json:"created_at"`
}
