package domain

import (
	"github.com/oklog/ulid/v2"
)

// MaxReceiptLength is the longest receipt the gateway accepts.
const MaxReceiptLength = 40

const receiptPrefix = "rcpt_"

// NewReceiptID returns a short, time-ordered receipt. The full correlation id
// travels in the order notes because the gateway truncates long receipts.
func NewReceiptID() string {
	id := receiptPrefix + ulid.Make().String()
	if len(id) > MaxReceiptLength {
		id = id[:MaxReceiptLength]
	}
	return id
}
