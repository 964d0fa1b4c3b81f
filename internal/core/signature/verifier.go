// Package signature authenticates gateway callbacks with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrMissingOrderID   = errors.New("order id is required")
	ErrMissingPaymentID = errors.New("payment id is required")
	ErrMissingSignature = errors.New("signature is required")
	ErrMissingSecret    = errors.New("secret is required")
	ErrMissingBody      = errors.New("body is required")
)

// VerifyOrderPayment checks the signature the client receives after checkout:
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func VerifyOrderPayment(orderID, paymentID, signature, secret string) (bool, error) {
	switch {
	case orderID == "":
		return false, ErrMissingOrderID
	case paymentID == "":
		return false, ErrMissingPaymentID
	case signature == "":
		return false, ErrMissingSignature
	case secret == "":
		return false, ErrMissingSecret
	}
	return compare([]byte(orderID+"|"+paymentID), signature, secret), nil
}

// VerifyWebhook checks a webhook signature header against the exact raw body.
// The body must not be re-encoded before this call.
func VerifyWebhook(rawBody []byte, signatureHeader, secret string) (bool, error) {
	switch {
	case len(rawBody) == 0:
		return false, ErrMissingBody
	case signatureHeader == "":
		return false, ErrMissingSignature
	case secret == "":
		return false, ErrMissingSecret
	}
	return compare(rawBody, signatureHeader, secret), nil
}

// Sign returns the hex HMAC-SHA256 of payload. Tests and local tooling use it to
// produce signatures the verifiers accept.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// compare matches the lowercase hex digest byte for byte, so a re-cased
// signature does not verify.
func compare(payload []byte, signature, secret string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
