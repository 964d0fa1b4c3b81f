package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code accepted by the marketplace.
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// minorUnitExponent is the number of decimal places of each currency's subunit.
var minorUnitExponent = map[Currency]int32{
	CurrencyINR: 2,
	CurrencyUSD: 2,
	CurrencyEUR: 2,
	CurrencyGBP: 2,
}

func (c Currency) IsValid() bool {
	_, ok := minorUnitExponent[c]
	return ok
}

// commissionPlaces is the precision commission amounts are rounded to.
const commissionPlaces = 2

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a decimal amount to the gateway's integer subunit,
// rounding half-up (999.005 INR becomes 99901 paise).
func ToMinorUnits(amount decimal.Decimal, currency Currency) (int64, error) {
	exp, ok := minorUnitExponent[currency]
	if !ok {
		return 0, NewValidationError(fmt.Sprintf("unsupported currency: %s", currency))
	}
	if amount.IsNegative() {
		return 0, NewValidationError(fmt.Sprintf("amount must not be negative: %s", amount))
	}
	return amount.Shift(exp).Round(0).IntPart(), nil
}

// ExactMinorUnits converts amount without rounding. Amounts finer than the
// currency's subunit are rejected.
func ExactMinorUnits(amount decimal.Decimal, currency Currency) (int64, error) {
	exp, ok := minorUnitExponent[currency]
	if !ok {
		return 0, NewValidationError(fmt.Sprintf("unsupported currency: %s", currency))
	}
	if !amount.Equal(amount.Truncate(exp)) {
		return 0, NewValidationError(fmt.Sprintf("amount %s has more than %d decimal places", amount, exp))
	}
	return ToMinorUnits(amount, currency)
}

// FloorMinorUnits converts amount to whole subunits, dropping any fraction.
func FloorMinorUnits(amount decimal.Decimal, currency Currency) (int64, error) {
	exp, ok := minorUnitExponent[currency]
	if !ok {
		return 0, NewValidationError(fmt.Sprintf("unsupported currency: %s", currency))
	}
	return amount.Shift(exp).Floor().IntPart(), nil
}

// FromMinorUnits converts a gateway subunit amount back to a decimal amount.
func FromMinorUnits(minor int64, currency Currency) decimal.Decimal {
	exp, ok := minorUnitExponent[currency]
	if !ok {
		exp = 2
	}
	return decimal.New(minor, -exp)
}

// CommissionSettings are the percentages applied to a sale of a product's plans.
// The two sides are independent and are not required to sum to 100.
type CommissionSettings struct {
	PlatformCommissionPercentage decimal.Decimal `json:"platformCommissionPercentage"`
	CoachCommissionPercentage    decimal.Decimal `json:"coachCommissionPercentage"`
}

// Commission is the split written onto a ledger record at settlement.
type Commission struct {
	CommissionAmount   decimal.Decimal `json:"commissionAmount"`
	PlatformCommission decimal.Decimal `json:"platformCommission"`
	CoachCommission    decimal.Decimal `json:"coachCommission"`
}

// IsZero reports whether settlement has not written anything yet.
func (c Commission) IsZero() bool {
	return c.CommissionAmount.IsZero() && c.PlatformCommission.IsZero() && c.CoachCommission.IsZero()
}

// SplitCommission applies settings to amount. Each side is rounded
// half-even to two decimals on its own.
func SplitCommission(amount decimal.Decimal, settings CommissionSettings) Commission {
	platform := amount.Mul(settings.PlatformCommissionPercentage).Div(hundred).RoundBank(commissionPlaces)
	coach := amount.Mul(settings.CoachCommissionPercentage).Div(hundred).RoundBank(commissionPlaces)

	return Commission{
		CommissionAmount:   platform.Add(coach),
		PlatformCommission: platform,
		CoachCommission:    coach,
	}
}
