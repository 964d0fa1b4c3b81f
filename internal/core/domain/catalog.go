package domain

import (
	"github.com/shopspring/decimal"
)

type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanInactive PlanStatus = "inactive"
	PlanArchived PlanStatus = "archived"
)

// Product is an admin-defined sellable template. Coaches derive plans from it.
type Product struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	CommissionSettings CommissionSettings `json:"commissionSettings"`
	TotalSales         int64              `json:"totalSales"`
	TotalRevenue       decimal.Decimal    `json:"totalRevenue"`
}

// Plan is a coach-priced offering of a product.
type Plan struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	CoachID   string          `json:"coachId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Currency  Currency        `json:"currency"`
	Status    PlanStatus      `json:"status"`
	IsPublic  bool            `json:"isPublic"`

	TotalSales             int64           `json:"totalSales"`
	TotalRevenue           decimal.Decimal `json:"totalRevenue"`
	CommissionEarned       decimal.Decimal `json:"commissionEarned"`
	PlatformCommissionPaid decimal.Decimal `json:"platformCommissionPaid"`

	Product *Product `json:"product,omitempty"`
}

// IsPurchasable reports whether customers may place orders for the plan.
func (p *Plan) IsPurchasable() bool {
	return p.Status == PlanActive && p.IsPublic
}

// PlanSale is the increment a single settled purchase applies to a plan.
type PlanSale struct {
	Revenue            decimal.Decimal
	CoachCommission    decimal.Decimal
	PlatformCommission decimal.Decimal
}
