package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type CatalogRepository struct {
	q Executor
}

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{q: db.Pool}
}

func (r *CatalogRepository) FindPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	query := `
			SELECT p.id, p.product_id, p.coach_id, p.name, p.price, p.currency, p.status, p.is_public,
				p.total_sales, p.total_revenue, p.commission_earned, p.platform_commission_paid,
				pr.id, pr.name, pr.platform_commission_percentage, pr.coach_commission_percentage,
				pr.total_sales, pr.total_revenue
			FROM plans p
			JOIN products pr ON pr.id = p.product_id
			WHERE p.id = $1
			`

	var (
		plan    domain.Plan
		product domain.Product
	)
	err := r.q.QueryRow(ctx, query, planID).Scan(
		&plan.ID,
		&plan.ProductID,
		&plan.CoachID,
		&plan.Name,
		&plan.Price,
		&plan.Currency,
		&plan.Status,
		&plan.IsPublic,
		&plan.TotalSales,
		&plan.TotalRevenue,
		&plan.CommissionEarned,
		&plan.PlatformCommissionPaid,
		&product.ID,
		&product.Name,
		&product.CommissionSettings.PlatformCommissionPercentage,
		&product.CommissionSettings.CoachCommissionPercentage,
		&product.TotalSales,
		&product.TotalRevenue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPlanNotFoundError(planID)
		}
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}

	plan.Product = &product
	return &plan, nil
}

// IncrementPlanSales adds one sale to the plan counters in a single statement.
func (r *CatalogRepository) IncrementPlanSales(ctx context.Context, planID string, sale domain.PlanSale) error {
	query := `
			UPDATE plans SET
				total_sales = total_sales + 1,
				total_revenue = total_revenue + $2,
				commission_earned = commission_earned + $3,
				platform_commission_paid = platform_commission_paid + $4,
				updated_at = NOW()
			WHERE id = $1
			`

	tag, err := r.q.Exec(ctx, query, planID, sale.Revenue, sale.CoachCommission, sale.PlatformCommission)
	if err != nil {
		return fmt.Errorf("failed to increment plan sales: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewPlanNotFoundError(planID)
	}
	return nil
}

func (r *CatalogRepository) IncrementProductSales(ctx context.Context, productID string, revenue decimal.Decimal) error {
	query := `
			UPDATE products SET
				total_sales = total_sales + 1,
				total_revenue = total_revenue + $2,
				updated_at = NOW()
			WHERE id = $1
			`

	tag, err := r.q.Exec(ctx, query, productID, revenue)
	if err != nil {
		return fmt.Errorf("failed to increment product sales: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s not found", productID)
	}
	return nil
}
