package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// AddNewDeal records a purchase intent stamped with the current time. A user
// may accumulate many deals for the same product; only the most recent
// unpaid one is actionable.
func (d *Database) AddNewDeal(ctx context.Context, userID int64, dealID, productID int, opportunity float64) error {
	const q = `
INSERT INTO deals (user_id, deal_id, product_id, opportunity, create_time)
VALUES ($1, $2, $3, $4, $5);
`
	if err := d.Update(ctx, q, userID, dealID, productID, opportunity, time.Now()); err != nil {
		return fmt.Errorf("add new deal: %w", err)
	}
	return nil
}

// GetUserDeals returns every deal recorded for the user.
func (d *Database) GetUserDeals(ctx context.Context, userID int64) ([]Deal, error) {
	const q = `
SELECT id, user_id, deal_id, product_id, opportunity, paid, create_time
FROM deals
WHERE user_id = $1;
`
	deals, err := selectRows(ctx, d, q, scanDeal, userID)
	if err != nil {
		return nil, fmt.Errorf("get user deals: %w", err)
	}
	return deals, nil
}

// GetUserDealByProductID returns the user's unpaid deals for a product.
func (d *Database) GetUserDealByProductID(ctx context.Context, userID int64, productID int) ([]Deal, error) {
	const q = `
SELECT id, user_id, deal_id, product_id, opportunity, paid, create_time
FROM deals
WHERE user_id = $1 AND product_id = $2 AND paid = FALSE;
`
	deals, err := selectRows(ctx, d, q, scanDeal, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("get user deal by product id: %w", err)
	}
	return deals, nil
}

// SetPaidDeal flips the paid flag on the deal. Applying it again is a no-op,
// never an error.
func (d *Database) SetPaidDeal(ctx context.Context, dealID int) error {
	const q = `UPDATE deals SET paid = TRUE WHERE deal_id = $1;`
	if err := d.Update(ctx, q, dealID); err != nil {
		return fmt.Errorf("set paid deal: %w", err)
	}
	return nil
}

func scanDeal(rows pgx.Rows) (Deal, error) {
	var deal Deal
	err := rows.Scan(&deal.ID, &deal.UserID, &deal.DealID, &deal.ProductID, &deal.Opportunity, &deal.Paid, &deal.CreateTime)
	return deal, err
}
