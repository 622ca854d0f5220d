package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ReplaceProducts refreshes the catalog mirror: the table is truncated and
// the new snapshot reinserted row by row. Each statement runs in its own
// transaction, so readers can observe an empty or partially filled table
// while a refresh is in flight.
func (d *Database) ReplaceProducts(ctx context.Context, products []Product) error {
	if err := d.Update(ctx, `TRUNCATE TABLE products;`); err != nil {
		return fmt.Errorf("truncate products: %w", err)
	}

	const q = `
INSERT INTO products (id, name, active_from, active_to, price, currency_id, description)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	for _, p := range products {
		if err := d.Update(ctx, q, p.ID, p.Name, p.ActiveFrom, p.ActiveTo, p.Price, p.CurrencyID, p.Description); err != nil {
			return fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}
	return nil
}

// GetProducts returns the current catalog snapshot.
func (d *Database) GetProducts(ctx context.Context) ([]Product, error) {
	const q = `
SELECT id, name, active_from, active_to, price, currency_id, description
FROM products;
`
	products, err := selectRows(ctx, d, q, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return products, nil
}

// GetProductByID returns a single catalog entry, or ErrNotFound when the id
// is absent from the current snapshot.
func (d *Database) GetProductByID(ctx context.Context, productID int) (*Product, error) {
	const q = `
SELECT id, name, active_from, active_to, price, currency_id, description
FROM products
WHERE id = $1;
`
	products, err := selectRows(ctx, d, q, scanProduct, productID)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("get product by id %d: %w", productID, ErrNotFound)
	}
	return &products[0], nil
}

func scanProduct(rows pgx.Rows) (Product, error) {
	var p Product
	err := rows.Scan(&p.ID, &p.Name, &p.ActiveFrom, &p.ActiveTo, &p.Price, &p.CurrencyID, &p.Description)
	return p, err
}
