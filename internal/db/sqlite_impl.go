package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// -- Users --

func (s *SQLiteDatabase) AddNewUser(ctx context.Context, userID int64, username *string, fullName string) error {
	const q = `INSERT INTO users (user_id, username, full_name) VALUES (?, ?, ?);`
	if _, err := s.db.ExecContext(ctx, q, userID, username, fullName); err != nil {
		return fmt.Errorf("add new user: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) IsUserExist(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT id FROM users WHERE user_id = ? LIMIT 1;`
	var id int64
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is user exist: %w", err)
	}
	return true, nil
}

func (s *SQLiteDatabase) GetUserData(ctx context.Context, userID int64) (*User, error) {
	const q = `
SELECT id, user_id, username, full_name, b24_id, im_link_b24, lead_id
FROM users
WHERE user_id = ?
LIMIT 1;
`
	var u User
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&u.ID, &u.UserID, &u.Username, &u.FullName, &u.B24ID, &u.IMLinkB24, &u.LeadID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get user data %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user data: %w", err)
	}
	return &u, nil
}

func (s *SQLiteDatabase) SetB24ID(ctx context.Context, userID int64, b24ID int) error {
	const q = `UPDATE users SET b24_id = ? WHERE user_id = ?;`
	if _, err := s.db.ExecContext(ctx, q, b24ID, userID); err != nil {
		return fmt.Errorf("set b24 id: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetIMLink(ctx context.Context, userID int64, imLink string) error {
	const q = `UPDATE users SET im_link_b24 = ? WHERE user_id = ?;`
	if _, err := s.db.ExecContext(ctx, q, imLink, userID); err != nil {
		return fmt.Errorf("set im link: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetLeadID(ctx context.Context, userID int64, leadID int) error {
	const q = `UPDATE users SET lead_id = ? WHERE user_id = ?;`
	if _, err := s.db.ExecContext(ctx, q, leadID, userID); err != nil {
		return fmt.Errorf("set lead id: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) IsB24ContactExist(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT b24_id FROM users WHERE user_id = ? LIMIT 1;`
	var b24ID *int
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&b24ID)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("is b24 contact exist %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("is b24 contact exist: %w", err)
	}
	return b24ID != nil, nil
}

// -- Deals --

func (s *SQLiteDatabase) AddNewDeal(ctx context.Context, userID int64, dealID, productID int, opportunity float64) error {
	const q = `
INSERT INTO deals (user_id, deal_id, product_id, opportunity, create_time)
VALUES (?, ?, ?, ?, ?);
`
	if _, err := s.db.ExecContext(ctx, q, userID, dealID, productID, opportunity, time.Now()); err != nil {
		return fmt.Errorf("add new deal: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) GetUserDeals(ctx context.Context, userID int64) ([]Deal, error) {
	const q = `
SELECT id, user_id, deal_id, product_id, opportunity, paid, create_time
FROM deals
WHERE user_id = ?;
`
	return s.queryDeals(ctx, q, userID)
}

func (s *SQLiteDatabase) GetUserDealByProductID(ctx context.Context, userID int64, productID int) ([]Deal, error) {
	const q = `
SELECT id, user_id, deal_id, product_id, opportunity, paid, create_time
FROM deals
WHERE user_id = ? AND product_id = ? AND paid = FALSE;
`
	return s.queryDeals(ctx, q, userID, productID)
}

func (s *SQLiteDatabase) queryDeals(ctx context.Context, query string, args ...any) ([]Deal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deals: %w", err)
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		var deal Deal
		if err := rows.Scan(&deal.ID, &deal.UserID, &deal.DealID, &deal.ProductID, &deal.Opportunity, &deal.Paid, &deal.CreateTime); err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deals: %w", err)
	}
	return deals, nil
}

func (s *SQLiteDatabase) SetPaidDeal(ctx context.Context, dealID int) error {
	const q = `UPDATE deals SET paid = TRUE WHERE deal_id = ?;`
	if _, err := s.db.ExecContext(ctx, q, dealID); err != nil {
		return fmt.Errorf("set paid deal: %w", err)
	}
	return nil
}

// -- Products --

func (s *SQLiteDatabase) ReplaceProducts(ctx context.Context, products []Product) error {
	// SQLite has no TRUNCATE.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM products;`); err != nil {
		return fmt.Errorf("truncate products: %w", err)
	}

	const q = `
INSERT INTO products (id, name, active_from, active_to, price, currency_id, description)
VALUES (?, ?, ?, ?, ?, ?, ?);
`
	for _, p := range products {
		if _, err := s.db.ExecContext(ctx, q, p.ID, p.Name, p.ActiveFrom, p.ActiveTo, p.Price, p.CurrencyID, p.Description); err != nil {
			return fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}
	return nil
}

func (s *SQLiteDatabase) GetProducts(ctx context.Context) ([]Product, error) {
	const q = `
SELECT id, name, active_from, active_to, price, currency_id, description
FROM products;
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.ActiveFrom, &p.ActiveTo, &p.Price, &p.CurrencyID, &p.Description); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (s *SQLiteDatabase) GetProductByID(ctx context.Context, productID int) (*Product, error) {
	const q = `
SELECT id, name, active_from, active_to, price, currency_id, description
FROM products
WHERE id = ?
LIMIT 1;
`
	var p Product
	err := s.db.QueryRowContext(ctx, q, productID).Scan(&p.ID, &p.Name, &p.ActiveFrom, &p.ActiveTo, &p.Price, &p.CurrencyID, &p.Description)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get product by id %d: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return &p, nil
}

// -- Payments --

func (s *SQLiteDatabase) AddPayment(ctx context.Context, userID int64, payment SuccessfulPayment) error {
	productID, dealID, err := ParseInvoicePayload(payment.InvoicePayload)
	if err != nil {
		return fmt.Errorf("add payment: %w", err)
	}

	const q = `
INSERT INTO payments (user_id, currency, total_amount, product_id, deal_id,
	telegram_payment_charge_id, provider_payment_charge_id)
VALUES (?, ?, ?, ?, ?, ?, ?);
`
	if _, err := s.db.ExecContext(ctx, q,
		userID,
		payment.Currency,
		payment.TotalAmount,
		productID,
		dealID,
		payment.TelegramPaymentChargeID,
		payment.ProviderPaymentChargeID,
	); err != nil {
		return fmt.Errorf("add payment: %w", err)
	}
	return nil
}

// -- Button stats --

func (s *SQLiteDatabase) AddButtonCount(ctx context.Context, userID int64, buttonName string) error {
	const q = `
INSERT INTO buttons_stat (user_id, button_name, count)
VALUES (?, ?, 1)
ON CONFLICT (user_id, button_name) DO UPDATE
SET count = count + 1;
`
	if _, err := s.db.ExecContext(ctx, q, userID, buttonName); err != nil {
		return fmt.Errorf("add button count: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) GetButtonStats(ctx context.Context, userID int64) ([]ButtonStat, error) {
	const q = `
SELECT id, user_id, button_name, count
FROM buttons_stat
WHERE user_id = ?
ORDER BY count DESC;
`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("get button stats: %w", err)
	}
	defer rows.Close()

	var stats []ButtonStat
	for rows.Next() {
		var stat ButtonStat
		if err := rows.Scan(&stat.ID, &stat.UserID, &stat.ButtonName, &stat.Count); err != nil {
			return nil, fmt.Errorf("scan button stat: %w", err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate button stats: %w", err)
	}
	return stats, nil
}

// -- Admin message --

func (s *SQLiteDatabase) GetStartMessage(ctx context.Context) (string, error) {
	const q = `SELECT start_message FROM admin_messages LIMIT 1;`
	var msg string
	err := s.db.QueryRowContext(ctx, q).Scan(&msg)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("get start message: %w", ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get start message: %w", err)
	}
	return msg, nil
}

func (s *SQLiteDatabase) SetStartMessage(ctx context.Context, message string) error {
	const q = `UPDATE admin_messages SET start_message = ?;`
	if _, err := s.db.ExecContext(ctx, q, message); err != nil {
		return fmt.Errorf("set start message: %w", err)
	}
	return nil
}
