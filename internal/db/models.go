package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by single-row lookups with no matching row.
var ErrNotFound = errors.New("not found")

// User represents the users table row. CRM references are attached after the
// row is first created, hence the pointer fields.
type User struct {
	ID        int64
	UserID    int64
	Username  *string
	FullName  string
	B24ID     *int
	IMLinkB24 *string
	LeadID    *int
}

// Deal links a user to a CRM deal and a product. Rows are append-only except
// for the paid flag.
type Deal struct {
	ID          int64
	UserID      int64
	DealID      int
	ProductID   int
	Opportunity float64
	Paid        bool
	CreateTime  time.Time
}

// Product mirrors one catalog entry. The products table is replaced
// wholesale on each refresh, never patched.
type Product struct {
	ID          int
	Name        string
	ActiveFrom  time.Time
	ActiveTo    time.Time
	Price       float64
	CurrencyID  string
	Description string
}

// Payment is an immutable record of a completed transaction.
type Payment struct {
	ID                      int64
	UserID                  int64
	Currency                string
	TotalAmount             int
	ProductID               int
	DealID                  int
	TelegramPaymentChargeID string
	ProviderPaymentChargeID string
}

// ButtonStat counts interactions per (user, button) pair.
type ButtonStat struct {
	ID         int64
	UserID     int64
	ButtonName string
	Count      int
}

// SuccessfulPayment carries the fields of Telegram's payment notification
// consumed by AddPayment.
type SuccessfulPayment struct {
	Currency                string `json:"currency"`
	TotalAmount             int    `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
	ProviderPaymentChargeID string `json:"provider_payment_charge_id"`
}

// ParseInvoicePayload splits the "<product_id>:<deal_id>" payload attached to
// an invoice at purchase time.
func ParseInvoicePayload(payload string) (productID, dealID int, err error) {
	left, right, ok := strings.Cut(payload, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invoice payload %q: missing delimiter", payload)
	}
	productID, err = strconv.Atoi(left)
	if err != nil {
		return 0, 0, fmt.Errorf("invoice payload product id: %w", err)
	}
	dealID, err = strconv.Atoi(right)
	if err != nil {
		return 0, 0, fmt.Errorf("invoice payload deal id: %w", err)
	}
	return productID, dealID, nil
}
