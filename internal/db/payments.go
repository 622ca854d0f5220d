package db

import (
	"context"
	"fmt"
)

// AddPayment parses the invoice payload carried by the payment notification
// and stores the payment record. A malformed payload fails this record only;
// nothing is written.
func (d *Database) AddPayment(ctx context.Context, userID int64, payment SuccessfulPayment) error {
	productID, dealID, err := ParseInvoicePayload(payment.InvoicePayload)
	if err != nil {
		return fmt.Errorf("add payment: %w", err)
	}

	const q = `
INSERT INTO payments (user_id, currency, total_amount, product_id, deal_id,
	telegram_payment_charge_id, provider_payment_charge_id)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	if err := d.Update(ctx, q,
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
