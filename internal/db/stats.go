package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AddButtonCount inserts the (user, button) counter at 1 or increments the
// existing row. The upsert must stay a single statement: concurrent taps on
// the same button otherwise lose updates.
func (d *Database) AddButtonCount(ctx context.Context, userID int64, buttonName string) error {
	const q = `
INSERT INTO buttons_stat (user_id, button_name, count)
VALUES ($1, $2, 1)
ON CONFLICT (user_id, button_name) DO UPDATE
SET count = buttons_stat.count + 1;
`
	if err := d.Update(ctx, q, userID, buttonName); err != nil {
		return fmt.Errorf("add button count: %w", err)
	}
	return nil
}

// GetButtonStats returns the user's button counters, most used first.
func (d *Database) GetButtonStats(ctx context.Context, userID int64) ([]ButtonStat, error) {
	const q = `
SELECT id, user_id, button_name, count
FROM buttons_stat
WHERE user_id = $1
ORDER BY count DESC;
`
	stats, err := selectRows(ctx, d, q, func(rows pgx.Rows) (ButtonStat, error) {
		var s ButtonStat
		err := rows.Scan(&s.ID, &s.UserID, &s.ButtonName, &s.Count)
		return s, err
	}, userID)
	if err != nil {
		return nil, fmt.Errorf("get button stats: %w", err)
	}
	return stats, nil
}

// GetStartMessage returns the configurable greeting text.
func (d *Database) GetStartMessage(ctx context.Context) (string, error) {
	const q = `SELECT start_message FROM admin_messages;`
	messages, err := selectRows(ctx, d, q, func(rows pgx.Rows) (string, error) {
		var msg string
		err := rows.Scan(&msg)
		return msg, err
	})
	if err != nil {
		return "", fmt.Errorf("get start message: %w", err)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("get start message: %w", ErrNotFound)
	}
	return messages[0], nil
}

// SetStartMessage replaces the greeting text.
func (d *Database) SetStartMessage(ctx context.Context, message string) error {
	const q = `UPDATE admin_messages SET start_message = $1;`
	if err := d.Update(ctx, q, message); err != nil {
		return fmt.Errorf("set start message: %w", err)
	}
	return nil
}
