package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AddNewUser inserts the user row. Each external identity is inserted once;
// a repeated insert violates the user_id unique constraint and surfaces to
// the caller.
func (d *Database) AddNewUser(ctx context.Context, userID int64, username *string, fullName string) error {
	const q = `INSERT INTO users (user_id, username, full_name) VALUES ($1, $2, $3);`
	if err := d.Update(ctx, q, userID, username, fullName); err != nil {
		return fmt.Errorf("add new user: %w", err)
	}
	return nil
}

// IsUserExist reports whether a row exists for the external identity.
func (d *Database) IsUserExist(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT id FROM users WHERE user_id = $1;`
	ids, err := selectRows(ctx, d, q, func(rows pgx.Rows) (int64, error) {
		var id int64
		err := rows.Scan(&id)
		return id, err
	}, userID)
	if err != nil {
		return false, fmt.Errorf("is user exist: %w", err)
	}
	return len(ids) > 0, nil
}

// GetUserData returns the full user row.
func (d *Database) GetUserData(ctx context.Context, userID int64) (*User, error) {
	const q = `
SELECT id, user_id, username, full_name, b24_id, im_link_b24, lead_id
FROM users
WHERE user_id = $1;
`
	users, err := selectRows(ctx, d, q, scanUser, userID)
	if err != nil {
		return nil, fmt.Errorf("get user data: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("get user data %d: %w", userID, ErrNotFound)
	}
	return &users[0], nil
}

func scanUser(rows pgx.Rows) (User, error) {
	var u User
	err := rows.Scan(&u.ID, &u.UserID, &u.Username, &u.FullName, &u.B24ID, &u.IMLinkB24, &u.LeadID)
	return u, err
}

// SetB24ID attaches the CRM contact reference once it becomes known.
func (d *Database) SetB24ID(ctx context.Context, userID int64, b24ID int) error {
	const q = `UPDATE users SET b24_id = $2 WHERE user_id = $1;`
	if err := d.Update(ctx, q, userID, b24ID); err != nil {
		return fmt.Errorf("set b24 id: %w", err)
	}
	return nil
}

// SetIMLink attaches the CRM open-line messaging link.
func (d *Database) SetIMLink(ctx context.Context, userID int64, imLink string) error {
	const q = `UPDATE users SET im_link_b24 = $2 WHERE user_id = $1;`
	if err := d.Update(ctx, q, userID, imLink); err != nil {
		return fmt.Errorf("set im link: %w", err)
	}
	return nil
}

// SetLeadID attaches the CRM lead reference.
func (d *Database) SetLeadID(ctx context.Context, userID int64, leadID int) error {
	const q = `UPDATE users SET lead_id = $2 WHERE user_id = $1;`
	if err := d.Update(ctx, q, userID, leadID); err != nil {
		return fmt.Errorf("set lead id: %w", err)
	}
	return nil
}

// IsB24ContactExist reports whether the user already carries a CRM contact
// reference.
func (d *Database) IsB24ContactExist(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT b24_id FROM users WHERE user_id = $1;`
	ids, err := selectRows(ctx, d, q, func(rows pgx.Rows) (*int, error) {
		var id *int
		err := rows.Scan(&id)
		return id, err
	}, userID)
	if err != nil {
		return false, fmt.Errorf("is b24 contact exist: %w", err)
	}
	if len(ids) == 0 {
		return false, fmt.Errorf("is b24 contact exist %d: %w", userID, ErrNotFound)
	}
	return ids[0] != nil, nil
}
