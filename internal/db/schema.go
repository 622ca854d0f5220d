package db

import (
	"context"
	"fmt"
)

// Table definitions for the bot's six tables. Every statement is idempotent
// and routed through Update like any other write.
var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	user_id BIGINT CONSTRAINT uk_users_user_id UNIQUE,
	username TEXT,
	full_name TEXT,
	b24_id INT,
	im_link_b24 TEXT,
	lead_id INT);`,

	`CREATE TABLE IF NOT EXISTS deals (
	id SERIAL PRIMARY KEY,
	user_id BIGINT,
	deal_id INT,
	product_id INT,
	opportunity REAL,
	paid BOOLEAN DEFAULT FALSE,
	create_time TIMESTAMP);`,

	`CREATE TABLE IF NOT EXISTS admin_messages (
	id SERIAL PRIMARY KEY,
	start_message TEXT);`,

	`CREATE TABLE IF NOT EXISTS buttons_stat (
	id SERIAL PRIMARY KEY,
	user_id BIGINT,
	button_name TEXT,
	count INT,
	CONSTRAINT unique_user_button UNIQUE (user_id, button_name));`,

	`CREATE TABLE IF NOT EXISTS products (
	id INT PRIMARY KEY,
	name TEXT,
	active_from TIMESTAMP,
	active_to TIMESTAMP,
	price REAL,
	currency_id TEXT,
	description TEXT);`,

	`CREATE TABLE IF NOT EXISTS payments (
	id SERIAL PRIMARY KEY,
	user_id BIGINT,
	currency TEXT,
	total_amount INT,
	product_id INT,
	deal_id INT,
	telegram_payment_charge_id TEXT,
	provider_payment_charge_id TEXT);`,
}

// CreateTables establishes the schema at startup.
func (d *Database) CreateTables(ctx context.Context) error {
	for _, stmt := range createTableStatements {
		if err := d.Update(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}
