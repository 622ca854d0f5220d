package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteDatabase provides the Store surface on a local SQLite file, used for
// development deployments that run without Postgres.
type SQLiteDatabase struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens a connection to the SQLite database. The same pool bounds
// apply, enforced by database/sql.
func NewSQLite(ctx context.Context, databasePath string, cfg PoolConfig, logger *slog.Logger) (*SQLiteDatabase, error) {
	cfg.applyDefaults()

	path := strings.TrimSpace(databasePath)
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}

	// Busy timeout and WAL mode keep concurrent writers from failing with
	// SQLITE_BUSY.
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn = fmt.Sprintf("%s%s_pragma=busy_timeout=10000&_pragma=journal_mode=WAL&_pragma=foreign_keys=ON", dsn, sep)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(int(cfg.MaxConns))
	sqlDB.SetMaxIdleConns(int(cfg.MinConns))
	sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteDatabase{
		db:     sqlDB,
		logger: logger.With("component", "db_sqlite"),
	}, nil
}

// Close releases the database connection.
func (s *SQLiteDatabase) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Ping ensures the database is reachable.
func (s *SQLiteDatabase) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SQLite dialect of the schema: AUTOINCREMENT instead of SERIAL, everything
// else carried over.
var sqliteCreateTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER UNIQUE,
	username TEXT,
	full_name TEXT,
	b24_id INTEGER,
	im_link_b24 TEXT,
	lead_id INTEGER);`,

	`CREATE TABLE IF NOT EXISTS deals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER,
	deal_id INTEGER,
	product_id INTEGER,
	opportunity REAL,
	paid BOOLEAN DEFAULT FALSE,
	create_time TIMESTAMP);`,

	`CREATE TABLE IF NOT EXISTS admin_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	start_message TEXT);`,

	`CREATE TABLE IF NOT EXISTS buttons_stat (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER,
	button_name TEXT,
	count INTEGER,
	UNIQUE (user_id, button_name));`,

	`CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY,
	name TEXT,
	active_from TIMESTAMP,
	active_to TIMESTAMP,
	price REAL,
	currency_id TEXT,
	description TEXT);`,

	`CREATE TABLE IF NOT EXISTS payments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER,
	currency TEXT,
	total_amount INTEGER,
	product_id INTEGER,
	deal_id INTEGER,
	telegram_payment_charge_id TEXT,
	provider_payment_charge_id TEXT);`,
}

// CreateTables establishes the schema at startup.
func (s *SQLiteDatabase) CreateTables(ctx context.Context) error {
	for _, stmt := range sqliteCreateTableStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// RunMigrations applies SQL files in lexicographical order.
func (s *SQLiteDatabase) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	files, err := listMigrations(filesystem)
	if err != nil {
		return err
	}

	for _, name := range files {
		sqlBytes, err := fs.ReadFile(filesystem, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if len(sqlBytes) == 0 {
			continue
		}
		if _, err := s.db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
	}
	return nil
}
