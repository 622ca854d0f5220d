package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database provides typed access to the bot's Postgres storage through a
// bounded connection pool. The pool is opened lazily on first use, so callers
// never need to sequence Connect explicitly.
type Database struct {
	dsn    string
	cfg    PoolConfig
	logger *slog.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MinConns        int32
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	// AcquireTimeout caps how long an operation waits for a free connection
	// when the pool is exhausted.
	AcquireTimeout time.Duration
}

// Default pool bounds, used when the corresponding field is zero.
const (
	DefaultMinConns        = 2
	DefaultMaxConns        = 10
	DefaultMaxConnLifetime = 30 * time.Minute
	DefaultMaxConnIdleTime = 30 * time.Second
	DefaultAcquireTimeout  = 30 * time.Second
)

func (c *PoolConfig) applyDefaults() {
	if c.MinConns == 0 {
		c.MinConns = DefaultMinConns
	}
	if c.MaxConns == 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = DefaultMaxConnLifetime
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = DefaultMaxConnIdleTime
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}
}

// New prepares a Database handle without touching the network.
func New(dsn string, cfg PoolConfig, logger *slog.Logger) *Database {
	cfg.applyDefaults()
	return &Database{
		dsn:    dsn,
		cfg:    cfg,
		logger: logger.With("component", "db"),
	}
}

// Connect opens the connection pool. Calling it on an already connected
// Database is a no-op; operations that arrive before Connect open the pool
// themselves.
func (d *Database) Connect(ctx context.Context) error {
	_, err := d.ensurePool(ctx)
	return err
}

func (d *Database) ensurePool(ctx context.Context) (*pgxpool.Pool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool != nil {
		return d.pool, nil
	}

	poolCfg, err := pgxpool.ParseConfig(d.dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MinConns = d.cfg.MinConns
	poolCfg.MaxConns = d.cfg.MaxConns
	poolCfg.MaxConnLifetime = d.cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = d.cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d.pool = pool
	d.logger.Info("database pool opened",
		"min_conns", d.cfg.MinConns,
		"max_conns", d.cfg.MaxConns)
	return pool, nil
}

// Close releases the connection pool.
func (d *Database) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
}

// Ping ensures the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.ensurePool(ctx)
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// withTx acquires one connection, runs fn inside its own transaction and
// returns the connection to the pool on every exit path. Acquisition blocks
// at most AcquireTimeout when the pool is exhausted; a timed-out acquisition
// fails the operation without side effects.
func (d *Database) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	pool, err := d.ensurePool(ctx)
	if err != nil {
		return err
	}

	acquireCtx, cancel := context.WithTimeout(ctx, d.cfg.AcquireTimeout)
	defer cancel()
	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return pgx.BeginFunc(ctx, conn, fn)
}

// Update executes a single write statement inside its own transaction.
func (d *Database) Update(ctx context.Context, query string, args ...any) error {
	return d.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, args...)
		return err
	})
}

// selectRows runs a read statement inside its own transaction and scans every
// result row with scan. The transaction keeps the read from observing a
// half-applied product refresh.
func selectRows[T any](ctx context.Context, d *Database, query string, scan func(pgx.Rows) (T, error), args ...any) ([]T, error) {
	var out []T
	err := d.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				return err
			}
			out = append(out, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
