package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// newPostgresStore connects to the database named by TEST_DATABASE_URL and
// skips the test when it is unset. The schema is created fresh; tables are
// dropped afterwards so runs stay independent.
func newPostgresStore(t *testing.T, cfg PoolConfig) *Database {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store := New(dsn, cfg, testLogger())
	if err := store.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		dropTestTables(t, store)
		store.Close()
	})

	dropTestTables(t, store)
	if err := store.CreateTables(ctx); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	return store
}

func dropTestTables(t *testing.T, store *Database) {
	t.Helper()
	ctx := context.Background()
	for _, table := range []string{"users", "deals", "admin_messages", "buttons_stat", "products", "payments"} {
		if err := store.Update(ctx, "DROP TABLE IF EXISTS "+table+";"); err != nil {
			t.Fatalf("drop table %s: %v", table, err)
		}
	}
}

func TestPostgresLazyConnect(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	// No Connect call: the first operation must open the pool itself.
	store := New(dsn, PoolConfig{}, testLogger())
	t.Cleanup(store.Close)

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping without Connect: %v", err)
	}
	// Explicit Connect afterwards is a no-op.
	if err := store.Connect(context.Background()); err != nil {
		t.Fatalf("Connect on live pool: %v", err)
	}
}

func TestPostgresUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newPostgresStore(t, PoolConfig{})

	if err := store.AddNewUser(ctx, 42, strPtr("alice"), "Alice Smith"); err != nil {
		t.Fatalf("AddNewUser: %v", err)
	}
	exists, err := store.IsUserExist(ctx, 42)
	if err != nil {
		t.Fatalf("IsUserExist: %v", err)
	}
	if !exists {
		t.Fatal("user 42 should exist")
	}

	if err := store.SetB24ID(ctx, 42, 777); err != nil {
		t.Fatalf("SetB24ID: %v", err)
	}
	user, err := store.GetUserData(ctx, 42)
	if err != nil {
		t.Fatalf("GetUserData: %v", err)
	}
	if user.B24ID == nil || *user.B24ID != 777 {
		t.Errorf("b24 id = %v, want 777", user.B24ID)
	}

	if _, err := store.GetUserData(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}
}

func TestPostgresProductRefresh(t *testing.T) {
	ctx := context.Background()
	store := newPostgresStore(t, PoolConfig{})

	if err := store.ReplaceProducts(ctx, []Product{
		{ID: 7, Name: "Consultation", ActiveFrom: time.Now().UTC(), ActiveTo: time.Now().UTC().Add(24 * time.Hour), Price: 150, CurrencyID: "RUB"},
	}); err != nil {
		t.Fatalf("ReplaceProducts: %v", err)
	}
	if err := store.ReplaceProducts(ctx, []Product{
		{ID: 99, Name: "Webinar", ActiveFrom: time.Now().UTC(), ActiveTo: time.Now().UTC().Add(24 * time.Hour), Price: 50, CurrencyID: "USD"},
	}); err != nil {
		t.Fatalf("ReplaceProducts refresh: %v", err)
	}

	if _, err := store.GetProductByID(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old product after refresh: got %v, want ErrNotFound", err)
	}
	products, err := store.GetProducts(ctx)
	if err != nil {
		t.Fatalf("GetProducts: %v", err)
	}
	if len(products) != 1 || products[0].ID != 99 {
		t.Fatalf("products = %+v, want only id 99", products)
	}
}

// A pool of one connection must time out cleanly, not deadlock, when an
// operation arrives while the connection is held.
func TestPostgresAcquireTimeout(t *testing.T) {
	ctx := context.Background()
	store := newPostgresStore(t, PoolConfig{
		MinConns:       1,
		MaxConns:       1,
		AcquireTimeout: 200 * time.Millisecond,
	})

	pool, err := store.ensurePool(ctx)
	if err != nil {
		t.Fatalf("ensurePool: %v", err)
	}

	// Hold the only connection.
	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer conn.Release()

	start := time.Now()
	err = store.Update(ctx, "UPDATE admin_messages SET start_message = $1;", "blocked")
	if err == nil {
		t.Fatal("Update with exhausted pool must fail")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("acquire timeout took %v, expected roughly 200ms", elapsed)
	}
}

func TestPostgresButtonUpsert(t *testing.T) {
	ctx := context.Background()
	store := newPostgresStore(t, PoolConfig{})

	for i := 0; i < 5; i++ {
		if err := store.AddButtonCount(ctx, 1, "buy"); err != nil {
			t.Fatalf("AddButtonCount: %v", err)
		}
	}
	stats, err := store.GetButtonStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetButtonStats: %v", err)
	}
	if len(stats) != 1 || stats[0].Count != 5 {
		t.Fatalf("stats = %+v, want one row with count 5", stats)
	}
}
