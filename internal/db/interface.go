package db

import (
	"context"
	"io/fs"
)

// Store defines the interface for data persistence. Database implements it
// on Postgres, SQLiteDatabase on a local SQLite file.
type Store interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	CreateTables(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Users
	AddNewUser(ctx context.Context, userID int64, username *string, fullName string) error
	IsUserExist(ctx context.Context, userID int64) (bool, error)
	GetUserData(ctx context.Context, userID int64) (*User, error)
	SetB24ID(ctx context.Context, userID int64, b24ID int) error
	SetIMLink(ctx context.Context, userID int64, imLink string) error
	SetLeadID(ctx context.Context, userID int64, leadID int) error
	IsB24ContactExist(ctx context.Context, userID int64) (bool, error)

	// Deals
	AddNewDeal(ctx context.Context, userID int64, dealID, productID int, opportunity float64) error
	GetUserDeals(ctx context.Context, userID int64) ([]Deal, error)
	GetUserDealByProductID(ctx context.Context, userID int64, productID int) ([]Deal, error)
	SetPaidDeal(ctx context.Context, dealID int) error

	// Products
	ReplaceProducts(ctx context.Context, products []Product) error
	GetProducts(ctx context.Context) ([]Product, error)
	GetProductByID(ctx context.Context, productID int) (*Product, error)

	// Payments
	AddPayment(ctx context.Context, userID int64, payment SuccessfulPayment) error

	// Button stats
	AddButtonCount(ctx context.Context, userID int64, buttonName string) error
	GetButtonStats(ctx context.Context, userID int64) ([]ButtonStat, error)

	// Admin message
	GetStartMessage(ctx context.Context) (string, error)
	SetStartMessage(ctx context.Context, message string) error
}
