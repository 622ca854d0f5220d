package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"b24-bot/internal/b24"
	"b24-bot/internal/db"
	"b24-bot/internal/metrics"
)

// Bitrix timestamps carry a timezone suffix the bot strips before parsing.
const activeTimeLayout = "2006-01-02T15:04:05"

// Syncer keeps the local products table in step with the CRM catalog.
type Syncer struct {
	crm      *b24.Client
	store    db.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

// Stats summarises one refresh run.
type Stats struct {
	Fetched int `json:"fetched"`
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
}

// New creates a Syncer refreshing every interval when Run is used.
func New(crm *b24.Client, store db.Store, m *metrics.Metrics, logger *slog.Logger, interval time.Duration) *Syncer {
	return &Syncer{
		crm:      crm,
		store:    store,
		logger:   logger.With("component", "catalog"),
		metrics:  m,
		interval: interval,
	}
}

// Refresh replaces the products mirror with the current CRM catalog. A
// malformed entry fails only that record: it is logged, counted and skipped.
func (s *Syncer) Refresh(ctx context.Context) (Stats, error) {
	entries, err := s.crm.GetProductList(ctx, true)
	if err != nil {
		s.count("error")
		return Stats{}, fmt.Errorf("fetch product list: %w", err)
	}

	stats := Stats{Fetched: len(entries)}
	products := make([]db.Product, 0, len(entries))
	for _, entry := range entries {
		product, err := convertEntry(entry)
		if err != nil {
			s.logger.Warn("skipping product entry", "product_id", entry.ID, "error", err)
			stats.Skipped++
			continue
		}
		products = append(products, product)
	}

	if err := s.store.ReplaceProducts(ctx, products); err != nil {
		s.count("error")
		return stats, fmt.Errorf("replace products: %w", err)
	}
	stats.Synced = len(products)

	s.count("ok")
	if s.metrics != nil {
		s.metrics.CatalogProducts.Set(float64(stats.Synced))
	}
	s.logger.Info("product catalog refreshed",
		"fetched", stats.Fetched,
		"synced", stats.Synced,
		"skipped", stats.Skipped)
	return stats, nil
}

// Run refreshes the catalog on a fixed interval until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Error("scheduled catalog refresh failed", "error", err)
			}
		}
	}
}

func (s *Syncer) count(status string) {
	if s.metrics != nil {
		s.metrics.CatalogRefreshes.WithLabelValues(status).Inc()
	}
}

func convertEntry(entry b24.ProductEntry) (db.Product, error) {
	if entry.ID == 0 {
		return db.Product{}, fmt.Errorf("product entry has no id")
	}
	activeFrom, err := parseActiveTime(entry.DateActiveFrom)
	if err != nil {
		return db.Product{}, err
	}
	activeTo, err := parseActiveTime(entry.DateActiveTo)
	if err != nil {
		return db.Product{}, err
	}

	return db.Product{
		ID:          entry.ID,
		Name:        entry.Name,
		ActiveFrom:  activeFrom,
		ActiveTo:    activeTo,
		Price:       entry.Price,
		CurrencyID:  entry.CurrencyID,
		Description: entry.DetailText,
	}, nil
}

func parseActiveTime(value string) (time.Time, error) {
	trimmed, _, _ := strings.Cut(value, "+")
	parsed, err := time.Parse(activeTimeLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse active time %q: %w", value, err)
	}
	return parsed, nil
}
