package catalog

import (
	"testing"
	"time"

	"b24-bot/internal/b24"
)

func TestParseActiveTime(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "with timezone suffix",
			value: "2024-01-01T10:30:00+03:00",
			want:  time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "without timezone suffix",
			value: "2024-01-01T10:30:00",
			want:  time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		},
		{name: "empty", value: "", wantErr: true},
		{name: "date only", value: "2024-01-01", wantErr: true},
		{name: "garbage", value: "not-a-time", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseActiveTime(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseActiveTime(%q) expected error, got %v", tt.value, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseActiveTime(%q): %v", tt.value, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseActiveTime(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestConvertEntry(t *testing.T) {
	entry := b24.ProductEntry{
		ID:             7,
		Name:           "Consultation",
		DetailText:     "One hour",
		DateActiveFrom: "2024-01-01T00:00:00+03:00",
		DateActiveTo:   "2030-01-01T00:00:00+03:00",
		Price:          150.5,
		CurrencyID:     "RUB",
	}

	product, err := convertEntry(entry)
	if err != nil {
		t.Fatalf("convertEntry: %v", err)
	}
	if product.ID != 7 || product.Name != "Consultation" || product.Description != "One hour" {
		t.Errorf("unexpected product: %+v", product)
	}
	if product.Price != 150.5 || product.CurrencyID != "RUB" {
		t.Errorf("unexpected price fields: %+v", product)
	}
	if product.ActiveFrom.Year() != 2024 || product.ActiveTo.Year() != 2030 {
		t.Errorf("unexpected active window: %v .. %v", product.ActiveFrom, product.ActiveTo)
	}
}

func TestConvertEntryRejectsBadRecords(t *testing.T) {
	tests := []struct {
		name  string
		entry b24.ProductEntry
	}{
		{name: "missing id", entry: b24.ProductEntry{Name: "X", DateActiveFrom: "2024-01-01T00:00:00", DateActiveTo: "2030-01-01T00:00:00"}},
		{name: "bad active from", entry: b24.ProductEntry{ID: 7, DateActiveFrom: "soon", DateActiveTo: "2030-01-01T00:00:00"}},
		{name: "bad active to", entry: b24.ProductEntry{ID: 7, DateActiveFrom: "2024-01-01T00:00:00", DateActiveTo: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := convertEntry(tt.entry); err == nil {
				t.Fatalf("convertEntry(%+v) expected error", tt.entry)
			}
		})
	}
}
