package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"b24-bot/internal/db"
)

func newTestServer(t *testing.T) (*Server, db.Store) {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")
	store, err := db.NewSQLite(ctx, path, db.PoolConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.CreateTables(ctx); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}

	server := New(":0", testLogger(), nil, Dependencies{Store: store}, "")
	return server, store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}
}

func TestPaymentWebhook(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()

	if err := store.AddNewDeal(ctx, 42, 900, 7, 150.0); err != nil {
		t.Fatalf("AddNewDeal: %v", err)
	}

	body := `{"user_id":42,"payment":{"currency":"RUB","total_amount":15000,"invoice_payload":"7:900","telegram_payment_charge_id":"tg-1","provider_payment_charge_id":"prov-1"}}`
	rec := doRequest(t, server, http.MethodPost, "/webhook/payment", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		DealID int    `json:"deal_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.DealID != 900 {
		t.Errorf("response = %+v", resp)
	}

	// The referenced deal must now be excluded from the unpaid listing.
	open, err := store.GetUserDealByProductID(ctx, 42, 7)
	if err != nil {
		t.Fatalf("GetUserDealByProductID: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("open deals after payment = %+v, want none", open)
	}
}

func TestPaymentWebhookRejectsBadInput(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{{{`},
		{name: "missing user id", body: `{"payment":{"invoice_payload":"7:900"}}`},
		{name: "malformed payload", body: `{"user_id":42,"payment":{"invoice_payload":"no-delimiter"}}`},
		{name: "empty payload", body: `{"user_id":42,"payment":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, server, http.MethodPost, "/webhook/payment", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}

	rec := doRequest(t, server, http.MethodGet, "/webhook/payment", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rec.Code)
	}
}

func TestStartMessageEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/admin/start-message", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET before seed: status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, server, http.MethodPost, "/admin/start-message", `{"start_message":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST empty message: status = %d, want 400", rec.Code)
	}
}

func TestButtonStatsEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()

	if err := store.AddButtonCount(ctx, 42, "buy"); err != nil {
		t.Fatalf("AddButtonCount: %v", err)
	}

	rec := doRequest(t, server, http.MethodGet, "/admin/button-stats?user_id=42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		UserID  int64 `json:"user_id"`
		Buttons []struct {
			ButtonName string `json:"button_name"`
			Count      int    `json:"count"`
		} `json:"buttons"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Buttons) != 1 || resp.Buttons[0].ButtonName != "buy" || resp.Buttons[0].Count != 1 {
		t.Errorf("response = %+v", resp)
	}

	rec = doRequest(t, server, http.MethodGet, "/admin/button-stats", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id: status = %d, want 400", rec.Code)
	}
}

func TestRefreshProductsWithoutSyncer(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/admin/refresh-products", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestBasePathMount(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")
	store, err := db.NewSQLite(ctx, path, db.PoolConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.CreateTables(ctx); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}

	server := New(":0", testLogger(), nil, Dependencies{Store: store}, "/bot")

	rec := doRequest(t, server, http.MethodGet, "/bot/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("prefixed path: status = %d, want 200", rec.Code)
	}
	rec = doRequest(t, server, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unprefixed path: status = %d, want 404", rec.Code)
	}
}

func TestNormaliseBasePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"bot", "/bot"},
		{"/bot", "/bot"},
		{"/bot/", "/bot"},
		{" /bot ", "/bot"},
	}
	for _, tt := range tests {
		if got := normaliseBasePath(tt.in); got != tt.want {
			t.Errorf("normaliseBasePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
