package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"b24-bot/internal/catalog"
	"b24-bot/internal/db"
	"b24-bot/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies exposes core components to the handlers.
type Dependencies struct {
	Store  db.Store
	Syncer *catalog.Syncer
}

// Server wraps an http.Server with the bot's admin and webhook routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
	basePath   string
}

// New creates a new HTTP server listening on addr.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies, basePath string) *Server {
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		deps:     deps,
		basePath: normaliseBasePath(basePath),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", server.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/admin/refresh-products", server.handleRefreshProducts)
	mux.HandleFunc("/admin/start-message", server.handleStartMessage)
	mux.HandleFunc("/admin/button-stats", server.handleButtonStats)
	mux.HandleFunc("/webhook/payment", server.handlePaymentWebhook)

	handler := server.withRequestID(mountWithBasePath(server.basePath, mux))

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}

	return server
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRefreshProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.deps.Syncer == nil {
		http.Error(w, "catalog syncer unavailable", http.StatusServiceUnavailable)
		return
	}

	stats, err := s.deps.Syncer.Refresh(r.Context())
	if err != nil {
		s.logger.Error("manual catalog refresh failed", "error", err)
		http.Error(w, "catalog refresh failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStartMessage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		msg, err := s.deps.Store.GetStartMessage(r.Context())
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				http.Error(w, "start message not configured", http.StatusNotFound)
				return
			}
			s.logger.Error("read start message failed", "error", err)
			http.Error(w, "read start message failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"start_message": msg})

	case http.MethodPost:
		var body struct {
			StartMessage string `json:"start_message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.StartMessage == "" {
			http.Error(w, "start_message is required", http.StatusBadRequest)
			return
		}
		if err := s.deps.Store.SetStartMessage(r.Context(), body.StartMessage); err != nil {
			s.logger.Error("update start message failed", "error", err)
			http.Error(w, "update start message failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleButtonStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	stats, err := s.deps.Store.GetButtonStats(r.Context(), userID)
	if err != nil {
		s.logger.Error("read button stats failed", "error", err, "user_id", userID)
		http.Error(w, "read button stats failed", http.StatusInternalServerError)
		return
	}

	type statEntry struct {
		ButtonName string `json:"button_name"`
		Count      int    `json:"count"`
	}
	out := make([]statEntry, 0, len(stats))
	for _, stat := range stats {
		out = append(out, statEntry{ButtonName: stat.ButtonName, Count: stat.Count})
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "buttons": out})
}

// paymentNotification is the payload delivered when a Telegram payment
// succeeds.
type paymentNotification struct {
	UserID  int64                `json:"user_id"`
	Payment db.SuccessfulPayment `json:"payment"`
}

func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var note paymentNotification
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if note.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	_, dealID, err := db.ParseInvoicePayload(note.Payment.InvoicePayload)
	if err != nil {
		http.Error(w, "invalid invoice payload", http.StatusBadRequest)
		return
	}

	if err := s.deps.Store.AddPayment(r.Context(), note.UserID, note.Payment); err != nil {
		s.logger.Error("record payment failed", "error", err, "user_id", note.UserID)
		http.Error(w, "record payment failed", http.StatusInternalServerError)
		return
	}
	if err := s.deps.Store.SetPaidDeal(r.Context(), dealID); err != nil {
		s.logger.Error("mark deal paid failed", "error", err, "deal_id", dealID)
		http.Error(w, "mark deal paid failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "deal_id": dealID})
}

// withRequestID stamps every request with an id and records it in metrics.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(recorder, r)

		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		}
		s.logger.Debug("request handled",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(started))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}
