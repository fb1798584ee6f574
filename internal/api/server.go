// Package api exposes the ledger operations over HTTP/JSON.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/accounts"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/profit"
)

type Server struct {
	accounts       *accounts.Service
	engine         *profit.Engine
	profitConfig   profit.Config
	logger         *slog.Logger
	metricsEnabled bool
}

func NewServer(accountService *accounts.Service, engine *profit.Engine, profitConfig profit.Config, logger *slog.Logger) *Server {
	return &Server{
		accounts:     accountService,
		engine:       engine,
		profitConfig: profitConfig,
		logger:       logger,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", s.handleSignup)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAccount)
			r.Post("/deposit", s.handleDeposit)
			r.Post("/withdraw", s.handleWithdraw)
			r.Post("/profit-runs", s.handleRunProfit)
			r.Get("/profit-runs", s.handleListRuns)
			r.Get("/transactions", s.handleTransactions)
			r.Get("/team", s.handleTeam)
			r.Get("/reconcile", s.handleReconcile)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateKey), errors.Is(err, models.ErrReferralCycle),
		errors.Is(err, models.ErrReconciliation):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
