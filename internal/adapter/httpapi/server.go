// Package httpapi exposes the rule and backtest services over an
// authenticated HTTP JSON API.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/backtest"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/rules"
)

// Server implements the dcaflow HTTP API
type Server struct {
	RuleService     *rules.Service
	BacktestService *backtest.Service

	validate *validator.Validate
	token    string
	log      zerolog.Logger
}

// NewServer creates a new API server instance
func NewServer(ruleService *rules.Service, backtestService *backtest.Service, token string, log zerolog.Logger) *Server {
	return &Server{
		RuleService:     ruleService,
		BacktestService: backtestService,
		validate:        validator.New(),
		token:           token,
		log:             log,
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /v1/rules", s.route("create_rule", s.handleCreateRule))
	mux.Handle("GET /v1/rules", s.route("list_rules", s.handleListRules))
	mux.Handle("GET /v1/rules/{id}", s.route("get_rule", s.handleGetRule))
	mux.Handle("PUT /v1/rules/{id}", s.route("update_rule", s.handleUpdateRule))
	mux.Handle("POST /v1/rules/{id}/fulfil", s.route("fulfil_rule", s.handleFulfilRule))
	mux.Handle("POST /v1/backtests", s.route("run_backtest", s.handleRunBacktest))

	return mux
}

// route chains the auth and metrics middleware around a handler
func (s *Server) route(name string, h http.HandlerFunc) http.Handler {
	return instrument(name, s.requireAuth(h))
}

// writeJSON serializes v to the response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the canonical error envelope
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// mapError translates service errors to HTTP status codes
func (s *Server) mapError(w http.ResponseWriter, err error) {
	var invalid domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoPriceData), errors.Is(err, domain.ErrRangeTooLarge):
		// One rejected request, never a partial report
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
