// Package server exposes the recalculation engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/etnz/fintrack"
	"github.com/etnz/fintrack/date"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Recalculator runs recalculations. *fintrack.Engine implements it.
type Recalculator interface {
	Recalculate(ctx context.Context, accountIDs []string, startDate *date.Date) error
}

// RecalculateRequest is the body of POST /v1/recalculate. Both fields are
// optional: no account ids means all accounts, no start date a full run.
type RecalculateRequest struct {
	AccountIDs []string   `json:"accountIds,omitempty"`
	StartDate  *date.Date `json:"startDate,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Run   string `json:"run,omitempty"`
	Step  string `json:"step,omitempty"`
}

// NewRouter returns the HTTP handler of the service.
func NewRouter(engine Recalculator, metrics *Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/recalculate", recalculateHandler(engine, metrics, logger))
	})
	return r
}

func recalculateHandler(engine Recalculator, metrics *Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecalculateRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		// An empty body, chunked or not, is a full recalculation.
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}

		start := time.Now()
		err := engine.Recalculate(r.Context(), req.AccountIDs, req.StartDate)
		status, outcome := classify(err)
		metrics.observe(outcome, time.Since(start))
		if err == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		logger.Warn("recalculation rejected",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("outcome", outcome),
			zap.Error(err))
		resp := errorResponse{Error: err.Error()}
		var runErr *fintrack.RunError
		if errors.As(err, &runErr) {
			resp.Run, resp.Step = runErr.Run, runErr.Step
		}
		writeJSON(w, status, resp)
	}
}

// classify maps a recalculation error to a status code and a metric outcome.
func classify(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusNoContent, outcomeSuccess
	case errors.Is(err, fintrack.ErrPrecondition):
		return http.StatusBadRequest, outcomePrecondition
	case errors.Is(err, fintrack.ErrMissingReferenceData):
		return http.StatusUnprocessableEntity, outcomeMissingReference
	default:
		return http.StatusInternalServerError, outcomeError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
