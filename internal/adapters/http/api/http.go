// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"

	service "github.com/okian/bodymetrics/internal/app"
	"github.com/okian/bodymetrics/internal/adapters/repository"
	"github.com/okian/bodymetrics/internal/domain/engine"
	"github.com/okian/bodymetrics/internal/domain/model"
	"github.com/okian/bodymetrics/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SampleDependencies
	ProfileDependencies
	EstimateDependencies
	ScoreDependencies
	PrewarmDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	samplesHandler  *SamplesHandler
	profileHandler  *ProfileHandler
	estimateHandler *EstimateHandler
	scoreHandler    *ScoreHandler
	prewarmHandler  *PrewarmHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		samplesHandler:  NewSamplesHandler(deps),
		profileHandler:  NewProfileHandler(deps),
		estimateHandler: NewEstimateHandler(deps),
		scoreHandler:    NewScoreHandler(deps),
		prewarmHandler:  NewPrewarmHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /samples/{user}", MetricsMiddleware(s.samplesHandler.HandlePostSample, "samples"))
	mux.HandleFunc("DELETE /samples/{user}", MetricsMiddleware(s.samplesHandler.HandleDeleteSample, "samples"))
	mux.HandleFunc("GET /samples/{user}", MetricsMiddleware(s.samplesHandler.HandleGetSeries, "samples"))

	mux.HandleFunc("PUT /profile/{user}", MetricsMiddleware(s.profileHandler.HandlePutProfile, "profile"))
	mux.HandleFunc("GET /profile/{user}", MetricsMiddleware(s.profileHandler.HandleGetProfile, "profile"))

	mux.HandleFunc("GET /estimate/{user}", MetricsMiddleware(s.estimateHandler.HandleGetEstimate, "estimate"))
	mux.HandleFunc("GET /chart/{user}", MetricsMiddleware(s.estimateHandler.HandleGetChart, "chart"))
	mux.HandleFunc("GET /score/{user}", MetricsMiddleware(s.scoreHandler.HandleGetScore, "score"))
	mux.HandleFunc("POST /prewarm/{user}", MetricsMiddleware(s.prewarmHandler.HandlePostPrewarm, "prewarm"))
}

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// decodeBody reads at most maxBodyBytes of r's body and decodes it into v.
func decodeBody(w http.ResponseWriter, r *http.Request, op string, v any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrBodyTooLarge, err)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := go_json.Unmarshal(data, v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = go_json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps upstream error kinds to a status code and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, scoring.ErrIncompleteInput):
		return http.StatusUnprocessableEntity, "incomplete_input"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidUser),
		errors.Is(err, repository.ErrInvalidSample),
		errors.Is(err, repository.ErrInvalidProfile),
		errors.Is(err, engine.ErrUnknownKind),
		errors.Is(err, engine.ErrUnknownMode),
		errors.Is(err, engine.ErrInvalidRange),
		errors.Is(err, engine.ErrRangeTooLarge),
		errors.Is(err, service.ErrInvalidRange):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func userParam(r *http.Request) (string, error) {
	user := strings.TrimSpace(r.PathValue("user"))
	if user == "" {
		return "", fmt.Errorf("%w: missing user", ErrBadRequest)
	}
	return user, nil
}

// dayParam parses a YYYY-MM-DD query parameter. Missing values use def, or
// fail when def is zero.
func dayParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		if def.IsZero() {
			return time.Time{}, fmt.Errorf("%w: missing %s", ErrBadRequest, name)
		}
		return model.Day(def), nil
	}
	d, err := model.ParseDay(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return d, nil
}

func kindParam(r *http.Request) (model.MetricKind, error) {
	v := r.URL.Query().Get("kind")
	if v == "" {
		return model.KindWeight, nil
	}
	k, err := model.ParseKind(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return k, nil
}

func modeParam(r *http.Request) (model.EstimateMode, error) {
	m, err := model.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return m, nil
}

// now is the default date for queries without one.
var now = time.Now
