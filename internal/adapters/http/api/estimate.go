package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
)

// EstimateDependencies defines the estimate and chart operations.
type EstimateDependencies interface {
	Estimate(ctx context.Context, userID string, kind model.MetricKind, date time.Time, mode model.EstimateMode) (model.Resolved, error)
	Chart(ctx context.Context, userID string, kind model.MetricKind, from, to time.Time, mode model.EstimateMode) ([]model.ChartPoint, error)
}

// EstimateHandler handles estimate and chart requests.
type EstimateHandler struct {
	deps EstimateDependencies
}

// NewEstimateHandler creates a new estimate handler.
func NewEstimateHandler(deps EstimateDependencies) *EstimateHandler {
	return &EstimateHandler{deps: deps}
}

// HandleGetEstimate handles GET /estimate/{user}?kind=&date=&mode= requests.
// kind defaults to weight, date to today and mode to raw.
func (h *EstimateHandler) HandleGetEstimate(w http.ResponseWriter, r *http.Request) {
	user, err := userParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	date, err := dayParam(r, "date", now())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	mode, err := modeParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	res, err := h.deps.Estimate(r.Context(), user, kind, date, mode)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGetChart handles GET /chart/{user}?kind=&from=&to=&mode= requests.
// from is required; to defaults to today.
func (h *EstimateHandler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	user, err := userParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	from, err := dayParam(r, "from", time.Time{})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	to, err := dayParam(r, "to", now())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	mode, err := modeParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	points, err := h.deps.Chart(r.Context(), user, kind, from, to, mode)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}
