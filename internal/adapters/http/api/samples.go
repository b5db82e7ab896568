package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
)

// SampleDependencies defines the sample write and read operations.
type SampleDependencies interface {
	RecordSample(ctx context.Context, userID string, s model.MetricSample) error
	DeleteSample(ctx context.Context, userID string, day time.Time) error
	Series(ctx context.Context, userID string) ([]model.MetricSample, error)
}

// SamplesHandler handles sample requests.
type SamplesHandler struct {
	deps SampleDependencies
}

// NewSamplesHandler creates a new samples handler.
func NewSamplesHandler(deps SampleDependencies) *SamplesHandler {
	return &SamplesHandler{deps: deps}
}

// sampleRequest is the body of POST /samples/{user}.
type sampleRequest struct {
	Date           string   `json:"date"`
	WeightKg       *float64 `json:"weight_kg"`
	BodyFatPercent *float64 `json:"body_fat_percent"`
	Source         string   `json:"source"`
	IntegrationID  string   `json:"integration_id"`
}

func (r sampleRequest) toSample() (model.MetricSample, error) {
	if strings.TrimSpace(r.Date) == "" {
		return model.MetricSample{}, WrapKind("sample", ErrBadRequest, errors.New("missing date"))
	}
	d, err := model.ParseDay(r.Date)
	if err != nil {
		return model.MetricSample{}, WrapKind("sample", ErrBadRequest, err)
	}
	src := model.Source{Kind: model.SourceKind(r.Source), IntegrationID: r.IntegrationID}
	switch src.Kind {
	case "", model.SourceManual, model.SourceHealthImport, model.SourceIntegration:
	default:
		return model.MetricSample{}, WrapKind("sample", ErrBadRequest, fmt.Errorf("unknown source %q", r.Source))
	}
	return model.MetricSample{
		Date:           d,
		WeightKg:       r.WeightKg,
		BodyFatPercent: r.BodyFatPercent,
		Source:         src,
	}, nil
}

// HandlePostSample handles POST /samples/{user} requests.
func (h *SamplesHandler) HandlePostSample(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_sample"
	user, err := userParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	var req sampleRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeUpstreamError(w, err)
		return
	}
	sample, err := req.toSample()
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if err := h.deps.RecordSample(r.Context(), user, sample); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteSample handles DELETE /samples/{user}?date= requests.
func (h *SamplesHandler) HandleDeleteSample(w http.ResponseWriter, r *http.Request) {
	user, err := userParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	day, err := dayParam(r, "date", time.Time{})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if err := h.deps.DeleteSample(r.Context(), user, day); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSeries handles GET /samples/{user} requests.
func (h *SamplesHandler) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	user, err := userParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	series, err := h.deps.Series(r.Context(), user)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if series == nil {
		series = []model.MetricSample{}
	}
	writeJSON(w, http.StatusOK, series)
}
