package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
	"github.com/okian/bodymetrics/internal/domain/scoring"
)

// ScoreDependencies defines the score operation.
type ScoreDependencies interface {
	Score(ctx context.Context, userID string, date time.Time, mode model.EstimateMode) (model.ScoredDay, error)
}

// ScoreHandler handles score requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// incompleteResponse carries the resolved inputs next to the missing fields
// so clients can prompt for them.
type incompleteResponse struct {
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	MissingFields []string       `json:"missing_fields"`
	Weight        model.Resolved `json:"weight"`
	BodyFat       model.Resolved `json:"body_fat"`
}

// HandleGetScore handles GET /score/{user}?date=&mode= requests.
func (h *ScoreHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	user, err := userParam(r)
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

	day, err := h.deps.Score(r.Context(), user, date, mode)
	var incomplete *scoring.IncompleteInputError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, day)
	case errors.As(err, &incomplete):
		writeJSON(w, http.StatusUnprocessableEntity, incompleteResponse{
			Code:          "incomplete_input",
			Message:       err.Error(),
			MissingFields: incomplete.Fields,
			Weight:        day.Weight,
			BodyFat:       day.BodyFat,
		})
	default:
		writeUpstreamError(w, err)
	}
}
