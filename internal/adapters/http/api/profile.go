package api

import (
	"context"
	"net/http"

	"github.com/okian/bodymetrics/internal/domain/model"
)

// ProfileDependencies defines the profile operations.
type ProfileDependencies interface {
	SetProfile(ctx context.Context, p model.Profile) error
	Profile(ctx context.Context, userID string) (model.Profile, error)
}

// ProfileHandler handles profile requests.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

type profileRequest struct {
	Sex       string  `json:"sex"`
	BirthYear int     `json:"birth_year"`
	HeightCm  float64 `json:"height_cm"`
}

// HandlePutProfile handles PUT /profile/{user} requests.
func (h *ProfileHandler) HandlePutProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_profile"
	user, err := userParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	var req profileRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeUpstreamError(w, err)
		return
	}
	sex, err := model.ParseSex(req.Sex)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p := model.Profile{UserID: user, Sex: sex, BirthYear: req.BirthYear, HeightCm: req.HeightCm}
	if err := h.deps.SetProfile(r.Context(), p); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetProfile handles GET /profile/{user} requests.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := userParam(r)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	p, err := h.deps.Profile(r.Context(), user)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
