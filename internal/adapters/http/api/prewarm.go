package api

import (
	"context"
	"net/http"
	"time"
)

// PrewarmDependencies defines the prewarm operation.
type PrewarmDependencies interface {
	// Prewarm enqueues a cache fill. It fails with a backpressure error when
	// the queue is full.
	Prewarm(ctx context.Context, userID string, from, to time.Time) (string, error)
}

// PrewarmHandler handles prewarm requests.
type PrewarmHandler struct {
	deps PrewarmDependencies
}

// NewPrewarmHandler creates a new prewarm handler.
func NewPrewarmHandler(deps PrewarmDependencies) *PrewarmHandler {
	return &PrewarmHandler{deps: deps}
}

type prewarmResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

// HandlePostPrewarm handles POST /prewarm/{user}?from=&to= requests.
func (h *PrewarmHandler) HandlePostPrewarm(w http.ResponseWriter, r *http.Request) {
	user, err := userParam(r)
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

	id, err := h.deps.Prewarm(r.Context(), user, from, to)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, prewarmResponse{Status: "accepted", JobID: id})
}
