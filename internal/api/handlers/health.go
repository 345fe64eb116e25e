package handlers

import (
	"context"
	"net/http"

	"github.com/clearsight-ai/docchat/internal/api"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check reports service liveness and database reachability. The vector index
// lives in the same database, so one ping covers both.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = "unavailable"
			api.Success(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}

	api.Success(w, http.StatusOK, status)
}
