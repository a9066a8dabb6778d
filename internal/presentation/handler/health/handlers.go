package health

import (
	"context"
	"net/http"
	"time"

	"github.com/hilthontt/synchat/internal/infrastructure/json"
	"go.uber.org/zap"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type Handler struct {
	checks map[string]Check
	logger *zap.SugaredLogger
}

func NewHandler(logger *zap.SugaredLogger, checks map[string]Check) *Handler {
	return &Handler{
		checks: checks,
		logger: logger,
	}
}

// GetHealth is the liveness probe; it never touches dependencies.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	data := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}
	_ = json.Write(w, http.StatusOK, data)
}

func (h *Handler) GetReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}
	status := http.StatusOK

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warnw("readiness check failed", "check", name, "error", err)
			if data.Failing == nil {
				data.Failing = make(map[string]string)
			}
			data.Failing[name] = err.Error()
			data.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	_ = json.Write(w, status, data)
}
