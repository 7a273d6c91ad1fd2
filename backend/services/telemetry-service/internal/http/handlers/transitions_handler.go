package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"smarthome/backend/services/telemetry-service/internal/repository"
)

const maxTransitionsLimit = 500

// TransitionLister returns journaled state changes.
type TransitionLister interface {
	Recent(ctx context.Context, limit int) ([]repository.Transition, error)
}

// NewTransitionsHandler returns GET /api/transitions?limit=N.
func NewTransitionsHandler(journal TransitionLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > maxTransitionsLimit {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
				return
			}
			limit = parsed
		}

		transitions, err := journal.Recent(r.Context(), limit)
		if err != nil {
			logger.Error("failed to list transitions", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list transitions")
			return
		}
		if transitions == nil {
			transitions = []repository.Transition{}
		}
		writeJSON(w, http.StatusOK, transitions)
	}
}
