package handlers

import (
	"net/http"

	"smarthome/backend/services/telemetry-service/internal/models"
)

// LatestReader exposes the most recent reading.
type LatestReader interface {
	Latest() (models.Reading, bool)
}

// NewStateHandler returns GET /api/state, letting actuators poll the latest decision.
func NewStateHandler(readings LatestReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, ok := readings.Latest()
		if !ok {
			writeError(w, http.StatusNotFound, "no readings yet")
			return
		}
		writeJSON(w, http.StatusOK, latest)
	}
}
