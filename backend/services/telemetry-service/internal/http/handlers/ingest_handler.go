package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"smarthome/backend/services/telemetry-service/internal/models"
	"smarthome/backend/services/telemetry-service/internal/service"
)

const maxReadingBody = 1 << 20

// Ingester accepts raw reading payloads.
type Ingester interface {
	IngestJSON(ctx context.Context, body io.Reader) (models.Reading, error)
}

// IngestHandler handles sensor readings.
type IngestHandler struct {
	service Ingester
	logger  *zap.Logger
}

// NewIngestHandler returns handler.
func NewIngestHandler(service Ingester, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		service: service,
		logger:  logger,
	}
}

// ServeHTTP handles POST /api/data.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxReadingBody)
	reading, err := h.service.IngestJSON(r.Context(), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, service.ErrInvalidReading):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		default:
			h.logger.Warn("failed to read reading", zap.Error(err))
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return
	}

	writeJSON(w, http.StatusOK, models.Decision{DeviceState: reading.DeviceState})
}
