package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"smarthome/backend/services/telemetry-service/internal/models"
)

// TelemetryClient posts sensor readings to telemetry-service.
type TelemetryClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// ReadingRequest payload for POST /api/data.
type ReadingRequest struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// NewTelemetryClient returns client wrapper.
func NewTelemetryClient(baseURL string, logger *zap.Logger) *TelemetryClient {
	return &TelemetryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// SendReading posts one reading and returns the device state decided for it.
func (c *TelemetryClient) SendReading(ctx context.Context, temperature, humidity float64) (models.DeviceState, error) {
	data, err := json.Marshal(ReadingRequest{Temperature: temperature, Humidity: humidity})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/data", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("telemetry client request failed", zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		c.logger.Warn("telemetry client returned non-success", zap.Int("status", resp.StatusCode), zap.String("error", apiErr.Error))
		if apiErr.Error == "" {
			return "", fmt.Errorf("telemetry-service returned status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("telemetry-service returned status %d: %s", resp.StatusCode, apiErr.Error)
	}

	var decision models.Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return "", fmt.Errorf("decode decision: %w", err)
	}
	return decision.DeviceState, nil
}
