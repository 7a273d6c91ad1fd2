package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"smarthome/backend/services/telemetry-service/internal/models"
	"smarthome/backend/services/telemetry-service/internal/store"
)

const defaultSinkTimeout = 2 * time.Second

// Rejection reasons reported to the metrics recorder.
const (
	ReasonInvalidJSON  = "invalid_json"
	ReasonMissingField = "missing_field"
	ReasonNonNumeric   = "non_numeric"
	ReasonReadError    = "read_error"
)

// ErrInvalidReading marks payloads that fail schema validation.
var ErrInvalidReading = errors.New("invalid reading")

// ValidationError describes why a reading payload was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissingField:
		return e.Field + " is required"
	case ReasonNonNumeric:
		return e.Field + " must be a number"
	default:
		return "invalid json"
	}
}

// Is lets callers match any validation failure with errors.Is(err, ErrInvalidReading).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidReading
}

// ReadingInput represents the payload posted by a sensor.
type ReadingInput struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Validate checks that both measurements are present.
func (in ReadingInput) Validate() error {
	if in.Temperature == nil {
		return &ValidationError{Field: "temperature", Reason: ReasonMissingField}
	}
	if in.Humidity == nil {
		return &ValidationError{Field: "humidity", Reason: ReasonMissingField}
	}
	return nil
}

// StateCache keeps the latest decision where actuators can poll it.
type StateCache interface {
	SaveLatest(ctx context.Context, reading models.Reading) error
}

// TransitionJournal records device state changes.
type TransitionJournal interface {
	RecordTransition(ctx context.Context, previous models.DeviceState, reading models.Reading) error
}

// MetricsRecorder observes ingestion outcomes.
type MetricsRecorder interface {
	ReadingAccepted(reading models.Reading, logSize int)
	ReadingRejected(reason string)
}

// TelemetryService handles ingestion of sensor readings.
type TelemetryService struct {
	readings    *store.ReadingLog
	cache       StateCache
	journal     TransitionJournal
	metrics     MetricsRecorder
	logger      *zap.Logger
	now         func() time.Time
	sinkTimeout time.Duration

	// cacheMu orders cache writes so the cached state never moves backwards.
	cacheMu sync.Mutex
}

// NewTelemetryService returns service instance. cache, journal and metrics are optional.
func NewTelemetryService(readings *store.ReadingLog, cache StateCache, journal TransitionJournal, metrics MetricsRecorder, logger *zap.Logger) *TelemetryService {
	return &TelemetryService{
		readings:    readings,
		cache:       cache,
		journal:     journal,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		sinkTimeout: defaultSinkTimeout,
	}
}

// DecodeReadingInput parses a payload holding exactly one JSON object, mapping decode
// failures to validation errors.
func DecodeReadingInput(r io.Reader) (ReadingInput, error) {
	var input ReadingInput
	dec := json.NewDecoder(r)
	if err := dec.Decode(&input); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return input, &ValidationError{Field: typeErr.Field, Reason: ReasonNonNumeric}
		}
		return input, decodeFailure(err)
	}

	// Anything but whitespace after the object is rejected.
	err := dec.Decode(&struct{}{})
	switch {
	case errors.Is(err, io.EOF):
		return input, nil
	case err == nil:
		return input, &ValidationError{Reason: ReasonInvalidJSON}
	default:
		return input, decodeFailure(err)
	}
}

func decodeFailure(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ValidationError{Reason: ReasonInvalidJSON}
	}
	return fmt.Errorf("read reading payload: %w", err)
}

// IngestJSON decodes a payload and ingests it.
func (s *TelemetryService) IngestJSON(ctx context.Context, body io.Reader) (models.Reading, error) {
	input, err := DecodeReadingInput(body)
	if err != nil {
		s.reject(err)
		return models.Reading{}, err
	}
	return s.Ingest(ctx, input)
}

// Ingest applies the control rule to the input and appends the resulting reading to the log.
func (s *TelemetryService) Ingest(ctx context.Context, input ReadingInput) (models.Reading, error) {
	if err := input.Validate(); err != nil {
		s.reject(err)
		return models.Reading{}, err
	}

	reading := models.Reading{
		Timestamp:   s.now(),
		Temperature: *input.Temperature,
		Humidity:    *input.Humidity,
		DeviceState: DecideDeviceState(*input.Temperature, *input.Humidity),
	}
	prev, hadPrev := s.readings.Append(reading)

	s.logger.Info("reading received",
		zap.Time("timestamp", reading.Timestamp),
		zap.Float64("temperature", reading.Temperature),
		zap.Float64("humidity", reading.Humidity),
		zap.String("device_state", string(reading.DeviceState)),
	)

	if s.metrics != nil {
		s.metrics.ReadingAccepted(reading, s.readings.Len())
	}

	var previous models.DeviceState
	if hadPrev {
		previous = prev.DeviceState
	}
	s.notifySinks(ctx, previous, reading)

	return reading, nil
}

func (s *TelemetryService) notifySinks(ctx context.Context, previous models.DeviceState, reading models.Reading) {
	if s.cache == nil && s.journal == nil {
		return
	}

	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sinkTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.saveLatest(sinkCtx, reading); err != nil {
			s.logger.Warn("failed to cache device state", zap.Error(err))
		}
	}
	if s.journal != nil && previous != reading.DeviceState {
		if err := s.journal.RecordTransition(sinkCtx, previous, reading); err != nil {
			s.logger.Warn("failed to record device state transition",
				zap.String("from", string(previous)),
				zap.String("to", string(reading.DeviceState)),
				zap.Error(err),
			)
		}
	}
}

// saveLatest caches reading unless a newer one has been appended since; that
// reading's own write supersedes it.
func (s *TelemetryService) saveLatest(ctx context.Context, reading models.Reading) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if latest, ok := s.readings.Latest(); !ok || latest != reading {
		return nil
	}
	return s.cache.SaveLatest(ctx, reading)
}

func (s *TelemetryService) reject(err error) {
	reason := ReasonReadError
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		reason = vErr.Reason
	}
	s.logger.Debug("reading rejected", zap.String("reason", reason), zap.Error(err))
	if s.metrics != nil {
		s.metrics.ReadingRejected(reason)
	}
}
