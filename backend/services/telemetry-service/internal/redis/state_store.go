package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"smarthome/backend/services/telemetry-service/internal/models"
)

const (
	latestStateKey  = "telemetry:device_state:latest"
	readingsChannel = "telemetry:readings"
)

// StateSnapshot is the cached payload actuators read.
type StateSnapshot struct {
	DeviceState models.DeviceState `json:"device_state"`
	Temperature float64            `json:"temperature"`
	Humidity    float64            `json:"humidity"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Store caches the latest device decision and publishes every reading.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// SaveLatest caches the reading's decision and publishes it on the readings channel.
func (s *Store) SaveLatest(ctx context.Context, reading models.Reading) error {
	data, err := encodeSnapshot(reading)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, latestStateKey, data, s.ttl)
	pipe.Publish(ctx, readingsChannel, data)
	_, err = pipe.Exec(ctx)
	return err
}

func encodeSnapshot(reading models.Reading) ([]byte, error) {
	return json.Marshal(StateSnapshot{
		DeviceState: reading.DeviceState,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Timestamp:   reading.Timestamp.UTC(),
	})
}
