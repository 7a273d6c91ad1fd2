package repository

import (
	"context"
	"database/sql"
	"time"

	"smarthome/backend/services/telemetry-service/internal/models"
)

const createTransitionsTable = `
	CREATE TABLE IF NOT EXISTS device_state_transitions (
		id             BIGSERIAL PRIMARY KEY,
		previous_state TEXT,
		device_state   TEXT NOT NULL,
		temperature    DOUBLE PRECISION NOT NULL,
		humidity       DOUBLE PRECISION NOT NULL,
		recorded_at    TIMESTAMPTZ NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// Transition is one journaled change of the actuator signal.
type Transition struct {
	ID            int64              `db:"id" json:"id"`
	PreviousState models.DeviceState `db:"previous_state" json:"previous_state,omitempty"`
	DeviceState   models.DeviceState `db:"device_state" json:"device_state"`
	Temperature   float64            `db:"temperature" json:"temperature"`
	Humidity      float64            `db:"humidity" json:"humidity"`
	RecordedAt    time.Time          `db:"recorded_at" json:"recorded_at"`
}

// TransitionRepository journals device state changes.
type TransitionRepository struct {
	db *sql.DB
}

// NewTransitionRepository returns repository.
func NewTransitionRepository(db *sql.DB) *TransitionRepository {
	return &TransitionRepository{db: db}
}

// EnsureSchema creates the journal table when missing.
func (r *TransitionRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createTransitionsTable)
	return err
}

// RecordTransition stores a state change. An empty previous state is stored as NULL.
func (r *TransitionRepository) RecordTransition(ctx context.Context, previous models.DeviceState, reading models.Reading) error {
	const query = `
		INSERT INTO device_state_transitions (previous_state, device_state, temperature, humidity, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		nullableState(previous),
		string(reading.DeviceState),
		reading.Temperature,
		reading.Humidity,
		reading.Timestamp.UTC(),
	)
	return err
}

// Recent returns up to limit transitions, newest first.
func (r *TransitionRepository) Recent(ctx context.Context, limit int) ([]Transition, error) {
	const query = `
		SELECT id, previous_state, device_state, temperature, humidity, recorded_at
		FROM device_state_transitions
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1
	`
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			t     Transition
			prev  sql.NullString
			state string
		)
		if err := rows.Scan(&t.ID, &prev, &state, &t.Temperature, &t.Humidity, &t.RecordedAt); err != nil {
			return nil, err
		}
		t.DeviceState = models.DeviceState(state)
		if prev.Valid {
			t.PreviousState = models.DeviceState(prev.String)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableState(s models.DeviceState) sql.NullString {
	return sql.NullString{String: string(s), Valid: s != ""}
}
