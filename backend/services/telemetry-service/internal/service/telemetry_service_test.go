package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"smarthome/backend/services/telemetry-service/internal/models"
	"smarthome/backend/services/telemetry-service/internal/store"
)

type fakeCache struct {
	saved []models.Reading
	err   error
}

func (f *fakeCache) SaveLatest(_ context.Context, r models.Reading) error {
	f.saved = append(f.saved, r)
	return f.err
}

type transition struct {
	from models.DeviceState
	to   models.DeviceState
}

type fakeJournal struct {
	transitions []transition
	err         error
}

func (f *fakeJournal) RecordTransition(_ context.Context, previous models.DeviceState, r models.Reading) error {
	f.transitions = append(f.transitions, transition{from: previous, to: r.DeviceState})
	return f.err
}

type fakeMetrics struct {
	accepted []int
	rejected []string
}

func (f *fakeMetrics) ReadingAccepted(_ models.Reading, size int) { f.accepted = append(f.accepted, size) }
func (f *fakeMetrics) ReadingRejected(reason string)              { f.rejected = append(f.rejected, reason) }

func floatPtr(v float64) *float64 { return &v }

func input(temp, hum float64) ReadingInput {
	return ReadingInput{Temperature: floatPtr(temp), Humidity: floatPtr(hum)}
}

func newTestService(t *testing.T) (*TelemetryService, *store.ReadingLog, *fakeCache, *fakeJournal, *fakeMetrics) {
	t.Helper()
	log := store.NewReadingLog(0)
	cache := &fakeCache{}
	journal := &fakeJournal{}
	metrics := &fakeMetrics{}
	svc := NewTelemetryService(log, cache, journal, metrics, zap.NewNop())
	return svc, log, cache, journal, metrics
}

func TestIngestScenarios(t *testing.T) {
	svc, log, _, _, _ := newTestService(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	cases := []struct {
		temp, hum float64
		want      models.DeviceState
	}{
		{25, 50, models.DeviceOff},
		{30, 50, models.DeviceOn},
		{20, 75, models.DeviceOn},
		{29, 72, models.DeviceOff},
	}
	for i, tc := range cases {
		r, err := svc.Ingest(context.Background(), input(tc.temp, tc.hum))
		if err != nil {
			t.Fatalf("Ingest(%v, %v): %v", tc.temp, tc.hum, err)
		}
		if r.DeviceState != tc.want {
			t.Fatalf("Ingest(%v, %v) = %s, want %s", tc.temp, tc.hum, r.DeviceState, tc.want)
		}
		if !r.Timestamp.Equal(fixed) {
			t.Fatalf("expected timestamp from clock, got %s", r.Timestamp)
		}
		if log.Len() != i+1 {
			t.Fatalf("expected log length %d, got %d", i+1, log.Len())
		}
	}

	snap := log.Snapshot()
	for i, tc := range cases {
		if snap[i].Temperature != tc.temp || snap[i].Humidity != tc.hum {
			t.Fatalf("reading %d out of order: %+v", i, snap[i])
		}
	}
}

func TestIngestRejectsMissingFields(t *testing.T) {
	svc, log, cache, _, metrics := newTestService(t)

	cases := []struct {
		name  string
		input ReadingInput
		msg   string
	}{
		{"missing temperature", ReadingInput{Humidity: floatPtr(50)}, "temperature is required"},
		{"missing humidity", ReadingInput{Temperature: floatPtr(20)}, "humidity is required"},
		{"missing both", ReadingInput{}, "temperature is required"},
	}
	for _, tc := range cases {
		_, err := svc.Ingest(context.Background(), tc.input)
		if !errors.Is(err, ErrInvalidReading) {
			t.Fatalf("%s: expected ErrInvalidReading, got %v", tc.name, err)
		}
		if err.Error() != tc.msg {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.msg, err.Error())
		}
	}
	if log.Len() != 0 || len(cache.saved) != 0 {
		t.Fatal("rejected readings must not reach the log or sinks")
	}
	if len(metrics.rejected) != len(cases) || metrics.rejected[0] != ReasonMissingField {
		t.Fatalf("unexpected rejection metrics: %v", metrics.rejected)
	}
}

func TestDecodeReadingInput(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"temperature": 25, "humidity": 50.5}`, ""},
		{"string temperature", `{"temperature": "hot", "humidity": 50}`, "temperature must be a number"},
		{"bool humidity", `{"temperature": 20, "humidity": true}`, "humidity must be a number"},
		{"null temperature decodes", `{"temperature": null, "humidity": 50}`, ""},
		{"syntax error", `{"temperature": 2`, "invalid json"},
		{"empty body", ``, "invalid json"},
		{"array body", `[1, 2]`, "invalid json"},
		{"trailing whitespace", "{\"temperature\": 25, \"humidity\": 50}\n\t ", ""},
		{"trailing garbage", `{"temperature": 25, "humidity": 50} garbage`, "invalid json"},
		{"second object", `{"temperature": 25, "humidity": 50}{"temperature": 99}`, "invalid json"},
		{"trailing number", `{"temperature": 25, "humidity": 50} 7`, "invalid json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeReadingInput(strings.NewReader(tc.body))
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidReading) {
				t.Fatalf("expected ErrInvalidReading, got %v", err)
			}
			if err.Error() != tc.wantErr {
				t.Fatalf("expected %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestIngestJSON(t *testing.T) {
	svc, log, _, _, metrics := newTestService(t)

	r, err := svc.IngestJSON(context.Background(), strings.NewReader(`{"temperature":30,"humidity":50}`))
	if err != nil {
		t.Fatalf("IngestJSON: %v", err)
	}
	if r.DeviceState != models.DeviceOn {
		t.Fatalf("expected ON, got %s", r.DeviceState)
	}

	if _, err := svc.IngestJSON(context.Background(), strings.NewReader(`{"temperature":"x","humidity":50}`)); err == nil {
		t.Fatal("expected error for non-numeric temperature")
	}
	if log.Len() != 1 {
		t.Fatalf("expected one reading, got %d", log.Len())
	}
	if len(metrics.accepted) != 1 || metrics.accepted[0] != 1 {
		t.Fatalf("unexpected accepted metrics: %v", metrics.accepted)
	}
	if len(metrics.rejected) != 1 || metrics.rejected[0] != ReasonNonNumeric {
		t.Fatalf("unexpected rejected metrics: %v", metrics.rejected)
	}
}

func TestIngestRecordsOnlyTransitions(t *testing.T) {
	svc, _, cache, journal, _ := newTestService(t)

	for _, in := range []ReadingInput{
		input(25, 50), // "" -> OFF
		input(26, 50), // OFF, no change
		input(30, 50), // OFF -> ON
		input(31, 80), // ON, no change
		input(20, 40), // ON -> OFF
	} {
		if _, err := svc.Ingest(context.Background(), in); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	want := []transition{
		{"", models.DeviceOff},
		{models.DeviceOff, models.DeviceOn},
		{models.DeviceOn, models.DeviceOff},
	}
	if len(journal.transitions) != len(want) {
		t.Fatalf("expected %d transitions, got %v", len(want), journal.transitions)
	}
	for i := range want {
		if journal.transitions[i] != want[i] {
			t.Fatalf("transition %d: expected %v, got %v", i, want[i], journal.transitions[i])
		}
	}
	if len(cache.saved) != 5 {
		t.Fatalf("expected every reading cached, got %d", len(cache.saved))
	}
}

func TestSinkFailuresDoNotFailIngest(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := store.NewReadingLog(0)
	cache := &fakeCache{err: errors.New("redis down")}
	journal := &fakeJournal{err: errors.New("postgres down")}
	svc := NewTelemetryService(log, cache, journal, nil, zap.New(core))

	r, err := svc.Ingest(context.Background(), input(30, 50))
	if err != nil {
		t.Fatalf("expected sink errors to be swallowed, got %v", err)
	}
	if r.DeviceState != models.DeviceOn || log.Len() != 1 {
		t.Fatal("reading must still be logged")
	}
	if logs.Len() != 2 {
		t.Fatalf("expected two warnings, got %d", logs.Len())
	}
}

func TestIngestEmitsDiagnosticLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := NewTelemetryService(store.NewReadingLog(0), nil, nil, nil, zap.New(core))

	if _, err := svc.Ingest(context.Background(), input(25, 50)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	entries := logs.FilterMessage("reading received").All()
	if len(entries) != 1 {
		t.Fatalf("expected one diagnostic line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["device_state"] != "OFF" || fields["temperature"] != 25.0 || fields["humidity"] != 50.0 {
		t.Fatalf("unexpected log fields: %v", fields)
	}
}

func TestSaveLatestSkipsSupersededReading(t *testing.T) {
	svc, log, cache, _, _ := newTestService(t)

	older := models.Reading{Timestamp: time.Unix(100, 0), Temperature: 20, Humidity: 50, DeviceState: models.DeviceOff}
	newer := models.Reading{Timestamp: time.Unix(101, 0), Temperature: 31, Humidity: 50, DeviceState: models.DeviceOn}
	log.Append(older)
	log.Append(newer)

	if err := svc.saveLatest(context.Background(), older); err != nil {
		t.Fatalf("saveLatest older: %v", err)
	}
	if len(cache.saved) != 0 {
		t.Fatalf("superseded reading must not be cached, got %v", cache.saved)
	}
	if err := svc.saveLatest(context.Background(), newer); err != nil {
		t.Fatalf("saveLatest newer: %v", err)
	}
	if len(cache.saved) != 1 || cache.saved[0] != newer {
		t.Fatalf("expected newest reading cached, got %v", cache.saved)
	}
}

func TestConcurrentIngestLeavesNewestReadingCached(t *testing.T) {
	log := store.NewReadingLog(0)
	cache := &fakeCache{}
	svc := NewTelemetryService(log, cache, nil, nil, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Ingest(context.Background(), input(float64(i), 50)); err != nil {
				t.Errorf("Ingest: %v", err)
			}
		}(i)
	}
	wg.Wait()

	latest, ok := log.Latest()
	if !ok || log.Len() != 64 {
		t.Fatalf("expected 64 readings, got %d", log.Len())
	}
	if len(cache.saved) == 0 {
		t.Fatal("nothing was cached")
	}
	if last := cache.saved[len(cache.saved)-1]; last != latest {
		t.Fatalf("cache holds %v, log ends with %v", last, latest)
	}
}
