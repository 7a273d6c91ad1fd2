package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"smarthome/backend/services/telemetry-service/internal/models"
	"smarthome/backend/services/telemetry-service/internal/repository"
	"smarthome/backend/services/telemetry-service/internal/service"
	"smarthome/backend/services/telemetry-service/internal/store"
)

func newIngestHandler(t *testing.T) (*IngestHandler, *store.ReadingLog) {
	t.Helper()
	log := store.NewReadingLog(0)
	svc := service.NewTelemetryService(log, nil, nil, nil, zap.NewNop())
	return NewIngestHandler(svc, zap.NewNop()), log
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestIngestHandlerDecisions(t *testing.T) {
	h, log := newIngestHandler(t)

	cases := []struct {
		body string
		want string
	}{
		{`{"temperature": 25, "humidity": 50}`, "OFF"},
		{`{"temperature": 30, "humidity": 50}`, "ON"},
		{`{"temperature": 20, "humidity": 75}`, "ON"},
		{`{"temperature": 29, "humidity": 72}`, "OFF"},
	}
	for i, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/data", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.body, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected json content type, got %q", ct)
		}
		if got := decodeBody(t, rr)["device_state"]; got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.body, tc.want, got)
		}
		if log.Len() != i+1 {
			t.Fatalf("expected log length %d, got %d", i+1, log.Len())
		}
	}
}

func TestIngestHandlerValidation(t *testing.T) {
	h, log := newIngestHandler(t)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing humidity", `{"temperature": 25}`, "humidity is required"},
		{"missing temperature", `{"humidity": 25}`, "temperature is required"},
		{"string value", `{"temperature": "25", "humidity": 50}`, "temperature must be a number"},
		{"broken json", `{"temperature": 25,`, "invalid json"},
		{"empty body", ``, "invalid json"},
		{"trailing data", `{"temperature": 25, "humidity": 50} garbage`, "invalid json"},
		{"two objects", `{"temperature": 25, "humidity": 50}{"temperature": 99}`, "invalid json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/data", strings.NewReader(tc.body)))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if got := decodeBody(t, rr)["error"]; got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
	if log.Len() != 0 {
		t.Fatalf("invalid payloads must not be logged, got %d", log.Len())
	}
}

func TestIngestHandlerRejectsOversizedBody(t *testing.T) {
	h, log := newIngestHandler(t)

	body := `{"temperature": 25, "humidity": 50, "padding": "` + strings.Repeat("x", maxReadingBody) + `"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/data", strings.NewReader(body)))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	if log.Len() != 0 {
		t.Fatal("oversized payload must not be logged")
	}
}

func TestStateHandler(t *testing.T) {
	log := store.NewReadingLog(0)
	h := NewStateHandler(log)

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before readings, got %d", rr.Code)
	}

	log.Append(models.Reading{Timestamp: time.Now(), Temperature: 31, Humidity: 40, DeviceState: models.DeviceOn})
	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got models.Reading
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DeviceState != models.DeviceOn || got.Temperature != 31 {
		t.Fatalf("unexpected state %+v", got)
	}
}

type stubJournal struct {
	limit int
	err   error
	out   []repository.Transition
}

func (s *stubJournal) Recent(_ context.Context, limit int) ([]repository.Transition, error) {
	s.limit = limit
	return s.out, s.err
}

func TestTransitionsHandler(t *testing.T) {
	journal := &stubJournal{}
	h := NewTransitionsHandler(journal, zap.NewNop())

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/api/transitions", nil))
	if rr.Code != http.StatusOK || journal.limit != 50 {
		t.Fatalf("expected default limit 50 and 200, got %d / %d", journal.limit, rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/api/transitions?limit=5", nil))
	if journal.limit != 5 {
		t.Fatalf("expected limit 5, got %d", journal.limit)
	}

	for _, bad := range []string{"0", "-1", "abc", "501"} {
		rr = httptest.NewRecorder()
		h(rr, httptest.NewRequest(http.MethodGet, "/api/transitions?limit="+bad, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s: expected 400, got %d", bad, rr.Code)
		}
	}

	journal.err = errors.New("db down")
	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/api/transitions", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestRedirectHandler(t *testing.T) {
	h := NewRedirectHandler("/dashboard/")

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `<meta http-equiv="refresh" content="0; url=/dashboard/">`) {
		t.Fatalf("missing refresh meta tag: %s", body)
	}
	if !strings.Contains(body, "Redirecting to Dashboard...") {
		t.Fatal("missing redirect message")
	}

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rr.Code)
	}
}

type staticViews struct{ view models.View }

func (s staticViews) Current() models.View { return s.view }

func TestDashboardHandler(t *testing.T) {
	view := models.View{
		TemperatureHumidityChart: `<svg id="trend"></svg>`,
		DeviceStateChart:         `<svg id="status"></svg>`,
		Summary:                  "30°C | 50% | Device: ON",
		Count:                    2,
	}
	h := NewDashboardHandler(staticViews{view}, "/dashboard/", 5*time.Second, zap.NewNop())

	rr := httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/dashboard/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	page := rr.Body.String()
	for _, want := range []string{
		"Smart Home Energy Dashboard",
		`<svg id="trend"></svg>`,
		`<svg id="status"></svg>`,
		"30°C | 50% | Device: ON",
		"5000",
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("dashboard page missing %q", want)
		}
	}

	rr = httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/dashboard/other", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.View(rr, httptest.NewRequest(http.MethodGet, "/dashboard/api/view", nil))
	var got models.View
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if got.Summary != view.Summary || got.Count != 2 {
		t.Fatalf("unexpected view %+v", got)
	}

	rr = httptest.NewRecorder()
	h.TrendChart(rr, httptest.NewRequest(http.MethodGet, "/dashboard/charts/temperature-humidity.svg", nil))
	if rr.Header().Get("Content-Type") != "image/svg+xml" || rr.Body.String() != view.TemperatureHumidityChart {
		t.Fatalf("unexpected trend chart response %q", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.StatusChart(rr, httptest.NewRequest(http.MethodGet, "/dashboard/charts/device-state.svg", nil))
	if rr.Body.String() != view.DeviceStateChart {
		t.Fatalf("unexpected status chart response %q", rr.Body.String())
	}
}

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler()(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || decodeBody(t, rr)["status"] != "ok" {
		t.Fatalf("unexpected health response %d", rr.Code)
	}
}
