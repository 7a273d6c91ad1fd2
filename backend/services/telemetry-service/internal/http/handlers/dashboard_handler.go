package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"smarthome/backend/services/telemetry-service/internal/models"
)

//go:embed templates/dashboard.html
var templatesFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(templatesFS, "templates/dashboard.html"))

// ViewSource returns the latest rendered dashboard view.
type ViewSource interface {
	Current() models.View
}

type dashboardPage struct {
	Title             string
	BasePath          string
	RefreshIntervalMs int64
	View              models.View
	TrendChart        template.HTML
	StatusChart       template.HTML
}

// DashboardHandler serves the dashboard page and its data endpoints.
type DashboardHandler struct {
	views    ViewSource
	basePath string
	refresh  time.Duration
	logger   *zap.Logger
}

// NewDashboardHandler returns handler mounted under basePath ("/dashboard/").
func NewDashboardHandler(views ViewSource, basePath string, refresh time.Duration, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		views:    views,
		basePath: basePath,
		refresh:  refresh,
		logger:   logger,
	}
}

// Page handles GET {basePath}.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != h.basePath {
		http.NotFound(w, r)
		return
	}

	view := h.views.Current()
	page := dashboardPage{
		Title:             "Smart Home Energy Dashboard",
		BasePath:          h.basePath,
		RefreshIntervalMs: h.refresh.Milliseconds(),
		View:              view,
		// Chart markup is generated server side with every text node escaped.
		TrendChart:  template.HTML(view.TemperatureHumidityChart),
		StatusChart: template.HTML(view.DeviceStateChart),
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, page); err != nil {
		h.logger.Error("failed to render dashboard page", zap.Error(err))
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// View handles GET {basePath}api/view.
func (h *DashboardHandler) View(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.views.Current())
}

// TrendChart handles GET {basePath}charts/temperature-humidity.svg.
func (h *DashboardHandler) TrendChart(w http.ResponseWriter, r *http.Request) {
	writeSVG(w, h.views.Current().TemperatureHumidityChart)
}

// StatusChart handles GET {basePath}charts/device-state.svg.
func (h *DashboardHandler) StatusChart(w http.ResponseWriter, r *http.Request) {
	writeSVG(w, h.views.Current().DeviceStateChart)
}

func writeSVG(w http.ResponseWriter, svg string) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}
