package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"smarthome/backend/services/telemetry-service/internal/models"
	"smarthome/backend/services/telemetry-service/internal/store"
)

// Publisher fans a rendered view out to connected dashboard clients.
type Publisher interface {
	Broadcast(payload []byte)
}

// RenderTimer observes render durations.
type RenderTimer interface {
	RenderTiming(start time.Time)
}

// Renderer re-renders the whole reading log on a fixed interval and caches the result.
type Renderer struct {
	readings  *store.ReadingLog
	interval  time.Duration
	publisher Publisher
	timer     RenderTimer
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	current  models.View
	rendered bool
}

// NewRenderer builds the render loop. publisher and timer are optional.
func NewRenderer(readings *store.ReadingLog, interval time.Duration, publisher Publisher, timer RenderTimer, logger *zap.Logger) *Renderer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Renderer{
		readings:  readings,
		interval:  interval,
		publisher: publisher,
		timer:     timer,
		logger:    logger,
		now:       time.Now,
	}
}

// Interval returns the refresh period.
func (r *Renderer) Interval() time.Duration {
	return r.interval
}

// Run renders immediately and then on every tick until ctx is done.
func (r *Renderer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh()
		}
	}
}

// Refresh renders the current log, caches the view and publishes it.
func (r *Renderer) Refresh() models.View {
	start := time.Now()
	view := Render(r.readings.Snapshot(), r.now())
	if r.timer != nil {
		r.timer.RenderTiming(start)
	}

	r.mu.Lock()
	r.current = view
	r.rendered = true
	r.mu.Unlock()

	r.logger.Debug("dashboard rendered", zap.Int("readings", view.Count), zap.Duration("took", time.Since(start)))

	if r.publisher != nil {
		payload, err := json.Marshal(view)
		if err != nil {
			r.logger.Warn("failed to encode dashboard view", zap.Error(err))
			return view
		}
		r.publisher.Broadcast(payload)
	}
	return view
}

// Current returns the last rendered view, rendering once if the loop has not run yet.
func (r *Renderer) Current() models.View {
	r.mu.RLock()
	view, ok := r.current, r.rendered
	r.mu.RUnlock()
	if ok {
		return view
	}
	return r.Refresh()
}
