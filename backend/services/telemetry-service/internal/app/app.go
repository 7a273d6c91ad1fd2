package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "smarthome/backend/libs/redis"
	"smarthome/backend/services/telemetry-service/internal/config"
	"smarthome/backend/services/telemetry-service/internal/dashboard"
	"smarthome/backend/services/telemetry-service/internal/db"
	httpserver "smarthome/backend/services/telemetry-service/internal/http"
	"smarthome/backend/services/telemetry-service/internal/http/handlers"
	"smarthome/backend/services/telemetry-service/internal/metrics"
	"smarthome/backend/services/telemetry-service/internal/mqtt"
	redisstore "smarthome/backend/services/telemetry-service/internal/redis"
	"smarthome/backend/services/telemetry-service/internal/repository"
	"smarthome/backend/services/telemetry-service/internal/service"
	"smarthome/backend/services/telemetry-service/internal/store"
	"smarthome/backend/services/telemetry-service/internal/ws"
)

const schemaTimeout = 5 * time.Second

// App wires telemetry service dependencies.
type App struct {
	server      *httpserver.Server
	renderer    *dashboard.Renderer
	bridge      *mqtt.Bridge
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
	// stop closes dashboard sockets, which outlive http.Server.Shutdown.
	stop context.CancelFunc
}

// New constructs application components.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	var (
		cache   service.StateCache
		journal *repository.TransitionRepository
	)

	if cfg.RedisEnabled() {
		client, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redisClient = client
		cache = redisstore.NewStore(client, cfg.StateTTL())
	}

	if cfg.DatabaseEnabled() {
		sqlDB, err := db.NewPostgres(cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.db = sqlDB
		journal = repository.NewTransitionRepository(sqlDB)

		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		err = journal.EnsureSchema(ctx)
		cancel()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
	}

	metric := metrics.New()
	readings := store.NewReadingLog(cfg.Retention.Capacity)

	var transitions service.TransitionJournal
	if journal != nil {
		transitions = journal
	}
	telemetryService := service.NewTelemetryService(readings, cache, transitions, metric, logger.Named("ingest"))

	baseCtx, stop := context.WithCancel(context.Background())
	a.stop = stop

	hub := ws.NewManager(metric)
	wsServer := ws.NewServer(baseCtx, hub, cfg.WriteTimeout(), cfg.PingInterval(), logger.Named("ws"))
	a.renderer = dashboard.NewRenderer(readings, cfg.RefreshInterval(), hub, metric, logger.Named("dashboard"))

	dashboardPath := cfg.DashboardPath()
	dashboardHandler := handlers.NewDashboardHandler(a.renderer, dashboardPath, cfg.RefreshInterval(), logger)

	routes := httpserver.Routes{
		Ingest:         handlers.NewIngestHandler(telemetryService, logger),
		State:          handlers.NewStateHandler(readings),
		Redirect:       handlers.NewRedirectHandler(dashboardPath),
		Health:         handlers.NewHealthHandler(),
		Metrics:        metric.Handler(),
		DashboardPath:  dashboardPath,
		DashboardPage:  dashboardHandler.Page,
		DashboardView:  dashboardHandler.View,
		TrendChart:     dashboardHandler.TrendChart,
		StatusChart:    dashboardHandler.StatusChart,
		DashboardWS:    wsServer.HandleWS,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}
	if journal != nil {
		routes.Transitions = handlers.NewTransitionsHandler(journal, logger)
	}

	if cfg.MQTTEnabled() {
		a.bridge = mqtt.NewBridge(mqtt.Options{
			Broker:        cfg.MQTT.Broker,
			ClientID:      cfg.MQTT.ClientID,
			ReadingsTopic: cfg.MQTT.ReadingsTopic,
			StateTopic:    cfg.MQTT.StateTopic,
		}, telemetryService, logger.Named("mqtt"))
	}

	router := httpserver.NewRouter(routes)
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	logger.Info("telemetry service configured",
		zap.String("addr", cfg.HTTPAddress()),
		zap.String("dashboard", dashboardPath),
		zap.Duration("refresh", cfg.RefreshInterval()),
		zap.Int("retention", cfg.Retention.Capacity),
		zap.Bool("redis", cache != nil),
		zap.Bool("postgres", journal != nil),
		zap.Bool("mqtt", a.bridge != nil),
	)

	return a, nil
}

// Run starts the render loop, the optional MQTT bridge and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.stop()

	go a.renderer.Run(ctx)

	bridgeErr := make(chan error, 1)
	if a.bridge != nil {
		go func() {
			bridgeErr <- a.bridge.Run(ctx)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Run(ctx)
	}()

	select {
	case err := <-serverErr:
		return err
	case err := <-bridgeErr:
		if err == nil && ctx.Err() != nil {
			return <-serverErr
		}
		if err == nil {
			err = errors.New("mqtt bridge stopped unexpectedly")
		}
		cancel()
		<-serverErr
		return err
	}
}

// Close releases resources.
func (a *App) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
