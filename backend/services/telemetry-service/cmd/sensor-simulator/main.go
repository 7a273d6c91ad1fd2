package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	libconfig "smarthome/backend/libs/config"
	"smarthome/backend/libs/logging"
	"smarthome/backend/services/telemetry-service/internal/clients"
)

type simulatorConfig struct {
	TargetURL string        `yaml:"targetUrl" env:"SIMULATOR_TARGET_URL"`
	Interval  time.Duration `yaml:"interval" env:"SIMULATOR_INTERVAL"`
	Count     int           `yaml:"count" env:"SIMULATOR_COUNT"`
	Seed      uint64        `yaml:"seed" env:"SIMULATOR_SEED"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	cfg := simulatorConfig{
		TargetURL: "http://localhost:5000",
		Interval:  2 * time.Second,
	}
	if err := libconfig.LoadConfig(&cfg); err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	client := clients.NewTelemetryClient(cfg.TargetURL, logger.Named("client"))
	sim := clients.NewSimulator(client, cfg.Interval, cfg.Seed, logger.Named("simulator"))

	logger.Info("starting sensor simulator",
		zap.String("target", cfg.TargetURL),
		zap.Duration("interval", cfg.Interval),
		zap.Int("count", cfg.Count),
	)
	accepted := sim.Run(ctx, cfg.Count)
	logger.Info("sensor simulator stopped", zap.Int("accepted", accepted))
}
