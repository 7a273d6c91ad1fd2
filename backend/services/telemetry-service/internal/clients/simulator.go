package clients

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"smarthome/backend/services/telemetry-service/internal/models"
)

const (
	minTemperature = 15.0
	maxTemperature = 40.0
	minHumidity    = 20.0
	maxHumidity    = 95.0

	temperatureStep = 1.5
	humidityStep    = 3.0
)

// ReadingSender delivers one reading to the receiver.
type ReadingSender interface {
	SendReading(ctx context.Context, temperature, humidity float64) (models.DeviceState, error)
}

// Simulator emits a bounded random walk of temperature and humidity readings.
type Simulator struct {
	sender   ReadingSender
	interval time.Duration
	rng      *rand.Rand
	logger   *zap.Logger

	temperature float64
	humidity    float64
}

// NewSimulator builds a simulator. A zero seed picks one from the clock.
func NewSimulator(sender ReadingSender, interval time.Duration, seed uint64, logger *zap.Logger) *Simulator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Simulator{
		sender:      sender,
		interval:    interval,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger:      logger,
		temperature: 26,
		humidity:    60,
	}
}

// Next advances the walk and returns the new reading values.
func (s *Simulator) Next() (float64, float64) {
	s.temperature = step(s.rng, s.temperature, temperatureStep, minTemperature, maxTemperature)
	s.humidity = step(s.rng, s.humidity, humidityStep, minHumidity, maxHumidity)
	return s.temperature, s.humidity
}

// Run sends one reading per interval until ctx is done or count readings were sent.
// count <= 0 runs until ctx is done. It returns the number of readings accepted.
func (s *Simulator) Run(ctx context.Context, count int) int {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	sent, accepted := 0, 0
	for {
		temperature, humidity := s.Next()
		state, err := s.sender.SendReading(ctx, temperature, humidity)
		sent++
		if err != nil {
			s.logger.Warn("failed to send reading", zap.Error(err))
		} else {
			accepted++
			s.logger.Info("reading sent",
				zap.Float64("temperature", temperature),
				zap.Float64("humidity", humidity),
				zap.String("device_state", string(state)),
			)
		}
		if count > 0 && sent >= count {
			return accepted
		}

		select {
		case <-ctx.Done():
			return accepted
		case <-ticker.C:
		}
	}
}

func step(rng *rand.Rand, value, maxDelta, lo, hi float64) float64 {
	value += (rng.Float64()*2 - 1) * maxDelta
	value = math.Max(lo, math.Min(hi, value))
	return math.Round(value*10) / 10
}
