package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	libconfig "smarthome/backend/libs/config"
)

// HTTPConfig controls the listener and CORS policy.
type HTTPConfig struct {
	Host           string   `yaml:"host" env:"TELEMETRY_HTTP_HOST"`
	Port           string   `yaml:"port" env:"TELEMETRY_HTTP_PORT"`
	AllowedOrigins []string `yaml:"allowedOrigins" env:"TELEMETRY_CORS_ORIGINS"`
}

// DashboardConfig controls the render loop and the dashboard mount point.
type DashboardConfig struct {
	BasePath        string        `yaml:"basePath" env:"TELEMETRY_DASHBOARD_PATH"`
	RefreshInterval time.Duration `yaml:"refreshInterval" env:"TELEMETRY_REFRESH_INTERVAL"`
}

// RetentionConfig bounds the in-memory reading log. Capacity <= 0 keeps everything.
type RetentionConfig struct {
	Capacity int `yaml:"capacity" env:"TELEMETRY_RETENTION_CAPACITY"`
}

// WebSocketConfig controls dashboard push connections.
type WebSocketConfig struct {
	PingInterval time.Duration `yaml:"pingInterval" env:"TELEMETRY_WS_PING_INTERVAL"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"TELEMETRY_WS_WRITE_TIMEOUT"`
}

// RedisConfig enables the latest-state cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"TELEMETRY_REDIS_ADDR"`
	Password string        `yaml:"password" env:"TELEMETRY_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"TELEMETRY_REDIS_DB"`
	TTL      time.Duration `yaml:"ttl" env:"TELEMETRY_REDIS_TTL"`
}

// DatabaseConfig enables the device state transition journal when DSN is set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"TELEMETRY_POSTGRES_DSN"`
}

// MQTTConfig enables the MQTT ingestion bridge when Broker is set.
type MQTTConfig struct {
	Broker        string `yaml:"broker" env:"TELEMETRY_MQTT_BROKER"`
	ClientID      string `yaml:"clientId" env:"TELEMETRY_MQTT_CLIENT_ID"`
	ReadingsTopic string `yaml:"readingsTopic" env:"TELEMETRY_MQTT_READINGS_TOPIC"`
	StateTopic    string `yaml:"stateTopic" env:"TELEMETRY_MQTT_STATE_TOPIC"`
}

// Config defines telemetry service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Retention RetentionConfig `yaml:"retention"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// Default returns the configuration the service runs with when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:           "0.0.0.0",
			Port:           "5000",
			AllowedOrigins: []string{"*"},
		},
		Dashboard: DashboardConfig{
			BasePath:        "/dashboard/",
			RefreshInterval: 5 * time.Second,
		},
		Retention: RetentionConfig{
			Capacity: 10000,
		},
		WebSocket: WebSocketConfig{
			PingInterval: 30 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			TTL: time.Hour,
		},
		MQTT: MQTTConfig{
			ClientID:      "telemetry-service",
			ReadingsTopic: "smarthome/sensors/readings",
			StateTopic:    "smarthome/actuator/state",
		},
	}
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := Default()

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fields that have no sensible fallback.
func (c *Config) Validate() error {
	path := c.DashboardPath()
	if path == "/" {
		return errors.New("config: dashboard path must not be the root path")
	}
	if strings.HasPrefix(path, "/api/") {
		return fmt.Errorf("config: dashboard path %q collides with the ingestion api", path)
	}
	if c.MQTTEnabled() && strings.TrimSpace(c.MQTT.ReadingsTopic) == "" {
		return errors.New("config: mqtt readings topic required when broker is set")
	}
	return nil
}

// HTTPAddress returns host:port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.HTTP.Port), ":")
	if port == "" {
		port = "5000"
	}
	return net.JoinHostPort(strings.TrimSpace(c.HTTP.Host), port)
}

// DashboardPath returns the base path normalized to "/name/".
func (c *Config) DashboardPath() string {
	path := strings.Trim(strings.TrimSpace(c.Dashboard.BasePath), "/")
	if path == "" {
		return "/"
	}
	return "/" + path + "/"
}

// RefreshInterval returns the render period.
func (c *Config) RefreshInterval() time.Duration {
	if c.Dashboard.RefreshInterval <= 0 {
		return 5 * time.Second
	}
	return c.Dashboard.RefreshInterval
}

// PingInterval returns websocket ping interval.
func (c *Config) PingInterval() time.Duration {
	if c.WebSocket.PingInterval <= 0 {
		return 30 * time.Second
	}
	return c.WebSocket.PingInterval
}

// WriteTimeout returns websocket write timeout.
func (c *Config) WriteTimeout() time.Duration {
	if c.WebSocket.WriteTimeout <= 0 {
		return 10 * time.Second
	}
	return c.WebSocket.WriteTimeout
}

// StateTTL returns the expiry of the cached device state.
func (c *Config) StateTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return time.Hour
	}
	return c.Redis.TTL
}

// RedisEnabled reports whether the latest-state cache is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// DatabaseEnabled reports whether the transition journal is configured.
func (c *Config) DatabaseEnabled() bool {
	return strings.TrimSpace(c.Database.DSN) != ""
}

// MQTTEnabled reports whether the MQTT bridge is configured.
func (c *Config) MQTTEnabled() bool {
	return strings.TrimSpace(c.MQTT.Broker) != ""
}
