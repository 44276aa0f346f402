package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "greenhouse/backend/libs/config"
	"greenhouse/backend/libs/httpserver"
)

const defaultHTTPPort = "8084"

// Gate scopes.
const (
	GateScopeDevice = "device"
	GateScopeGlobal = "global"
)

// Config defines telemetry service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Redis    RedisConfig    `yaml:"redis"`
}

type HTTPConfig struct {
	Port string `yaml:"port" env:"TELEMETRY_HTTP_PORT"`
}

type DatabaseConfig struct {
	DSN          string        `yaml:"dsn" env:"TELEMETRY_POSTGRES_DSN"`
	QueryTimeout time.Duration `yaml:"queryTimeout" env:"TELEMETRY_DB_QUERY_TIMEOUT"`
	Migrate      bool          `yaml:"migrate" env:"TELEMETRY_DB_MIGRATE"`
}

type MQTTConfig struct {
	Enabled          bool          `yaml:"enabled" env:"MQTT_ENABLED"`
	Host             string        `yaml:"host" env:"MQTT_HOST"`
	Port             int           `yaml:"port" env:"MQTT_PORT"`
	Topic            string        `yaml:"topic" env:"MQTT_TOPIC"`
	QoS              int           `yaml:"qos" env:"MQTT_QOS"`
	ClientID         string        `yaml:"clientId" env:"MQTT_CLIENT_ID"`
	Username         string        `yaml:"username" env:"MQTT_USERNAME"`
	Password         string        `yaml:"password" env:"MQTT_PASSWORD"`
	TLS              bool          `yaml:"tls" env:"MQTT_TLS"`
	KeepAlive        time.Duration `yaml:"keepAlive" env:"MQTT_KEEPALIVE"`
	ReconnectBackoff time.Duration `yaml:"reconnectBackoff" env:"MQTT_RECONNECT_BACKOFF"`
}

type IngestConfig struct {
	WriteInterval time.Duration `yaml:"writeInterval" env:"INGEST_WRITE_INTERVAL"`
	GateScope     string        `yaml:"gateScope" env:"INGEST_GATE_SCOPE"`
}

// RedisConfig is optional; an empty Addr keeps latest readings in memory.
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"TELEMETRY_REDIS_ADDR"`
	Password  string        `yaml:"password" env:"TELEMETRY_REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"TELEMETRY_REDIS_DB"`
	LatestTTL time.Duration `yaml:"latestTTL" env:"TELEMETRY_LATEST_TTL"`
}

// Default returns the configuration used before file and env overrides.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Port: defaultHTTPPort},
		Database: DatabaseConfig{
			QueryTimeout: 5 * time.Second,
			Migrate:      true,
		},
		MQTT: MQTTConfig{
			Enabled:          true,
			Host:             "localhost",
			Port:             1883,
			Topic:            "greenhouse/#",
			ClientID:         "greenhouse-telemetry",
			KeepAlive:        30 * time.Second,
			ReconnectBackoff: 5 * time.Second,
		},
		Ingest: IngestConfig{
			WriteInterval: 60 * time.Second,
			GateScope:     GateScopeDevice,
		},
		Redis: RedisConfig{LatestTTL: 24 * time.Hour},
	}
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate implements libconfig.Validator.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn required")
	}
	if c.Database.QueryTimeout <= 0 {
		return errors.New("database query timeout must be positive")
	}
	c.Ingest.GateScope = strings.ToLower(strings.TrimSpace(c.Ingest.GateScope))
	switch c.Ingest.GateScope {
	case GateScopeDevice, GateScopeGlobal:
	default:
		return fmt.Errorf("unknown gate scope %q", c.Ingest.GateScope)
	}
	if !c.MQTT.Enabled {
		return nil
	}
	if strings.TrimSpace(c.MQTT.Host) == "" {
		return errors.New("mqtt host required")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("mqtt port %d out of range", c.MQTT.Port)
	}
	if strings.TrimSpace(c.MQTT.Topic) == "" {
		return errors.New("mqtt topic required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos %d out of range", c.MQTT.QoS)
	}
	if c.MQTT.ReconnectBackoff <= 0 {
		return errors.New("mqtt reconnect backoff must be positive")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	return httpserver.Address(c.HTTP.Port, defaultHTTPPort)
}
