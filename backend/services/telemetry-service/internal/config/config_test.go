package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TELEMETRY_POSTGRES_DSN", "postgres://greenhouse@localhost/greenhouse")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8084", cfg.HTTPAddress())
	assert.Equal(t, "greenhouse/#", cfg.MQTT.Topic)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, 5*time.Second, cfg.MQTT.ReconnectBackoff)
	assert.Equal(t, 60*time.Second, cfg.Ingest.WriteInterval)
	assert.Equal(t, GateScopeDevice, cfg.Ingest.GateScope)
	assert.Equal(t, 24*time.Hour, cfg.Redis.LatestTTL)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TELEMETRY_POSTGRES_DSN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TELEMETRY_POSTGRES_DSN", "postgres://localhost/greenhouse")
	t.Setenv("MQTT_HOST", "mosquitto")
	t.Setenv("MQTT_TOPIC", "greenhouse/+")
	t.Setenv("INGEST_WRITE_INTERVAL", "30s")
	t.Setenv("INGEST_GATE_SCOPE", " GLOBAL ")
	t.Setenv("TELEMETRY_HTTP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mosquitto", cfg.MQTT.Host)
	assert.Equal(t, "greenhouse/+", cfg.MQTT.Topic)
	assert.Equal(t, 30*time.Second, cfg.Ingest.WriteInterval)
	assert.Equal(t, GateScopeGlobal, cfg.Ingest.GateScope)
	assert.Equal(t, ":9090", cfg.HTTPAddress())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Database.DSN = "postgres://localhost/greenhouse"
		return cfg
	}

	cases := map[string]func(*Config){
		"gate scope": func(c *Config) { c.Ingest.GateScope = "room" },
		"mqtt port":  func(c *Config) { c.MQTT.Port = 70000 },
		"mqtt qos":   func(c *Config) { c.MQTT.QoS = 3 },
		"mqtt topic": func(c *Config) { c.MQTT.Topic = " " },
		"backoff":    func(c *Config) { c.MQTT.ReconnectBackoff = 0 },
		"db timeout": func(c *Config) { c.Database.QueryTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("mqtt disabled skips broker checks", func(t *testing.T) {
		cfg := base()
		cfg.MQTT.Enabled = false
		cfg.MQTT.Host = ""
		assert.NoError(t, cfg.Validate())
	})
}
