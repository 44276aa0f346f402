package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokerSection struct {
	Host string `yaml:"host" env:"TEST_BROKER_HOST"`
	Port int    `yaml:"port" env:"TEST_BROKER_PORT"`
}

type sample struct {
	Name     string        `yaml:"name" env:"TEST_NAME"`
	Enabled  bool          `yaml:"enabled" env:"TEST_ENABLED"`
	Interval time.Duration `yaml:"interval" env:"TEST_INTERVAL"`
	Ratio    float64       `yaml:"ratio" env:"TEST_RATIO"`
	Origins  []string      `yaml:"origins" env:"TEST_ORIGINS"`
	Broker   brokerSection `yaml:"broker"`
	Skipped  string        `env:"-"`
}

type validated struct {
	DSN string `env:"TEST_DSN"`
}

func (v *validated) Validate() error {
	if v.DSN == "" {
		return errors.New("dsn is required")
	}
	return nil
}

func TestLoadConfigEnvOverridesDefaults(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("TEST_NAME", "greenhouse")
	t.Setenv("TEST_ENABLED", "true")
	t.Setenv("TEST_INTERVAL", "90s")
	t.Setenv("TEST_RATIO", "0.5")
	t.Setenv("TEST_ORIGINS", "a, b,,c")
	t.Setenv("TEST_BROKER_PORT", "1884")

	cfg := sample{Name: "default", Broker: brokerSection{Host: "localhost", Port: 1883}}
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "greenhouse", cfg.Name)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Interval)
	assert.InDelta(t, 0.5, cfg.Ratio, 1e-9)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Origins)
	assert.Equal(t, "localhost", cfg.Broker.Host)
	assert.Equal(t, 1884, cfg.Broker.Port)
}

func TestLoadConfigDurationAsSeconds(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("TEST_INTERVAL", "60")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))
	assert.Equal(t, time.Minute, cfg.Interval)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\nbroker:\n  host: broker.local\n  port: 1885\n"), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("TEST_BROKER_HOST", "broker.env")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))
	assert.Equal(t, "from-file", cfg.Name)
	assert.Equal(t, "broker.env", cfg.Broker.Host)
	assert.Equal(t, 1885, cfg.Broker.Port)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("TEST_BROKER_PORT", "not-a-port")

	var cfg sample
	err := LoadConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_BROKER_PORT")
}

func TestLoadConfigRunsValidator(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("TEST_DSN", "")

	var cfg validated
	err := LoadConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")

	t.Setenv("TEST_DSN", "postgres://localhost/greenhouse")
	require.NoError(t, LoadConfig(&cfg))
}

func TestLoadConfigTargetChecks(t *testing.T) {
	assert.Error(t, LoadConfig(nil))
	var s sample
	assert.Error(t, LoadConfig(s))
}
