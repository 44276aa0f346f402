package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "greenhouse/backend/libs/config"
	"greenhouse/backend/libs/httpserver"
)

const defaultHTTPPort = "8085"

// Password schemes.
const (
	SchemePlain  = "plain"
	SchemeBcrypt = "bcrypt"
)

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"ACCOUNT_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN          string        `yaml:"dsn" env:"ACCOUNT_POSTGRES_DSN"`
		QueryTimeout time.Duration `yaml:"queryTimeout" env:"ACCOUNT_DB_QUERY_TIMEOUT"`
		Migrate      bool          `yaml:"migrate" env:"ACCOUNT_DB_MIGRATE"`
	} `yaml:"database"`
	Password struct {
		Scheme string `yaml:"scheme" env:"ACCOUNT_PASSWORD_SCHEME"`
	} `yaml:"password"`
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = defaultHTTPPort
	cfg.Database.QueryTimeout = 5 * time.Second
	cfg.Database.Migrate = true
	cfg.Password.Scheme = SchemePlain

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate implements libconfig.Validator.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database DSN is required")
	}
	if c.Database.QueryTimeout <= 0 {
		c.Database.QueryTimeout = 5 * time.Second
	}
	c.Password.Scheme = strings.ToLower(strings.TrimSpace(c.Password.Scheme))
	switch c.Password.Scheme {
	case SchemePlain, SchemeBcrypt:
		return nil
	default:
		return fmt.Errorf("unknown password scheme %q", c.Password.Scheme)
	}
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	return httpserver.Address(c.HTTP.Port, defaultHTTPPort)
}
