package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

// Provider holds upstream access for one charging network.
type Provider struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
}

// Config defines the chargegrid service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"CHARGEGRID_HTTP_PORT"`
	} `yaml:"http"`
	JWT struct {
		Secret string `yaml:"secret" env:"CHARGEGRID_JWT_SECRET"`
	} `yaml:"jwt"`
	Store struct {
		Backend string `yaml:"backend" env:"CHARGEGRID_STORE_BACKEND"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr" env:"CHARGEGRID_REDIS_ADDR"`
		Password string `yaml:"password" env:"CHARGEGRID_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"CHARGEGRID_REDIS_DB"`
	} `yaml:"redis"`
	Archive struct {
		DSN string `yaml:"dsn" env:"CHARGEGRID_POSTGRES_DSN"`
	} `yaml:"archive"`
	Providers struct {
		Timeout          time.Duration `yaml:"timeout" env:"CHARGEGRID_PROVIDER_TIMEOUT"`
		ChargePoint      Provider      `yaml:"chargepoint"`
		EVgo             Provider      `yaml:"evgo"`
		ElectrifyAmerica Provider      `yaml:"electrifyAmerica"`
	} `yaml:"providers"`
	Places struct {
		BaseURL string `yaml:"baseUrl" env:"CHARGEGRID_PLACES_BASE_URL"`
		APIKey  string `yaml:"apiKey" env:"CHARGEGRID_PLACES_API_KEY"`
	} `yaml:"places"`
}

// Load reads configuration and validates required settings.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Store.Backend = StoreBackendRedis
	cfg.Redis.Addr = "localhost:6379"
	cfg.Providers.Timeout = 5 * time.Second
	cfg.Providers.ChargePoint.BaseURL = "https://api.chargepoint.com/v1"
	cfg.Providers.EVgo.BaseURL = "https://api.evgo.com/v1"
	cfg.Providers.ElectrifyAmerica.BaseURL = "https://api.electrifyamerica.com/v1"

	if err := load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	switch cfg.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return nil, errors.New("config: redis addr required")
		}
	default:
		return nil, fmt.Errorf("config: unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Providers.Timeout <= 0 {
		cfg.Providers.Timeout = 5 * time.Second
	}
	return cfg, nil
}

// HTTPAddress returns :port style listen address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
