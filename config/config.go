// Package config loads process configuration from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the whole process configuration.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Storage    `yaml:"storage"`
	RateLimit  `yaml:"rate_limit"`
	CORS       `yaml:"cors"`
	Defaults   `yaml:"defaults"`
}

// HTTPServer configures the listener.
type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Storage configures the SQLite file. ":memory:" keeps everything in process.
type Storage struct {
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"./payroll.db"`
}

// RateLimit throttles mutating API calls.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"10"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
}

// CORS lists allowed browser origins.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://localhost:5173"`
}

// Defaults seed the settings of a fresh install.
type Defaults struct {
	Currency     string  `yaml:"currency" env:"DEFAULT_CURRENCY" env-default:"USD"`
	PayFrequency string  `yaml:"pay_frequency" env:"DEFAULT_PAY_FREQUENCY" env-default:"biweekly"`
	TaxRate      float64 `yaml:"tax_rate" env:"DEFAULT_TAX_RATE" env-default:"0"`
}

// Load reads path when it is set (falling back to CONFIG_PATH), then the environment.
// With neither, every field takes its env-default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from env: %w", err)
		}
		return &cfg, cfg.validate()
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, cfg.validate()
}

// MustLoad is Load that panics.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.TaxRate < 0 || c.TaxRate > 100 {
		return fmt.Errorf("defaults.tax_rate must be within 0..100, got %v", c.TaxRate)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit rps and burst must be positive")
	}
	return nil
}
