package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
)

// Config holds all daemon configuration.
type Config struct {
	Bus       BusConfig       `yaml:"bus"`
	Status    StatusConfig    `yaml:"status"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Seed      SeedConfig      `yaml:"seed"`
}

// BusConfig selects the message bus the daemon registers on.
type BusConfig struct {
	Type     string `envconfig:"BUS_TYPE" default:"system" yaml:"type" validate:"oneof=system session none"`
	Name     string `envconfig:"BUS_NAME" default:"org.storage.stratis1" yaml:"name" validate:"required"`
	BasePath string `envconfig:"BUS_BASE_PATH" default:"/org/storage/stratis1" yaml:"base_path" validate:"required,startswith=/"`
}

// StatusConfig holds the read-only HTTP status endpoint configuration.
type StatusConfig struct {
	Host    string `envconfig:"STATUS_HOST" default:"127.0.0.1" yaml:"host" validate:"required"`
	Port    string `envconfig:"STATUS_PORT" default:"8700" yaml:"port" validate:"required,numeric"`
	Enabled bool   `envconfig:"STATUS_ENABLED" default:"true" yaml:"enabled"`
}

// Addr returns host:port
func (s StatusConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration for the status endpoint.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second" validate:"gte=0"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" validate:"gte=0"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// SeedConfig names demo seed files replayed at startup. Empty disables
// seeding.
type SeedConfig struct {
	Pattern string `envconfig:"SEED_PATTERN" yaml:"pattern"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile loads a YAML file on top of Default. Keys absent from the file
// keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Type:     "system",
			Name:     paths.ServiceName,
			BasePath: paths.BasePath,
		},
		Status: StatusConfig{
			Host:    "127.0.0.1",
			Port:    "8700",
			Enabled: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
