package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           string        `envconfig:"PORT" default:"3000"`
	BodyLimit      int64         `envconfig:"BODY_LIMIT" default:"102400"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"text"`
	GinMode        string        `envconfig:"GIN_MODE" default:"release"`
	SwaggerEnabled bool          `envconfig:"SWAGGER_ENABLED" default:"true"`
	Shutdown       time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	Mongo          MongoConfig   `envconfig:"MONGODB"`
	Health         HealthConfig  `envconfig:"HEALTH"`
}

type MongoConfig struct {
	URI            string        `envconfig:"URI" default:"mongodb://localhost:27017"`
	Database       string        `envconfig:"DATABASE" default:"productos"`
	Collection     string        `envconfig:"COLLECTION" default:"productos"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	// Pooled keeps a single client alive across requests instead of dialing per request.
	Pooled bool `envconfig:"POOLED" default:"false"`
}

type HealthConfig struct {
	// GRPCPort empty disables the gRPC health service.
	GRPCPort string        `envconfig:"GRPC_PORT"`
	Interval time.Duration `envconfig:"INTERVAL" default:"15s"`
}

// Load reads the environment (and a .env file when present).
func Load() (Config, error) {
	_ = godotenv.Load() // load .env if it exists

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("PORT must be a TCP port, got %q", c.Port)
	}
	if c.Health.GRPCPort != "" {
		if p, err := strconv.Atoi(c.Health.GRPCPort); err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("HEALTH_GRPC_PORT must be a TCP port, got %q", c.Health.GRPCPort)
		}
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("BODY_LIMIT must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.LogFormat)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid GIN_MODE: %s", c.GinMode)
	}
	if c.Mongo.Database == "" || c.Mongo.Collection == "" {
		return fmt.Errorf("MONGODB_DATABASE and MONGODB_COLLECTION are required")
	}
	if c.Mongo.ConnectTimeout <= 0 {
		return fmt.Errorf("MONGODB_CONNECT_TIMEOUT must be positive")
	}
	if c.Health.Interval <= 0 {
		return fmt.Errorf("HEALTH_INTERVAL must be positive")
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string { return ":" + c.Port }
