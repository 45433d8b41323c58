package cli

import (
	"fmt"
	"time"

	"github.com/gbaghdasaryan1/subscription-client/pkg/config"
)

// Config is the CLI's environment-driven configuration.
type Config struct {
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	Timeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	LogLevel   string        `env:"LOG_LEVEL" envDefault:"warn"`

	// StoreBackend selects where the session lives: "file" (encrypted
	// keystore, the default) or "redis" (kiosk deployments).
	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	StoreDir     string `env:"STORE_DIR" envDefault:""`
	StoreSecret  string `env:"STORE_SECRET" envDefault:"change-me-device-secret"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	DeviceID      string `env:"DEVICE_ID" envDefault:"default"`

	TracingEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TracingEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
}

// LoadConfig reads the CLI configuration from the environment, loading a
// local .env file first when present.
func LoadConfig() (*Config, error) {
	if err := config.LoadDotenv(".env"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.StoreBackend != "file" && cfg.StoreBackend != "redis" {
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}
	return &cfg, nil
}
