package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Midtrans MidtransConfig
	Invoice  InvoiceConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

type ServerConfig struct {
	Port string
	Env  string
	// BaseURL is the public URL of the donation site. Gateway finish/error
	// redirects are built from it.
	BaseURL string
}

type DatabaseConfig struct {
	Driver string // sqlite or postgres
	Path   string
	URL    string
}

type MidtransConfig struct {
	Environment string
	ServerKey   string
	Timeout     time.Duration
}

type InvoiceConfig struct {
	DefaultPrefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnv("SERVER_PORT", "8080"),
			Env:     getEnv("ENVIRONMENT", "development"),
			BaseURL: strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			Path:   getEnv("DB_PATH", "donations.db"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		Midtrans: MidtransConfig{
			Environment: getEnv("MIDTRANS_ENVIRONMENT", "sandbox"),
			ServerKey:   strings.TrimSpace(os.Getenv("MIDTRANS_SERVER_KEY")),
			Timeout:     getEnvDuration("GATEWAY_TIMEOUT", 15*time.Second),
		},
		Invoice: InvoiceConfig{
			DefaultPrefix: getEnv("INVOICE_PREFIX", "DON"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			TTL:      getEnvDuration("PROGRAM_CACHE_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "donation.status_changed"),
		},
	}

	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	// A missing key is not fatal: notifications are rejected until it is set.
	if cfg.Midtrans.ServerKey == "" {
		logger.Warn("MIDTRANS_SERVER_KEY is not set, all payment notifications will be rejected")
	}

	return cfg, nil
}

// IsProduction reports whether the service talks to the live gateway.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
