package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MIDTRANS_SERVER_KEY", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("APP_BASE_URL", "https://webalhijrah.test/")
	t.Setenv("GATEWAY_TIMEOUT", "")

	cfg, err := Load(zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Server.BaseURL != "https://webalhijrah.test" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.Server.BaseURL)
	}
	if cfg.Midtrans.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Midtrans.Timeout)
	}
	if cfg.Invoice.DefaultPrefix == "" {
		t.Error("DefaultPrefix should not be empty")
	}
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(zap.NewNop()); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadKafkaBrokers(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("GATEWAY_TIMEOUT", "5s")

	cfg, err := Load(zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Midtrans.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Midtrans.Timeout)
	}
}
