package app

import (
	"testing"
	"time"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MetricsAddr != ":9090" {
		t.Errorf("unexpected metrics addr: %s", cfg.MetricsAddr)
	}
	if cfg.RetryInterval != 60*time.Second {
		t.Errorf("unexpected retry interval: %s", cfg.RetryInterval)
	}
	if cfg.RetryMaxAttempts != 5 {
		t.Errorf("unexpected retry max attempts: %d", cfg.RetryMaxAttempts)
	}
}

func TestDefaultConfig_ExternalSystemsDisabled(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PostgresDSN != "" {
		t.Errorf("postgres should be disabled by default, got %q", cfg.PostgresDSN)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("redis should be disabled by default, got %q", cfg.RedisAddr)
	}
	if cfg.KafkaBrokers != "" {
		t.Errorf("kafka should be disabled by default, got %q", cfg.KafkaBrokers)
	}
}
