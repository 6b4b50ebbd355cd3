package config_test

import (
	"testing"
	"time"

	"github.com/iho/bankmatch/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.DateWindowDays != 5 {
		t.Fatalf("expected default date window of 5 days, got %d", cfg.DateWindowDays)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("AMOUNT_TOLERANCE", "0.05")
	t.Setenv("DATE_WINDOW_DAYS", "3")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected database URL override, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected redis URL override, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	mc := cfg.MatchConfig()
	if mc.AmountTolerance.String() != "0.05" {
		t.Fatalf("expected tolerance override, got %s", mc.AmountTolerance)
	}
	if mc.DateWindowDays != 3 {
		t.Fatalf("expected date window override, got %d", mc.DateWindowDays)
	}
}

func TestMatchConfigFallsBackOnBadTolerance(t *testing.T) {
	t.Setenv("AMOUNT_TOLERANCE", "not-a-number")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	mc := cfg.MatchConfig()
	if mc.AmountTolerance.String() != "0.01" {
		t.Fatalf("expected default tolerance, got %s", mc.AmountTolerance)
	}
}
