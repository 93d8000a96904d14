package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Check.Timeout != 8*time.Second {
		t.Fatalf("Timeout=%s, want 8s", cfg.Check.Timeout)
	}
	if cfg.Check.Retries != 2 {
		t.Fatalf("Retries=%d, want 2", cfg.Check.Retries)
	}
	if cfg.Pricing.Policy != "first-year" {
		t.Fatalf("Policy=%q, want first-year", cfg.Pricing.Policy)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TLDSCOUT_TIMEOUT", "3s")
	t.Setenv("TLDSCOUT_RETRIES", "5")
	t.Setenv("TLDSCOUT_PRICE_POLICY", "total")

	cfg := Load()

	if cfg.Check.Timeout != 3*time.Second {
		t.Fatalf("Timeout=%s, want 3s", cfg.Check.Timeout)
	}
	if cfg.Check.Retries != 5 {
		t.Fatalf("Retries=%d, want 5", cfg.Check.Retries)
	}
	if cfg.Pricing.Policy != "total" {
		t.Fatalf("Policy=%q, want total", cfg.Pricing.Policy)
	}
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("TLDSCOUT_RETRIES", "lots")
	t.Setenv("TLDSCOUT_BACKOFF", "soon")

	cfg := Load()

	if cfg.Check.Retries != 2 {
		t.Fatalf("Retries=%d, want default 2", cfg.Check.Retries)
	}
	if cfg.Check.Backoff != 100*time.Millisecond {
		t.Fatalf("Backoff=%s, want default 100ms", cfg.Check.Backoff)
	}
}
