package config

import (
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http_addr=%q want=:8080", cfg.Server.HTTPAddr)
	}
	if cfg.Risk.MaxTradesPerDay != 10 {
		t.Fatalf("max_trades_per_day=%d want=10", cfg.Risk.MaxTradesPerDay)
	}
	if cfg.Reservations.MaxAge != 24*time.Hour {
		t.Fatalf("max_age=%s want=24h", cfg.Reservations.MaxAge)
	}
	if cfg.Reporting.TradeHistoryLimit != 50 {
		t.Fatalf("trade_history_limit=%d want=50", cfg.Reporting.TradeHistoryLimit)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SUP_RISK_COOLDOWN_SECONDS", "60")
	cfg, err := Load("does-not-exist.yaml", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Risk.CooldownSeconds != 60 {
		t.Fatalf("cooldown=%d want=60", cfg.Risk.CooldownSeconds)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("SUP_RESERVATIONS_MAX_AGE", "0s")
	if _, err := Load("does-not-exist.yaml", true); err == nil {
		t.Fatalf("expected validation error for zero max_age")
	}
}
