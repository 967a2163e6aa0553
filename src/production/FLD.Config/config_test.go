package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("THINGSPEAK_API_KEY", "test-key")
	t.Setenv("JWT_SECRET_KEY", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scheduler.FetchInterval != 20*time.Second {
		t.Fatalf("expected fetch interval 20s, got %s", cfg.Scheduler.FetchInterval)
	}
	if cfg.Scheduler.AlertInterval != 20*time.Second {
		t.Fatalf("expected alert interval 20s, got %s", cfg.Scheduler.AlertInterval)
	}
	if cfg.Scheduler.BroadcastInterval != 5*time.Second {
		t.Fatalf("expected broadcast interval 5s, got %s", cfg.Scheduler.BroadcastInterval)
	}
	if !cfg.Scheduler.SkipOverlap {
		t.Fatalf("expected overlap guard enabled by default")
	}
	if cfg.Alert.RadiusKm != 10 {
		t.Fatalf("expected radius 10km, got %v", cfg.Alert.RadiusKm)
	}
	if cfg.Alert.Field != 5 {
		t.Fatalf("expected alert field 5, got %d", cfg.Alert.Field)
	}
	if cfg.Alert.ReadingRuleEnabled {
		t.Fatalf("expected reading rule disabled by default")
	}
	if cfg.ThingSpeak.Results != 10 {
		t.Fatalf("expected 10 results, got %d", cfg.ThingSpeak.Results)
	}
	if cfg.RainGauge.ChannelID != "2831972" || cfg.RainGauge.Results != 2 {
		t.Fatalf("unexpected rain gauge config: %+v", cfg.RainGauge)
	}
	if cfg.MQTTEnabled() || cfg.RedisEnabled() {
		t.Fatalf("expected optional transports disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ALERT_RADIUS_KM", "2.5")
	t.Setenv("BROADCAST_INTERVAL", "1s")
	t.Setenv("SCHEDULER_SKIP_OVERLAP", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Alert.RadiusKm != 2.5 {
		t.Fatalf("expected radius 2.5, got %v", cfg.Alert.RadiusKm)
	}
	if cfg.Scheduler.BroadcastInterval != time.Second {
		t.Fatalf("expected broadcast interval 1s, got %s", cfg.Scheduler.BroadcastInterval)
	}
	if cfg.Scheduler.SkipOverlap {
		t.Fatalf("expected overlap guard disabled")
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "http://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.RedisEnabled() {
		t.Fatalf("expected redis enabled")
	}
}

func TestLoadRequiresMongoURI(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("THINGSPEAK_API_KEY", "test-key")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when MONGODB_URI is missing")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	bad := *cfg
	bad.Alert.RadiusKm = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero radius")
	}

	bad = *cfg
	bad.Scheduler.BroadcastInterval = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero interval")
	}

	bad = *cfg
	bad.ThingSpeak.Results = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero results")
	}
}
