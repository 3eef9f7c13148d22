package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Driver != DriverPostgres {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Geo.DefaultLimit != 20 || cfg.Geo.MaxLimit != 100 {
		t.Errorf("geo limits = %d/%d", cfg.Geo.DefaultLimit, cfg.Geo.MaxLimit)
	}
	if cfg.Heatmap.HalfLife != 24*time.Hour {
		t.Errorf("half-life = %v", cfg.Heatmap.HalfLife)
	}
	if !reflect.DeepEqual(cfg.Geo.SupportedRegions, DefaultRegions) {
		t.Errorf("regions = %v", cfg.Geo.SupportedRegions)
	}
	if cfg.Redis.URL != "" || cfg.NATS.URL != "" {
		t.Errorf("optional backends should be off by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", DriverMemory)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("GEO_DEFAULT_LIMIT", "5")
	t.Setenv("GEO_MAX_LIMIT", "50")
	t.Setenv("GEO_SUPPORTED_REGIONS", " Cambridge , Somerville,,")
	t.Setenv("HEATMAP_HALF_LIFE", "90m")
	t.Setenv("DB_MIGRATE", "false")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Driver != DriverMemory || cfg.Server.Port != 9090 {
		t.Errorf("driver/port = %q/%d", cfg.Storage.Driver, cfg.Server.Port)
	}
	if cfg.Geo.DefaultLimit != 5 || cfg.Geo.MaxLimit != 50 {
		t.Errorf("geo limits = %d/%d", cfg.Geo.DefaultLimit, cfg.Geo.MaxLimit)
	}
	if want := []string{"Cambridge", "Somerville"}; !reflect.DeepEqual(cfg.Geo.SupportedRegions, want) {
		t.Errorf("regions = %q", cfg.Geo.SupportedRegions)
	}
	if cfg.Heatmap.HalfLife != 90*time.Minute {
		t.Errorf("half-life = %v", cfg.Heatmap.HalfLife)
	}
	if cfg.Database.Migrate {
		t.Errorf("migrate should be off")
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("redis url = %q", cfg.Redis.URL)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("HEATMAP_HALF_LIFE", "a while")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Heatmap.HalfLife != 24*time.Hour {
		t.Errorf("defaults not kept: port %d, half-life %v", cfg.Server.Port, cfg.Heatmap.HalfLife)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"zero default limit", map[string]string{"GEO_DEFAULT_LIMIT": "0"}},
		{"max below default", map[string]string{"GEO_DEFAULT_LIMIT": "30", "GEO_MAX_LIMIT": "10"}},
		{"negative half-life", map[string]string{"HEATMAP_HALF_LIFE": "-1h"}},
		{"memory in production", map[string]string{"STORAGE_DRIVER": DriverMemory, "APP_ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Errorf("expected a validation error")
			}
		})
	}
}
