package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// clearEnv blanks every key so the host environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseDriver != DriverMemory || cfg.EventsBackend != EventsLog {
		t.Errorf("driver/backend = %q/%q", cfg.DatabaseDriver, cfg.EventsBackend)
	}
	if cfg.MinProfit != 1 || cfg.MaxProfit != 100 {
		t.Errorf("profit range = [%v, %v], want [1, 100]", cfg.MinProfit, cfg.MaxProfit)
	}
	if cfg.LockTTL() != 10*time.Second {
		t.Errorf("LockTTL() = %v", cfg.LockTTL())
	}
	if !cfg.MetricsEnabled {
		t.Error("metrics disabled by default")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_URL", "file:ledger.db")
	t.Setenv("EVENTS_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MIN_PROFIT", "2.5")
	t.Setenv("MAX_PROFIT", "7.25")
	t.Setenv("LOCK_TTL_SECONDS", "3")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.ServerPort != "9090" || cfg.DatabaseDriver != DriverSQLite {
		t.Errorf("cfg = %+v", cfg)
	}
	brokers := cfg.Brokers()
	if len(brokers) != 2 || brokers[0] != "k1:9092" || brokers[1] != "k2:9092" {
		t.Errorf("Brokers() = %v", brokers)
	}
	lo, hi, err := cfg.ProfitConfig().Bounds()
	if err != nil {
		t.Fatal(err)
	}
	if !lo.Equal(decimal.RequireFromString("2.5")) || !hi.Equal(decimal.RequireFromString("7.25")) {
		t.Errorf("profit bounds = %s, %s", lo, hi)
	}
	if cfg.LockTTL() != 3*time.Second {
		t.Errorf("LockTTL() = %v", cfg.LockTTL())
	}
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("SERVER_PORT")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_PORT=7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SERVER_PORT") })

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerPort != "7070" {
		t.Errorf("ServerPort = %q, want 7070 from .env", cfg.ServerPort)
	}
}

func TestLoadConfig_Coercions(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIN_PROFIT", "50")
	t.Setenv("MAX_PROFIT", "10")
	t.Setenv("EVENTS_BACKEND", "carrier-pigeon")
	t.Setenv("LOCK_TTL_SECONDS", "-4")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinProfit != 1 || cfg.MaxProfit != 100 {
		t.Errorf("inverted range kept: [%v, %v]", cfg.MinProfit, cfg.MaxProfit)
	}
	if cfg.EventsBackend != EventsLog {
		t.Errorf("EventsBackend = %q, want log", cfg.EventsBackend)
	}
	if cfg.LockTTLSeconds != 10 {
		t.Errorf("LockTTLSeconds = %d, want 10", cfg.LockTTLSeconds)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"DATABASE_DRIVER": "postgres"}},
		{"sqlite without url", map[string]string{"DATABASE_DRIVER": "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(t.TempDir()); err == nil {
				t.Error("LoadConfig() error = nil")
			}
		})
	}
}

func TestLogger(t *testing.T) {
	for _, cfg := range []Config{{LogFormat: "text", LogLevel: "debug"}, {LogFormat: "json", LogLevel: "bogus"}} {
		if cfg.Logger() == nil {
			t.Errorf("Logger() nil for %+v", cfg)
		}
	}
}
