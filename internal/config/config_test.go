package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != DriverMemory || cfg.Leaderboard.DefaultLimit != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9000\"\nstorage:\n  driver: memory\n")
	t.Setenv("PORT", "7000")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_URL", "postgres://localhost/aptitude")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("expected env port, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Driver != DriverPostgres || cfg.Postgres.URL == "" {
		t.Fatalf("expected postgres from env, got %+v", cfg.Storage)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		wantOK bool
	}{
		{"memory", "storage:\n  driver: memory\n", true},
		{"unknown driver", "storage:\n  driver: mongo\n", false},
		{"postgres without url", "storage:\n  driver: postgres\n", false},
		{"negative limit", "leaderboard:\n  default_limit: -1\n", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if tc.wantOK && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.wantOK && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %v", got)
	}
}
