package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Store.Driver != StoreDriverPostgres {
		t.Fatalf("expected default driver %q, got %q", StoreDriverPostgres, cfg.Store.Driver)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Fatalf("expected 30m session ttl, got %s", cfg.Session.TTL)
	}
	if cfg.Ingest.DefaultCountry != "US" {
		t.Fatalf("expected default country US, got %q", cfg.Ingest.DefaultCountry)
	}
	if cfg.Analytics.QueryTimeout != 10*time.Second {
		t.Fatalf("expected 10s query timeout, got %s", cfg.Analytics.QueryTimeout)
	}
	if cfg.Postgres.Port != 5432 {
		t.Fatalf("expected postgres port 5432, got %d", cfg.Postgres.Port)
	}
	if cfg.Session.ExpectedPerHour != 100000 {
		t.Fatalf("expected 100000 sessions per hour, got %d", cfg.Session.ExpectedPerHour)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("INGEST_ASYNC", "true")
	t.Setenv("STORE_DRIVER", "clickhouse")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("expected PG_HOST override, got %q", cfg.Postgres.Host)
	}
	if cfg.Postgres.Port != 6543 {
		t.Fatalf("expected PG_PORT override, got %d", cfg.Postgres.Port)
	}
	if cfg.Session.TTL != 5*time.Minute {
		t.Fatalf("expected SESSION_TTL override, got %s", cfg.Session.TTL)
	}
	if !cfg.Ingest.Async {
		t.Fatal("expected INGEST_ASYNC to enable async ingestion")
	}
	if cfg.Store.Driver != StoreDriverClickHouse {
		t.Fatalf("expected clickhouse driver, got %q", cfg.Store.Driver)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
ingest:
  default_country: DE
session:
  max_entries: 42
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Ingest.DefaultCountry != "DE" {
		t.Fatalf("expected DE from yaml, got %q", cfg.Ingest.DefaultCountry)
	}
	if cfg.Session.MaxEntries != 42 {
		t.Fatalf("expected 42 max entries, got %d", cfg.Session.MaxEntries)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "mongo")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
