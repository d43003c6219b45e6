package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OUTBREAK_CONFIG", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Fatalf("expected memory driver, got %s", cfg.Store.Driver)
	}
	if cfg.Rules.Window != 24*time.Hour || cfg.Rules.ClusterMinCases != 3 || cfg.Rules.SeasonalMinCases != 2 {
		t.Fatalf("unexpected rule defaults: %+v", cfg.Rules)
	}
	if cfg.Rules.PHMin != 6.5 || cfg.Rules.TurbidityMax != 5 {
		t.Fatalf("unexpected water thresholds: %+v", cfg.Rules)
	}
	if len(cfg.Rules.SeasonalKeywords) != 4 {
		t.Fatalf("expected four seasonal keywords, got %v", cfg.Rules.SeasonalKeywords)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outbreak.yaml")
	if err := os.WriteFile(path, []byte(`store:
  driver: sqlite
  sqlitePath: /tmp/x.db
rules:
  clusterMinCases: 5
  timezone: Asia/Kolkata
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OUTBREAK_LOG_FORMAT", "json")
	t.Setenv("OUTBREAK_CACHE_ENABLED", "1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != StoreSQLite || cfg.Store.SQLitePath != "/tmp/x.db" {
		t.Fatalf("file values not applied: %+v", cfg.Store)
	}
	if cfg.Rules.ClusterMinCases != 5 || cfg.Rules.SeasonalMinCases != 2 {
		t.Fatalf("expected partial override of rules: %+v", cfg.Rules)
	}
	if !cfg.Logging.JSON || !cfg.Cache.Enabled {
		t.Fatalf("env overrides not applied: logging=%+v cache=%+v", cfg.Logging, cfg.Cache)
	}
	loc, err := cfg.Rules.Location()
	if err != nil || loc.String() != "Asia/Kolkata" {
		t.Fatalf("unexpected location %v err=%v", loc, err)
	}
}

func TestLoadRejectsPostgRESTWithoutURL(t *testing.T) {
	t.Setenv("OUTBREAK_STORE_DRIVER", "postgrest")
	t.Setenv("OUTBREAK_SUPABASE_URL", "")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
