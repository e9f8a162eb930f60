package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `db_driver: sqlite
db_path: /tmp/test.db
listen_addr: 127.0.0.1:9000
store_timeout: 3s
etl:
  upload_max_bytes: 1024
maintenance:
  disabled: true
  audit_retention_days: 30
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/test.db" || cfg.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Fatalf("store_timeout = %s, want 3s", cfg.StoreTimeout)
	}
	if cfg.ETL.UploadMaxBytes != 1024 {
		t.Fatalf("upload_max_bytes = %d, want 1024", cfg.ETL.UploadMaxBytes)
	}
	if !cfg.Maintenance.Disabled || cfg.Maintenance.AuditRetentionDays != 30 {
		t.Fatalf("unexpected maintenance config %+v", cfg.Maintenance)
	}
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("db_driver = %q, want sqlite", cfg.DBDriver)
	}
	if cfg.ListenAddr != "0.0.0.0:8000" {
		t.Fatalf("listen_addr = %q, want 0.0.0.0:8000", cfg.ListenAddr)
	}
	if cfg.Maintenance.CronSpec != "0 3 * * *" {
		t.Fatalf("cron_spec = %q", cfg.Maintenance.CronSpec)
	}
	if cfg.Maintenance.Disabled {
		t.Fatal("maintenance should run by default")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TESOP_LISTEN_ADDR", "127.0.0.1:8123")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8123" {
		t.Fatalf("listen_addr = %q, want override", cfg.ListenAddr)
	}
}

func TestEffectiveStoreTimeoutFloor(t *testing.T) {
	cfg := &AppConfig{StoreTimeout: 100 * time.Millisecond}
	if got := cfg.EffectiveStoreTimeout(); got != 5*time.Second {
		t.Fatalf("sub-second timeout should fall back to default, got %s", got)
	}
	cfg.StoreTimeout = 2 * time.Second
	if got := cfg.EffectiveStoreTimeout(); got != 2*time.Second {
		t.Fatalf("got %s, want 2s", got)
	}
}
