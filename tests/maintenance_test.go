package tests

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"tesoportamos/config"
	"tesoportamos/core/maintenance"
	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

func setupAudit(t *testing.T) (*sql.DB, store.AuditStore) {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "audit.db"),
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, store.NewAuditStore(db)
}

func TestAuditLogAndList(t *testing.T) {
	_, audits := setupAudit(t)
	ctx := context.Background()

	if err := audits.Log(ctx, "api", "clientes.create", "id=1"); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := audits.Log(ctx, "api", "etl.upload", "batch=abc"); err != nil {
		t.Fatalf("log: %v", err)
	}

	entries, err := audits.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "etl.upload" {
		t.Fatalf("expected newest first, got %s", entries[0].Action)
	}
}

func TestRetentionPrunesOldEntries(t *testing.T) {
	db, audits := setupAudit(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, 0, -120)
	if _, err := db.ExecContext(ctx,
		`INSERT INTO audit_log(username, action, details, created_at) VALUES(?,?,?,?)`,
		"api", "etl.upload", "antiguo", old); err != nil {
		t.Fatalf("seed old entry: %v", err)
	}
	if err := audits.Log(ctx, "api", "etl.upload", "reciente"); err != nil {
		t.Fatalf("log: %v", err)
	}

	sched := maintenance.NewScheduler(config.MaintenanceConfig{
		CronSpec:           "0 3 * * *",
		AuditRetentionDays: 90,
	}, audits, utils.NewLogger())
	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}

	entries, err := audits.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after pruning, got %d", len(entries))
	}
	if entries[0].Details != "reciente" {
		t.Fatalf("wrong entry survived: %+v", entries[0])
	}
}

func TestRetentionDisabledByZeroDays(t *testing.T) {
	db, audits := setupAudit(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, 0, -400)
	if _, err := db.ExecContext(ctx,
		`INSERT INTO audit_log(username, action, details, created_at) VALUES(?,?,?,?)`,
		"api", "etl.upload", "antiguo", old); err != nil {
		t.Fatalf("seed old entry: %v", err)
	}

	sched := maintenance.NewScheduler(config.MaintenanceConfig{}, audits, utils.NewLogger())
	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}

	entries, err := audits.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("retention with zero days must not prune, got %d entries", len(entries))
	}
}
