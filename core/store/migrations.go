package store

import (
	"context"
	"database/sql"
	"fmt"

	"tesoportamos/core/utils"
)

// Schema for the intake pipeline. The UNIQUE indexes are load-bearing:
// they make the duplicate-check-then-insert of concurrent batches atomic
// at the store, so the application never locks around a natural key.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS cliente (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nombre TEXT NOT NULL,
		email TEXT NOT NULL,
		telefono TEXT NOT NULL,
		fecha_creacion TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_cliente_email ON cliente(LOWER(email));`,
	`CREATE TABLE IF NOT EXISTS incidencia (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		id_cliente INTEGER NOT NULL,
		fecha TEXT NOT NULL,
		descripcion TEXT NOT NULL,
		estado TEXT NOT NULL DEFAULT 'ABIERTA',
		prioridad_ia TEXT NOT NULL DEFAULT 'NORMAL',
		puntuacion_ia REAL NOT NULL DEFAULT 0,
		fecha_creacion TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(id_cliente) REFERENCES cliente(id)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_incidencia_natural ON incidencia(id_cliente, fecha, descripcion);`,
	`CREATE INDEX IF NOT EXISTS idx_incidencia_cliente ON incidencia(id_cliente);`,
	`CREATE INDEX IF NOT EXISTS idx_incidencia_estado ON incidencia(estado);`,
	`CREATE INDEX IF NOT EXISTS idx_incidencia_prioridad ON incidencia(prioridad_ia);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS cliente (
		id BIGSERIAL PRIMARY KEY,
		nombre TEXT NOT NULL,
		email TEXT NOT NULL,
		telefono TEXT NOT NULL,
		fecha_creacion TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_cliente_email ON cliente(LOWER(email));`,
	`CREATE TABLE IF NOT EXISTS incidencia (
		id BIGSERIAL PRIMARY KEY,
		id_cliente BIGINT NOT NULL REFERENCES cliente(id),
		fecha TEXT NOT NULL,
		descripcion TEXT NOT NULL,
		estado TEXT NOT NULL DEFAULT 'ABIERTA',
		prioridad_ia TEXT NOT NULL DEFAULT 'NORMAL',
		puntuacion_ia DOUBLE PRECISION NOT NULL DEFAULT 0,
		fecha_creacion TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_incidencia_natural ON incidencia(id_cliente, fecha, descripcion);`,
	`CREATE INDEX IF NOT EXISTS idx_incidencia_cliente ON incidencia(id_cliente);`,
	`CREATE INDEX IF NOT EXISTS idx_incidencia_estado ON incidencia(estado);`,
	`CREATE INDEX IF NOT EXISTS idx_incidencia_prioridad ON incidencia(prioridad_ia);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);`,
}

func ApplyMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	isPG, err := isPostgresDB(ctx, db)
	if err != nil {
		return err
	}
	stmts := sqliteMigrations
	dialect := "sqlite"
	if isPG {
		stmts = postgresMigrations
		dialect = "postgres"
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migration #%d failed: %w", dialect, i+1, err)
		}
	}
	if logger != nil {
		logger.Printf("%s migrations applied", dialect)
	}
	return nil
}

func isPostgresDB(ctx context.Context, db *sql.DB) (bool, error) {
	var version string
	if err := db.QueryRowContext(ctx, `SELECT version()`).Scan(&version); err == nil {
		return true, nil
	}
	if err := db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&version); err != nil {
		return false, fmt.Errorf("detect database dialect: %w", err)
	}
	return false, nil
}
