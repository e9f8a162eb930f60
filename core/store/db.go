package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"tesoportamos/config"
	"tesoportamos/core/utils"
)

// NewDB opens the configured database. The default driver is the embedded
// sqlite; postgres is selected with db_driver=postgres and a db_url.
func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*sql.DB, error) {
	driver := "sqlite"
	if cfg != nil {
		driver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	}
	var db *sql.DB
	var err error
	switch driver {
	case "", "sqlite", "sqlite3":
		path := "data/tesoportamos.db"
		if cfg != nil && strings.TrimSpace(cfg.DBPath) != "" {
			path = cfg.DBPath
		}
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create db dir %s: %w", dir, mkErr)
			}
		}
		dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
		db, err = sql.Open("sqlite", dsn)
		if err == nil {
			// modernc sqlite serializes writes; a single connection avoids
			// SQLITE_BUSY under concurrent batches.
			db.SetMaxOpenConns(1)
		}
	case "postgres", "pgx":
		if cfg == nil || strings.TrimSpace(cfg.DBURL) == "" {
			return nil, errors.New("db_url is required for the postgres driver")
		}
		db, err = sql.Open("pgx", cfg.DBURL)
		if err == nil {
			pgDialect = true
		}
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	if logger != nil {
		logger.Printf("database ready (driver=%s)", driver)
	}
	return db, nil
}

var pgDialect bool

// rebind rewrites ?-placeholders to $n for the postgres driver. Queries in
// this package are written sqlite-style; pgx does not rewrite placeholders.
func rebind(query string) string {
	if !pgDialect {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsUniqueViolation reports whether err comes from a UNIQUE constraint on
// either supported driver. Duplicate checks race across concurrent batches;
// the constraint is the arbiter and callers turn this into a skip.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// IsUnavailable reports whether err should surface as a store-unavailable
// failure: timeouts and connection-level errors, never row-level outcomes.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions.
		return strings.HasPrefix(pgErr.Code, "08")
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "connection refused")
}
