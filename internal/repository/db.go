package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// Open selects the backend from the DSN: postgres:// / postgresql:// opens a
// pgx pool wrapped as *sql.DB, anything else is treated as a SQLite file
// path. Both backends accept the same $N placeholders.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		logger.Info("connecting to database", "backend", "postgres")
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to parse database dsn", "error", err)
			return nil, err
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		if cfg.MinConns > 0 {
			pc.MinConns = cfg.MinConns
		}
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		if cfg.MaxConnIdleTime > 0 {
			pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "chirashi-extraction"

		dialCtx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		return stdlib.OpenDBFromPool(pool), nil
	}

	logger.Info("connecting to database", "backend", "sqlite", "path", cfg.DSN)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, err
	}
	// modernc sqlite serializes writes; a single connection avoids lock churn.
	db.SetMaxOpenConns(1)
	return db, nil
}

// HealthCheck pings the database to catch DSN issues early.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS extraction_runs (
	id            TEXT PRIMARY KEY,
	source_path   TEXT NOT NULL,
	format        TEXT NOT NULL,
	status        TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ,
	record_count  INTEGER NOT NULL DEFAULT 0,
	error_message TEXT
);

CREATE TABLE IF NOT EXISTS extraction_records (
	id               TEXT PRIMARY KEY,
	run_id           TEXT NOT NULL REFERENCES extraction_runs(id),
	product          TEXT NOT NULL,
	price_incl_tax   INTEGER NOT NULL,
	price_excl_tax   INTEGER,
	unit             TEXT,
	category         TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	spatial_distance DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extraction_records_run ON extraction_records(run_id);
`

// Migrate creates the schema if it does not exist yet. The DDL sticks to the
// type names both backends understand.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("migration statement failed", "error", err)
			return err
		}
	}
	logger.Info("database schema ready")
	return nil
}

// Close closes the database connection gracefully.
func Close(db *sql.DB, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
		return
	}
	logger.Info("database connection closed")
}
