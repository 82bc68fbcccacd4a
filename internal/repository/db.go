package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
)

type Config struct {
	Driver          string
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// DB bundles the ent SQL driver with the pgx pool backing it, if any.
type DB struct {
	drv  *entsql.Driver
	pool *pgxpool.Pool
}

// Dialect returns the ent dialect name used to build queries.
func (db *DB) Dialect() string { return db.drv.Dialect() }

// Open connects to the ledger database and creates the schema if needed.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("ledger.db.connecting", "driver", cfg.Driver)

	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case common.DriverSQLite, "":
		db, err = openSQLite(cfg)
	case common.DriverPostgres:
		db, err = openPostgres(ctx, cfg)
	default:
		err = fmt.Errorf("%w: unsupported ledger driver %q", common.ErrInvalidInput, cfg.Driver)
	}
	if err != nil {
		logger.Error("ledger.db.connect_failed", "driver", cfg.Driver, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}

	if err := migrate(ctx, db.drv); err != nil {
		Close(db, logger)
		logger.Error("ledger.db.migrate_failed", "error", err)
		return nil, fmt.Errorf("%w: migrate: %w", common.ErrDatabase, err)
	}

	logger.Info("ledger.db.connected", "dialect", db.Dialect())
	return db, nil
}

func openSQLite(cfg Config) (*DB, error) {
	sdb, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// single connection; concurrent workers would otherwise hit SQLITE_BUSY
	sdb.SetMaxOpenConns(1)
	return &DB{drv: entsql.OpenDB(dialect.SQLite, sdb)}, nil
}

func openPostgres(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "pdf-field-extractor"

	dialCtx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, err
	}

	// Wrap pool as *sql.DB for ent
	sdb := stdlib.OpenDBFromPool(pool)
	return &DB{drv: entsql.OpenDB(dialect.Postgres, sdb), pool: pool}, nil
}

// Close closes the database connections gracefully
func Close(db *DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.drv.Close(); err != nil {
		logger.Error("ledger.db.close_failed", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Debug("ledger.db.closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.drv.DB().PingContext(ctx); err != nil {
		logger.Error("ledger.db.ping_failed", "error", err)
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	logger.Debug("ledger.db.ping_ok")
	return nil
}
