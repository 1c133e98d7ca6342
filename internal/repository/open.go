package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	// Database drivers. sqlite3 needs cgo; the pure-Go "sqlite" driver is
	// tried when it is unavailable.
	_ "github.com/glebarez/go-sqlite"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"

	"github.com/rr-brian/rts-ai/internal/capability"
	"github.com/rr-brian/rts-ai/internal/config"
	"github.com/rr-brian/rts-ai/internal/logger"
)

// Open connects to the configured database and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	name := cfg.ResolvedDriver()
	dsn := cfg.DSN()
	if name == "" || dsn == "" {
		return nil, Dialect{}, errors.New("no database configured")
	}
	dialect, err := DialectFor(name)
	if err != nil {
		return nil, Dialect{}, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions.Timeout
	}

	var db *sql.DB
	switch name {
	case DialectSQLite:
		db, err = openSQLite(ctx, dsn, timeout)
	case DialectPostgres:
		db, err = openAndPing(ctx, "postgres", dsn, timeout)
	case DialectSQLServer:
		db, err = openAndPing(ctx, "sqlserver", dsn, timeout)
	default:
		err = errors.Errorf("driver %q cannot be opened", name)
	}
	if err != nil {
		return nil, Dialect{}, err
	}

	if isMemoryDSN(dsn) {
		// Each connection to an in-memory SQLite database is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		maxOpen := cfg.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 10
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(min(2, maxOpen))
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(15 * time.Minute)
	}
	return db, dialect, nil
}

func openAndPing(ctx context.Context, driverName, dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driverName)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to ping %s database", driverName)
	}
	return db, nil
}

func openSQLite(ctx context.Context, dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := openAndPing(ctx, "sqlite3", dsn, timeout)
	if err == nil {
		return db, nil
	}
	logger.L.Info("sqlite3 driver unavailable, trying pure-Go driver", "error", err.Error())
	return openAndPing(ctx, "sqlite", dsn, timeout)
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// NewSQLiteStore opens and migrates a SQLite-backed store.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	ctx := context.Background()
	db, dialect, err := Open(ctx, config.DatabaseConfig{Driver: DialectSQLite, URL: dsn, Timeout: DefaultOptions.Timeout})
	if err != nil {
		return nil, err
	}
	store := NewSQLStore(db, dialect, DefaultOptions)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// ResolveSQL resolves the sql capability: a pinged connection to the
// configured database, or the no-op store when none is reachable.
func ResolveSQL(ctx context.Context, r *capability.Report, cfg config.DatabaseConfig) *SQLStore {
	return capability.Resolve(r, capability.SQL,
		func() (*SQLStore, error) {
			db, dialect, err := Open(ctx, cfg)
			if err != nil {
				return nil, err
			}
			logger.L.Info("database connected", "driver", dialect.Name, "target", cfg.Redacted())
			return NewSQLStore(db, dialect, Options{
				Timeout:       cfg.Timeout,
				MaxConcurrent: int64(cfg.MaxConcurrent),
			}), nil
		},
		NewNoopStore,
	)
}
