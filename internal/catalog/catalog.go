// Package catalog owns the two SQLite-backed databases that back Query's
// users, tokens, options, functions, assets, and plugins.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/queryrun/query/internal/catalog/migrations"
	"github.com/queryrun/query/internal/config"
)

// DB wraps a single SQLite file with the pragmas and scalar functions
// Query's catalog depends on.
type DB struct {
	*sql.DB
	cfg    *config.DatabaseConfig
	mu     sync.RWMutex
	closed bool
}

// Catalog bundles the two catalog databases: config.db (users, tokens,
// options) and function.db (functions, assets, plugins).
type Catalog struct {
	Config   *DB
	Function *DB
}

// Open creates the data directory if needed, opens both catalog databases,
// runs their migrations, and seeds the admin user and capability options.
func Open(ctx context.Context, cfg *config.DatabaseConfig, auth config.AuthConfig) (*Catalog, error) {
	RegisterScalarFunctions()
	SetTokenSecret(auth.TokenSecret)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	configDB, err := open(cfg.ConfigDBPath(), cfg)
	if err != nil {
		return nil, fmt.Errorf("opening config db: %w", err)
	}

	functionDB, err := open(cfg.FunctionDBPath(), cfg)
	if err != nil {
		configDB.Close()
		return nil, fmt.Errorf("opening function db: %w", err)
	}

	if err := migrations.RunConfig(ctx, configDB.DB); err != nil {
		configDB.Close()
		functionDB.Close()
		return nil, fmt.Errorf("running config migrations: %w", err)
	}
	if err := migrations.RunFunction(ctx, functionDB.DB); err != nil {
		configDB.Close()
		functionDB.Close()
		return nil, fmt.Errorf("running function migrations: %w", err)
	}

	c := &Catalog{Config: configDB, Function: functionDB}

	if err := c.seedAdmin(ctx, auth); err != nil {
		configDB.Close()
		functionDB.Close()
		return nil, fmt.Errorf("seeding admin: %w", err)
	}

	if _, err := os.OpenFile(cfg.PrimaryMarkerPath(), os.O_RDONLY|os.O_CREATE, 0o644); err != nil {
		// Non-fatal: absence of the marker just demotes this process to replica.
	}

	return c, nil
}

// IsPrimary reports whether the .primary marker file is present for this
// data directory; its absence means cache-write side-effects must be
// skipped (see §9 response-cache insertion condition).
func IsPrimary(cfg *config.DatabaseConfig) bool {
	_, err := os.Stat(cfg.PrimaryMarkerPath())
	return err == nil
}

func open(path string, cfg *config.DatabaseConfig) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{DB: sqlDB, cfg: cfg}

	if err := db.configure(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("configuring database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

func (db *DB) configure() error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", db.cfg.BusyTimeout.Milliseconds()),
	}

	if db.cfg.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	if db.cfg.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	if db.cfg.CacheSize != 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size = %d", db.cfg.CacheSize))
	}
	pragmas = append(pragmas, "PRAGMA temp_store = MEMORY")

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("executing %q: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	if db.cfg.WALMode {
		_, _ = db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}

	return db.DB.Close()
}

func (c *Catalog) Close() error {
	var firstErr error
	if err := c.Config.Close(); err != nil {
		firstErr = err
	}
	if err := c.Function.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Transaction runs fn inside a transaction on db, rolling back on error or
// panic and committing otherwise.
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Row is a loosely typed result row, as returned by ScanRows.
type Row map[string]any

// ScanRows materializes all remaining rows as a slice of Row, normalizing
// []byte columns (as modernc.org/sqlite returns TEXT) to string.
func ScanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("getting columns: %w", err)
	}

	var results []Row

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return results, nil
}

func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
