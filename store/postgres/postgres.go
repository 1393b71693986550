// Package postgres opens the game's durable state on PostgreSQL through the
// pgx driver.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"okinoko-button_game/store"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Dialect is store.Postgres with serialization failures recognised.
var Dialect = func() store.Dialect {
	d := store.Postgres
	d.Conflict = isSerializationFailure
	return d
}()

// SQLSTATEs after which the transaction was rolled back and can be retried.
const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}

// Open connects to dsn and applies migrations.
func Open(ctx context.Context, dsn string) (*store.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	// no server-side prepared statements, so PgBouncer in transaction mode works
	config.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	sqlDB := stdlib.OpenDB(*config)
	sqlDB.SetConnMaxIdleTime(4 * time.Minute)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := store.ApplyMigrations(ctx, sqlDB, Dialect, migrations); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store.New(sqlDB, Dialect), nil
}
