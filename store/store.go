// Package store implements chain.Backend on database/sql. The sqlite and
// postgres subpackages open a *sql.DB for their driver and apply migrations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"okinoko-button_game/chain"
	"okinoko-button_game/sdk"
)

// Dialect captures the few SQL differences between the supported drivers.
type Dialect struct {
	Name string
	// Dollar placeholders ($1, $2) instead of '?'.
	Dollar bool
	// ReadOnlyTx is set when the driver honours sql.TxOptions.ReadOnly.
	ReadOnlyTx bool
	// Isolation levels for read-only and write transactions. LevelDefault
	// leaves the driver's own level.
	ReadIsolation  sql.IsolationLevel
	WriteIsolation sql.IsolationLevel
	// AbortsTx is set when any failed statement aborts the surrounding
	// transaction, so no error can be skipped inside one.
	AbortsTx bool
	// Conflict recognises the driver's serialization failures. They are
	// reported as chain.ErrConflict.
	Conflict func(error) bool
}

var (
	// SQLite runs on a single connection, so transactions are serial anyway.
	SQLite = Dialect{Name: "sqlite"}
	// Postgres queries see one snapshot per transaction and writes from
	// separate processes serialize. The postgres package adds Conflict.
	Postgres = Dialect{
		Name:           "postgres",
		Dollar:         true,
		ReadOnlyTx:     true,
		ReadIsolation:  sql.LevelRepeatableRead,
		WriteIsolation: sql.LevelSerializable,
		AbortsTx:       true,
	}
)

func (d Dialect) txOptions(readOnly bool) *sql.TxOptions {
	level := d.WriteIsolation
	if readOnly {
		level = d.ReadIsolation
	}
	ro := readOnly && d.ReadOnlyTx
	if level == sql.LevelDefault && !ro {
		return nil
	}
	return &sql.TxOptions{Isolation: level, ReadOnly: ro}
}

// conflict wraps serialization failures in chain.ErrConflict.
func (d Dialect) conflict(err error) error {
	if err != nil && d.Conflict != nil && d.Conflict(err) {
		return fmt.Errorf("%w: %v", chain.ErrConflict, err)
	}
	return err
}

// tolerates reports whether a failed migration statement can be skipped
// without losing the rest of its transaction.
func (d Dialect) tolerates(err error) bool {
	return !d.AbortsTx && IsAlreadyExistsError(err)
}

// rebind rewrites '?' placeholders for dollar dialects.
func (d Dialect) rebind(query string) string {
	if !d.Dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// DB is a chain.Backend over a migrated database.
type DB struct {
	sqlDB   *sql.DB
	dialect Dialect
}

var _ chain.Backend = (*DB)(nil)

func New(sqlDB *sql.DB, dialect Dialect) *DB {
	return &DB{sqlDB: sqlDB, dialect: dialect}
}

// SQL exposes the underlying handle for health checks and tests.
func (d *DB) SQL() *sql.DB { return d.sqlDB }

func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	return d.sqlDB.Close()
}

func (d *DB) Begin(ctx context.Context, readOnly bool) (chain.Tx, error) {
	if d == nil || d.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	tx, err := d.sqlDB.BeginTx(ctx, d.dialect.txOptions(readOnly))
	if err != nil {
		return nil, fmt.Errorf("begin %s tx: %w", d.dialect.Name, err)
	}
	return &sqlTx{tx: tx, dialect: d.dialect, readOnly: readOnly}, nil
}

type sqlTx struct {
	tx       *sql.Tx
	dialect  Dialect
	readOnly bool
}

var errReadOnly = errors.New("store: write in read-only transaction")

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) error {
	if t.readOnly {
		return errReadOnly
	}
	_, err := t.tx.ExecContext(ctx, t.dialect.rebind(query), args...)
	return t.dialect.conflict(err)
}

func (t *sqlTx) Get(ctx context.Context, key string) (string, bool, error) {
	var value []byte
	err := t.tx.QueryRowContext(ctx, t.dialect.rebind("SELECT value FROM kv_state WHERE name = ?"), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %q: %w", key, t.dialect.conflict(err))
	}
	return string(value), true, nil
}

// Put stores value as raw bytes; contract state is a binary codec.
func (t *sqlTx) Put(ctx context.Context, key, value string) error {
	err := t.exec(ctx, `
INSERT INTO kv_state (name, value) VALUES (?, ?)
ON CONFLICT (name) DO UPDATE SET value = excluded.value`, key, []byte(value))
	if err != nil {
		return fmt.Errorf("put state %q: %w", key, err)
	}
	return nil
}

// Balances are stored as decimal text; uint64 does not fit a signed column.
func (t *sqlTx) Balance(ctx context.Context, addr sdk.Address, asset sdk.Asset) (uint64, error) {
	var raw string
	err := t.tx.QueryRowContext(ctx,
		t.dialect.rebind("SELECT amount FROM balances WHERE address = ? AND asset = ?"),
		addr.String(), asset.String(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance %s/%s: %w", addr, asset, t.dialect.conflict(err))
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %s/%s: %w", addr, asset, err)
	}
	return v, nil
}

func (t *sqlTx) SetBalance(ctx context.Context, addr sdk.Address, asset sdk.Asset, amount uint64) error {
	var err error
	if amount == 0 {
		err = t.exec(ctx, "DELETE FROM balances WHERE address = ? AND asset = ?", addr.String(), asset.String())
	} else {
		err = t.exec(ctx, `
INSERT INTO balances (address, asset, amount) VALUES (?, ?, ?)
ON CONFLICT (address, asset) DO UPDATE SET amount = excluded.amount`,
			addr.String(), asset.String(), strconv.FormatUint(amount, 10))
	}
	if err != nil {
		return fmt.Errorf("set balance %s/%s: %w", addr, asset, err)
	}
	return nil
}

func (t *sqlTx) Commit() error {
	if t.readOnly {
		_ = t.tx.Rollback()
		return errReadOnly
	}
	return t.dialect.conflict(t.tx.Commit())
}

func (t *sqlTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
