package chain

import (
	"context"
	"errors"

	"okinoko-button_game/sdk"
)

// ErrConflict is returned when the backend changed underneath a write
// transaction. The call had no effect and may be run again.
var ErrConflict = errors.New("chain: concurrent commit")

// Backend persists contract state and account balances.
type Backend interface {
	// Begin opens a transaction. A read-only transaction must only be
	// rolled back.
	Begin(ctx context.Context, readOnly bool) (Tx, error)
	Close() error
}

// Tx is one backend transaction. Reads see the transaction's own writes.
type Tx interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error

	Balance(ctx context.Context, addr sdk.Address, asset sdk.Asset) (uint64, error)
	SetBalance(ctx context.Context, addr sdk.Address, asset sdk.Asset, amount uint64) error

	Commit() error
	Rollback() error
}

type balanceKey struct {
	addr  sdk.Address
	asset sdk.Asset
}
