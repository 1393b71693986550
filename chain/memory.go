package chain

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"

	"okinoko-button_game/sdk"
)

// memState is immutable once published.
type memState struct {
	kv       map[string]string
	balances map[balanceKey]uint64
}

// Memory is a volatile Backend. Readers load the current snapshot pointer
// and never block writers; a commit publishes a fresh copy.
type Memory struct {
	mu  sync.Mutex // serialises commits
	cur atomic.Pointer[memState]
}

func NewMemory() *Memory {
	m := &Memory{}
	m.cur.Store(&memState{
		kv:       map[string]string{},
		balances: map[balanceKey]uint64{},
	})
	return m
}

func (m *Memory) Begin(ctx context.Context, readOnly bool) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{
		m:        m,
		base:     m.cur.Load(),
		readOnly: readOnly,
		kv:       map[string]string{},
		balances: map[balanceKey]uint64{},
	}, nil
}

func (m *Memory) Close() error { return nil }

var errTxDone = errors.New("chain: transaction already finished")

type memTx struct {
	m        *Memory
	base     *memState
	readOnly bool
	done     bool
	kv       map[string]string
	balances map[balanceKey]uint64
}

func (t *memTx) writable() error {
	if t.done {
		return errTxDone
	}
	if t.readOnly {
		return errors.New("chain: write in read-only transaction")
	}
	return nil
}

func (t *memTx) Get(_ context.Context, key string) (string, bool, error) {
	if t.done {
		return "", false, errTxDone
	}
	if v, ok := t.kv[key]; ok {
		return v, true, nil
	}
	v, ok := t.base.kv[key]
	return v, ok, nil
}

func (t *memTx) Put(_ context.Context, key, value string) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.kv[key] = value
	return nil
}

func (t *memTx) Balance(_ context.Context, addr sdk.Address, asset sdk.Asset) (uint64, error) {
	if t.done {
		return 0, errTxDone
	}
	k := balanceKey{addr, asset}
	if v, ok := t.balances[k]; ok {
		return v, nil
	}
	return t.base.balances[k], nil
}

func (t *memTx) SetBalance(_ context.Context, addr sdk.Address, asset sdk.Asset, amount uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.balances[balanceKey{addr, asset}] = amount
	return nil
}

func (t *memTx) Commit() error {
	if err := t.writable(); err != nil {
		return err
	}
	t.done = true
	if len(t.kv) == 0 && len(t.balances) == 0 {
		return nil
	}

	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.m.cur.Load() != t.base {
		return ErrConflict
	}
	next := &memState{
		kv:       maps.Clone(t.base.kv),
		balances: maps.Clone(t.base.balances),
	}
	maps.Copy(next.kv, t.kv)
	for k, v := range t.balances {
		if v == 0 {
			delete(next.balances, k)
			continue
		}
		next.balances[k] = v
	}
	t.m.cur.Store(next)
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}
