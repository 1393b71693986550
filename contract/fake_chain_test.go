package contract

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"okinoko-button_game/sdk"
)

// FakeChain is an in-memory host. Unlike a real host it does not revert
// state on error, so tests that check atomicity snapshot it themselves.
type FakeChain struct {
	state     map[string]string
	env       sdk.Env
	logs      []string
	balances  map[sdk.Address]uint64
	contract  sdk.Address
	failDraws bool
}

const contractAddr sdk.Address = "contract:button"

func NewFakeChain(sender string, at time.Time) *FakeChain {
	f := &FakeChain{
		state:    make(map[string]string),
		balances: make(map[sdk.Address]uint64),
		contract: contractAddr,
	}
	f.env.Sender.Address = sdk.Address(sender)
	f.env.Caller = sdk.Address(sender)
	f.env.TxId = "tx0"
	f.SetTime(at)
	return f
}

func (f *FakeChain) StateSetObject(key, value string) { f.state[key] = value }

func (f *FakeChain) StateGetObject(key string) *string {
	val, ok := f.state[key]
	if !ok {
		return nil
	}
	return &val
}


func (f *FakeChain) Log(msg string) { f.logs = append(f.logs, msg) }

func (f *FakeChain) GetEnv() sdk.Env { return f.env }

func (f *FakeChain) HiveDraw(amount uint64, asset sdk.Asset) error {
	from := f.env.Sender.Address
	if f.failDraws || f.balances[from] < amount {
		return ErrInsufficientFunds
	}
	f.balances[from] -= amount
	f.balances[f.contract] += amount
	return nil
}

func (f *FakeChain) HiveTransfer(to sdk.Address, amount uint64, asset sdk.Asset) error {
	if f.balances[f.contract] < amount {
		return ErrInsufficientFunds
	}
	f.balances[f.contract] -= amount
	f.balances[to] += amount
	return nil
}

func (f *FakeChain) ContractBalance(asset sdk.Asset) uint64 { return f.balances[f.contract] }

// ---------- test helpers ----------

var t0 = time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC)

func (f *FakeChain) SetTime(at time.Time) {
	f.env.BlockTimestamp = at.UTC().Format("2006-01-02T15:04:05")
}

func (f *FakeChain) As(sender string) *FakeChain {
	f.env.Sender.Address = sdk.Address(sender)
	f.env.Caller = sdk.Address(sender)
	f.env.Intents = nil
	return f
}

// Paying attaches a transfer.allow intent for amount (fixed-point string).
func (f *FakeChain) Paying(amount string) *FakeChain {
	f.env.Intents = []sdk.Intent{{
		Type: "transfer.allow",
		Args: map[string]string{"limit": amount, "token": "hive"},
	}}
	return f
}

func (f *FakeChain) snapshot() map[string]string {
	out := make(map[string]string, len(f.state))
	for k, v := range f.state {
		out[k] = v
	}
	return out
}

func (f *FakeChain) events(t *testing.T) []Event {
	t.Helper()
	out := make([]Event, 0, len(f.logs))
	for _, l := range f.logs {
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(l), &ev))
		out = append(out, ev)
	}
	return out
}

func (f *FakeChain) lastEvent(t *testing.T) Event {
	t.Helper()
	evs := f.events(t)
	require.NotEmpty(t, evs)
	return evs[len(evs)-1]
}

// deploy runs init with the given duration (seconds), fee and seed.
func deploy(t *testing.T, f *FakeChain, duration uint64, fee, seed string) {
	t.Helper()
	payload := fmt.Sprintf("owner|%d|%s|%s", duration, fee, seed)
	_, err := Init(f.As("owner"), payload)
	require.NoError(t, err)
}

func mustState(t *testing.T, f *FakeChain) *GameState {
	t.Helper()
	st, err := loadState(f)
	require.NoError(t, err)
	return st
}

func unix(at time.Time) uint64 { return uint64(at.Unix()) }

func sdkAddr(s string) sdk.Address { return sdk.Address(s) }
