package chain

import (
	"context"
	"fmt"
	"math"

	"okinoko-button_game/contract"
	"okinoko-button_game/sdk"
)

// callHost is the contract.Chain handed to one entry point. Writes and fund
// movements stay in memory until flush; reads fall through to the backend
// transaction. Backend failures cannot surface through the Chain interface,
// so the first one is kept in err and fails the call afterwards.
type callHost struct {
	ctx      context.Context
	tx       Tx
	env      sdk.Env
	contract sdk.Address

	writes   map[string]string
	order    []string
	balances map[balanceKey]uint64
	drawn    map[sdk.Asset]uint64
	logs     []string
	err      error
}

var _ contract.Chain = (*callHost)(nil)

func newCallHost(ctx context.Context, tx Tx, env sdk.Env, self sdk.Address) *callHost {
	return &callHost{
		ctx:      ctx,
		tx:       tx,
		env:      env,
		contract: self,
		writes:   map[string]string{},
		balances: map[balanceKey]uint64{},
		drawn:    map[sdk.Asset]uint64{},
	}
}

func (h *callHost) fail(err error) {
	if h.err == nil {
		h.err = err
	}
}

func (h *callHost) StateGetObject(key string) *string {
	if v, ok := h.writes[key]; ok {
		return &v
	}
	v, ok, err := h.tx.Get(h.ctx, key)
	if err != nil {
		h.fail(fmt.Errorf("get %s: %w", key, err))
		return nil
	}
	if !ok {
		return nil
	}
	return &v
}

func (h *callHost) StateSetObject(key, value string) {
	if _, ok := h.writes[key]; !ok {
		h.order = append(h.order, key)
	}
	h.writes[key] = value
}

func (h *callHost) Log(msg string) { h.logs = append(h.logs, msg) }

func (h *callHost) GetEnv() sdk.Env { return h.env }

func (h *callHost) balance(addr sdk.Address, asset sdk.Asset) (uint64, error) {
	k := balanceKey{addr, asset}
	if v, ok := h.balances[k]; ok {
		return v, nil
	}
	v, err := h.tx.Balance(h.ctx, addr, asset)
	if err != nil {
		h.fail(fmt.Errorf("balance %s: %w", addr, err))
		return 0, err
	}
	return v, nil
}

// allowance sums the transfer.allow limits the sender attached for asset.
func (h *callHost) allowance(asset sdk.Asset) uint64 {
	var total uint64
	for _, in := range h.env.Intents {
		if in.Type != "transfer.allow" || sdk.Asset(in.Args["token"]) != asset {
			continue
		}
		limit, err := sdk.ParseAmount(in.Args["limit"])
		if err != nil {
			continue
		}
		if total+limit < total {
			return math.MaxUint64
		}
		total += limit
	}
	return total
}

func (h *callHost) move(from, to sdk.Address, amount uint64, asset sdk.Asset) error {
	src, err := h.balance(from, asset)
	if err != nil {
		return err
	}
	if src < amount {
		return fmt.Errorf("%w: %s holds %s %s", contract.ErrInsufficientFunds, from, sdk.FormatAmount(src), asset)
	}
	dst, err := h.balance(to, asset)
	if err != nil {
		return err
	}
	if dst+amount < dst {
		return contract.ErrOverflow
	}
	h.balances[balanceKey{from, asset}] = src - amount
	h.balances[balanceKey{to, asset}] = dst + amount
	return nil
}

// HiveDraw enforces the attached allowance as a cumulative cap for the call.
func (h *callHost) HiveDraw(amount uint64, asset sdk.Asset) error {
	if amount == 0 {
		return nil
	}
	spent := h.drawn[asset] + amount
	if spent < amount || spent > h.allowance(asset) {
		return fmt.Errorf("%w: draw of %s %s exceeds allowance", contract.ErrInvalidPayment, sdk.FormatAmount(amount), asset)
	}
	if err := h.move(h.env.Sender.Address, h.contract, amount, asset); err != nil {
		return err
	}
	h.drawn[asset] = spent
	return nil
}

func (h *callHost) HiveTransfer(to sdk.Address, amount uint64, asset sdk.Asset) error {
	if amount == 0 {
		return nil
	}
	return h.move(h.contract, to, amount, asset)
}

// ContractBalance reports 0 on a backend failure; the failure itself is
// kept in err and fails the call.
func (h *callHost) ContractBalance(asset sdk.Asset) uint64 {
	v, err := h.balance(h.contract, asset)
	if err != nil {
		return 0
	}
	return v
}

// flush writes the buffered effects into the transaction.
func (h *callHost) flush() error {
	for _, key := range h.order {
		if err := h.tx.Put(h.ctx, key, h.writes[key]); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	for k, v := range h.balances {
		if err := h.tx.SetBalance(h.ctx, k.addr, k.asset, v); err != nil {
			return fmt.Errorf("set balance %s/%s: %w", k.addr, k.asset, err)
		}
	}
	return nil
}
