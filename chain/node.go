// Package chain hosts the button game contract. A Node totally orders every
// mutating call, runs it against a buffered view of the backend and commits
// its effects only when the entry point succeeds.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"okinoko-button_game/contract"
	"okinoko-button_game/sdk"
)

// DefaultContractAddress holds the game's funds unless overridden.
const DefaultContractAddress sdk.Address = "contract:button"

const blockTimeLayout = "2006-01-02T15:04:05"

// Call is one signed invocation of a contract entry point.
type Call struct {
	Method  string       `json:"method"`
	Sender  sdk.Address  `json:"sender"`
	Payload string       `json:"payload"`
	Intents []sdk.Intent `json:"intents,omitempty"`
}

// Receipt describes a committed call.
type Receipt struct {
	TxId      string           `json:"txId"`
	Timestamp string           `json:"timestamp"`
	Result    *string          `json:"result,omitempty"`
	Events    []contract.Event `json:"events"`
}

// Option configures a Node.
type Option func(*Node)

// WithClock replaces the wall clock used for block timestamps.
func WithClock(now func() time.Time) Option { return func(n *Node) { n.clock = now } }

// WithContractAddress sets the account that holds the contract's funds.
func WithContractAddress(addr sdk.Address) Option { return func(n *Node) { n.self = addr } }

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option { return func(n *Node) { n.tracer = t } }

type Node struct {
	backend Backend
	self    sdk.Address
	clock   func() time.Time
	tracer  trace.Tracer

	mu sync.Mutex // orders mutating calls

	clockMu sync.Mutex
	lastTs  int64

	subs *broadcaster
}

func New(backend Backend, opts ...Option) *Node {
	n := &Node{
		backend: backend,
		self:    DefaultContractAddress,
		clock:   time.Now,
		tracer:  otel.Tracer("okinoko-button_game/chain"),
		subs:    newBroadcaster(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ContractAddress is the account holding pools and jackpot.
func (n *Node) ContractAddress() sdk.Address { return n.self }

// blockTime never goes backwards, even if the wall clock does.
func (n *Node) blockTime() string {
	n.clockMu.Lock()
	defer n.clockMu.Unlock()
	ts := n.clock().UTC().Unix()
	if ts < n.lastTs {
		ts = n.lastTs
	}
	n.lastTs = ts
	return time.Unix(ts, 0).UTC().Format(blockTimeLayout)
}

// maxCommitAttempts bounds how often Submit reruns a call that lost a
// commit race against another process sharing the backend.
const maxCommitAttempts = 3

// Submit runs a mutating entry point. On any error nothing is written and
// no events are published.
func (n *Node) Submit(ctx context.Context, call Call) (*Receipt, error) {
	m, ok := contract.Lookup(call.Method)
	if !ok {
		return nil, fmt.Errorf("%w: %q", contract.ErrUnknownMethod, call.Method)
	}

	txID := uuid.New().String()
	ctx, span := n.tracer.Start(ctx, "contract.call "+call.Method, trace.WithAttributes(
		attribute.String("contract.method", call.Method),
		attribute.String("contract.sender", call.Sender.String()),
		attribute.String("contract.tx_id", txID),
	))
	defer span.End()

	var rec *Receipt
	var err error
	for attempt := 1; ; attempt++ {
		rec, err = n.submit(ctx, m, call, txID)
		if !errors.Is(err, ErrConflict) || attempt == maxCommitAttempts {
			break
		}
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code := contract.CodeOf(err); code != "" {
			span.SetAttributes(attribute.String("contract.error_code", string(code)))
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("contract.events", len(rec.Events)))
	return rec, nil
}

func (n *Node) submit(ctx context.Context, m contract.Method, call Call, txID string) (*Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	tx, err := n.backend.Begin(ctx, m.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	env := sdk.Env{
		Sender:         sdk.Sender{Address: call.Sender},
		Caller:         call.Sender,
		TxId:           txID,
		BlockTimestamp: n.blockTime(),
		Intents:        call.Intents,
	}
	host := newCallHost(ctx, tx, env, n.self)
	result, err := m.Handler(host, call.Payload)
	if host.err != nil {
		// a backend read failed; whatever the handler concluded is unreliable
		return nil, host.err
	}
	if err != nil {
		return nil, err
	}

	events, err := decodeEvents(host.logs)
	if err != nil {
		return nil, err
	}
	if !m.ReadOnly {
		if err := host.flush(); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		committed = true
	}
	rec := &Receipt{TxId: txID, Timestamp: env.BlockTimestamp, Result: result, Events: events}
	if len(events) > 0 {
		log.Printf("chain %s %s by %s: %d event(s)", txID, call.Method, call.Sender, len(events))
		// still under mu, so subscribers see commit order
		n.subs.publish(rec)
	}
	return rec, nil
}

// Query runs a read-only entry point against a snapshot without taking the
// write lock.
func (n *Node) Query(ctx context.Context, method, payload string) (*string, error) {
	m, ok := contract.Lookup(method)
	if !ok {
		return nil, fmt.Errorf("%w: %q", contract.ErrUnknownMethod, method)
	}
	if !m.ReadOnly {
		return nil, fmt.Errorf("%w: %s mutates state", contract.ErrInvalidArgs, method)
	}

	ctx, span := n.tracer.Start(ctx, "contract.query "+method)
	defer span.End()

	tx, err := n.backend.Begin(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	env := sdk.Env{BlockTimestamp: n.blockTime()}
	host := newCallHost(ctx, tx, env, n.self)
	out, err := m.Handler(host, payload)
	if host.err != nil {
		err = host.err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

// Deployed reports whether init has run.
func (n *Node) Deployed(ctx context.Context) (bool, error) {
	_, err := n.Query(ctx, "getConfig", "")
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, contract.ErrNotDeployed):
		return false, nil
	}
	return false, err
}

// Balance returns an account's holdings of asset.
func (n *Node) Balance(ctx context.Context, addr sdk.Address, asset sdk.Asset) (uint64, error) {
	tx, err := n.backend.Begin(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return tx.Balance(ctx, addr, asset)
}

// Deposit credits an account out of thin air. Only the dev faucet and
// tests should call it.
func (n *Node) Deposit(ctx context.Context, addr sdk.Address, asset sdk.Asset, amount uint64) (uint64, error) {
	if addr == "" || amount == 0 {
		return 0, fmt.Errorf("%w: address and positive amount required", contract.ErrInvalidArgs)
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	tx, err := n.backend.Begin(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	cur, err := tx.Balance(ctx, addr, asset)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if cur+amount < cur {
		_ = tx.Rollback()
		return 0, contract.ErrOverflow
	}
	if err := tx.SetBalance(ctx, addr, asset, cur+amount); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return cur + amount, nil
}

// Subscribe returns a channel of committed receipts that carried events.
// A slow subscriber misses receipts rather than stalling the node.
// The returned func unsubscribes and closes the channel.
func (n *Node) Subscribe(buffer int) (<-chan *Receipt, func()) {
	return n.subs.add(buffer)
}

func decodeEvents(logs []string) ([]contract.Event, error) {
	events := make([]contract.Event, 0, len(logs))
	for _, l := range logs {
		var ev contract.Event
		if err := json.Unmarshal([]byte(l), &ev); err != nil {
			return nil, fmt.Errorf("decode event %q: %w", l, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
