package chain

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okinoko-button_game/contract"
	"okinoko-button_game/sdk"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var genesis = time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC)

func allow(amount string) []sdk.Intent {
	return []sdk.Intent{{Type: "transfer.allow", Args: map[string]string{"limit": amount, "token": "hive"}}}
}

// newTestNode deploys a 300s / 0.010 / 5.000 game, funds the contract with
// one seed and gives every player 100 HIVE.
func newTestNode(t *testing.T) (*Node, *testClock) {
	t.Helper()
	clk := &testClock{t: genesis}
	n := New(NewMemory(), WithClock(clk.now))
	ctx := context.Background()

	_, err := n.Submit(ctx, Call{Method: "init", Sender: "owner", Payload: "owner|300|0.010|5.000"})
	require.NoError(t, err)
	for _, p := range []sdk.Address{"alice", "bob", "carol"} {
		_, err := n.Deposit(ctx, p, sdk.AssetHive, 100_000)
		require.NoError(t, err)
	}
	_, err = n.Deposit(ctx, "sponsor", sdk.AssetHive, 5_000)
	require.NoError(t, err)
	_, err = n.Submit(ctx, Call{Method: "fund", Sender: "sponsor", Payload: "5.000", Intents: allow("5.000")})
	require.NoError(t, err)
	return n, clk
}

func gameState(t *testing.T, n *Node) contract.GameStateView {
	t.Helper()
	out, err := n.Query(context.Background(), "getGameState", "")
	require.NoError(t, err)
	var v contract.GameStateView
	require.NoError(t, json.Unmarshal([]byte(*out), &v))
	return v
}

func balance(t *testing.T, n *Node, addr sdk.Address) uint64 {
	t.Helper()
	b, err := n.Balance(context.Background(), addr, sdk.AssetHive)
	require.NoError(t, err)
	return b
}

func press(t *testing.T, n *Node, who sdk.Address) *Receipt {
	t.Helper()
	rec, err := n.Submit(context.Background(), Call{Method: "pressButton", Sender: who, Payload: "false", Intents: allow("0.010")})
	require.NoError(t, err)
	return rec
}

func TestNode_PlayAndSettle(t *testing.T) {
	n, clk := newTestNode(t)
	ctx := context.Background()

	rec := press(t, n, "alice")
	require.Len(t, rec.Events, 1)
	assert.Equal(t, contract.EventButtonPressed, rec.Events[0].Type)
	assert.NotEmpty(t, rec.TxId)

	clk.advance(100 * time.Second)
	press(t, n, "bob")

	clk.advance(300 * time.Second)
	rec, err := n.Submit(ctx, Call{Method: "claimPrizeAndStartNewGame", Sender: "carol"})
	require.NoError(t, err)
	require.Len(t, rec.Events, 2)
	assert.Equal(t, contract.EventPrizeWon, rec.Events[0].Type)
	assert.Equal(t, "bob", rec.Events[0].Attributes["winner"])
	assert.Equal(t, "5020", rec.Events[0].Attributes["amount"])

	assert.Equal(t, uint64(100_000-10), balance(t, n, "alice"))
	assert.Equal(t, uint64(100_000-10+5_020), balance(t, n, "bob"))
	assert.Equal(t, uint64(100_000), balance(t, n, "carol"))
	assert.Zero(t, balance(t, n, n.ContractAddress()))

	st := gameState(t, n)
	assert.Equal(t, uint64(2), st.CurrentRound)
	assert.Zero(t, st.PrizePool, "nothing left to back a new seed")
	assert.Empty(t, st.LastPlayer)
	assert.Equal(t, uint64(300), st.TimeRemaining)
}

func TestNode_UnfundedRoundsKeepCycling(t *testing.T) {
	n, clk := newTestNode(t)
	ctx := context.Background()
	claim := func() {
		t.Helper()
		_, err := n.Submit(ctx, Call{Method: "claimPrizeAndStartNewGame", Sender: "keeper"})
		require.NoError(t, err)
	}

	_, err := n.Submit(ctx, Call{Method: "pressButton", Sender: "x", Payload: "true"})
	require.NoError(t, err)
	clk.advance(301 * time.Second)
	claim()
	assert.Equal(t, uint64(5_000), balance(t, n, "x"))

	_, err = n.Submit(ctx, Call{Method: "pressButton", Sender: "y", Payload: "true"})
	require.NoError(t, err)
	clk.advance(301 * time.Second)
	claim()

	st := gameState(t, n)
	assert.Equal(t, uint64(3), st.CurrentRound)
	assert.Zero(t, st.PrizePool)

	clk.advance(time.Hour)
	press(t, n, "alice")
	clk.advance(301 * time.Second)
	claim()
	assert.Equal(t, uint64(100_000), balance(t, n, "alice"))
	assert.Zero(t, balance(t, n, n.ContractAddress()))
}

func TestNode_RejectsOversizedSender(t *testing.T) {
	n, _ := newTestNode(t)
	ctx := context.Background()

	_, err := n.Submit(ctx, Call{Method: "pressButton", Sender: sdk.Address(strings.Repeat("z", 70_000)), Payload: "true"})
	assert.Equal(t, contract.CodeInvalidArgs, contract.CodeOf(err))

	st := gameState(t, n)
	assert.Empty(t, st.LastPlayer)
	press(t, n, "bob")
	assert.Equal(t, sdk.Address("bob"), gameState(t, n).LastPlayer)
}

// conflicting fails the first commits of a Memory backend with ErrConflict.
type conflicting struct {
	*Memory
	mu    sync.Mutex
	fails int
}

func (c *conflicting) Begin(ctx context.Context, readOnly bool) (Tx, error) {
	tx, err := c.Memory.Begin(ctx, readOnly)
	if err != nil {
		return nil, err
	}
	return &conflictingTx{Tx: tx, owner: c}, nil
}

type conflictingTx struct {
	Tx
	owner *conflicting
}

func (t *conflictingTx) Commit() error {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.owner.fails > 0 {
		t.owner.fails--
		_ = t.Tx.Rollback()
		return ErrConflict
	}
	return t.Tx.Commit()
}

func TestNode_RetriesCommitConflict(t *testing.T) {
	backend := &conflicting{Memory: NewMemory()}
	n := New(backend)
	ctx := context.Background()

	backend.fails = maxCommitAttempts - 1
	rec, err := n.Submit(ctx, Call{Method: "init", Sender: "owner", Payload: "owner|60|1|0"})
	require.NoError(t, err)
	require.Len(t, rec.Events, 1)
	ok, err := n.Deployed(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	backend.fails = maxCommitAttempts
	_, err = n.Submit(ctx, Call{Method: "setGameActive", Sender: "owner", Payload: "false"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, gameState(t, n).GameActive, "gave up without writing")
}

func TestNode_FailedCallIsAtomic(t *testing.T) {
	n, clk := newTestNode(t)
	ctx := context.Background()
	press(t, n, "alice")
	clk.advance(301 * time.Second)

	events, unsubscribe := n.Subscribe(8)
	defer unsubscribe()

	// payout succeeds inside the call, then the sponsorship draw fails
	_, err := n.Submit(ctx, Call{
		Method:  "claimPrizeAndStartNewGame",
		Sender:  "broke",
		Payload: "2.000",
		Intents: allow("2.000"),
	})
	require.ErrorIs(t, err, contract.ErrInsufficientFunds)

	st := gameState(t, n)
	assert.Equal(t, uint64(1), st.CurrentRound)
	assert.Equal(t, sdk.Address("alice"), st.LastPlayer)
	assert.Equal(t, uint64(5_010), st.PrizePool)
	assert.Equal(t, uint64(100_000-10), balance(t, n, "alice"))
	assert.Equal(t, uint64(5_010), balance(t, n, n.ContractAddress()))

	out, err := n.Query(ctx, "getWinnersCount", "")
	require.NoError(t, err)
	assert.Equal(t, "0", *out)

	select {
	case rec := <-events:
		t.Fatalf("rejected call published %v", rec.Events)
	default:
	}
}

func TestNode_RejectionCodes(t *testing.T) {
	n, clk := newTestNode(t)
	ctx := context.Background()

	_, err := n.Submit(ctx, Call{Method: "claimPrizeAndStartNewGame", Sender: "bob"})
	assert.Equal(t, contract.CodeTimerNotExpired, contract.CodeOf(err))

	_, err = n.Submit(ctx, Call{Method: "pressButton", Sender: "alice", Intents: allow("0.005")})
	assert.Equal(t, contract.CodeInvalidPayment, contract.CodeOf(err))

	_, err = n.Submit(ctx, Call{Method: "setGameActive", Sender: "alice", Payload: "false"})
	assert.Equal(t, contract.CodeUnauthorized, contract.CodeOf(err))

	clk.advance(time.Hour)
	_, err = n.Submit(ctx, Call{Method: "pressButton", Sender: "alice", Intents: allow("0.010")})
	assert.Equal(t, contract.CodeTimerExpired, contract.CodeOf(err))

	_, err = n.Submit(ctx, Call{Method: "selfDestruct", Sender: "alice"})
	assert.ErrorIs(t, err, contract.ErrUnknownMethod)
}

func TestNode_DrawNeedsAllowance(t *testing.T) {
	n, _ := newTestNode(t)
	tx, err := n.backend.Begin(context.Background(), false)
	require.NoError(t, err)
	defer tx.Rollback()

	h := newCallHost(context.Background(), tx, sdk.Env{Sender: sdk.Sender{Address: "alice"}}, n.self)
	assert.ErrorIs(t, h.HiveDraw(10, sdk.AssetHive), contract.ErrInvalidPayment)

	h.env.Intents = allow("0.010")
	require.NoError(t, h.HiveDraw(10, sdk.AssetHive))
	assert.ErrorIs(t, h.HiveDraw(1, sdk.AssetHive), contract.ErrInvalidPayment, "allowance is spent")
	assert.Equal(t, uint64(5_010), h.ContractBalance(sdk.AssetHive), "sees draws of the same call")
	assert.Zero(t, h.ContractBalance(sdk.AssetHbd))
}

func TestNode_ConcurrentPressesAreOrdered(t *testing.T) {
	n, _ := newTestNode(t)
	ctx := context.Background()
	const players = 20

	var wg sync.WaitGroup
	errs := make(chan error, players)
	for i := 0; i < players; i++ {
		who := sdk.Address("p" + string(rune('a'+i)))
		_, err := n.Deposit(ctx, who, sdk.AssetHive, 10)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := n.Submit(ctx, Call{Method: "pressButton", Sender: who, Intents: allow("0.010")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	st := gameState(t, n)
	assert.Equal(t, uint64(5_000+players*10), st.PrizePool)
	assert.Equal(t, uint64(5_000+players*10), balance(t, n, n.ContractAddress()))
}

func TestNode_QueryGuards(t *testing.T) {
	n, _ := newTestNode(t)
	_, err := n.Query(context.Background(), "pressButton", "")
	assert.ErrorIs(t, err, contract.ErrInvalidArgs)
	_, err = n.Query(context.Background(), "nope", "")
	assert.ErrorIs(t, err, contract.ErrUnknownMethod)

	out, err := n.Query(context.Background(), "isEligibleForFreePlay", "alice")
	require.NoError(t, err)
	assert.Equal(t, "true", *out)
}

func TestNode_Deployed(t *testing.T) {
	n := New(NewMemory())
	ok, err := n.Deployed(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = n.Submit(context.Background(), Call{Method: "init", Sender: "owner", Payload: "owner|60|1|0"})
	require.NoError(t, err)
	ok, err = n.Deployed(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNode_SubscribeAfterCommit(t *testing.T) {
	n, _ := newTestNode(t)
	events, unsubscribe := n.Subscribe(4)

	rec := press(t, n, "alice")
	select {
	case got := <-events:
		assert.Equal(t, rec.TxId, got.TxId)
	case <-time.After(time.Second):
		t.Fatal("no receipt published")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open)
}

func TestNode_BlockTimeIsMonotonic(t *testing.T) {
	clk := &testClock{t: genesis}
	n := New(NewMemory(), WithClock(clk.now))
	first := n.blockTime()
	clk.advance(-time.Hour)
	assert.Equal(t, first, n.blockTime())
	clk.advance(2 * time.Hour)
	assert.Equal(t, genesis.Add(time.Hour).Format(blockTimeLayout), n.blockTime())
}

func TestNode_FreePlayThroughHost(t *testing.T) {
	n, clk := newTestNode(t)
	ctx := context.Background()

	_, err := n.Submit(ctx, Call{Method: "pressButton", Sender: "dave", Payload: "true"})
	require.NoError(t, err)
	clk.advance(200 * time.Second)
	_, err = n.Submit(ctx, Call{Method: "pressButton", Sender: "dave", Payload: "true"})
	assert.Equal(t, contract.CodeInvalidPayment, contract.CodeOf(err))

	out, err := n.Query(ctx, "lastFreePlay", "dave")
	require.NoError(t, err)
	assert.Equal(t, "1756900800", *out)
}
