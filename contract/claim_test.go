package contract

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioA_SinglePressWins(t *testing.T) {
	f := NewFakeChain("owner", t0)
	f.balances["x"] = 10_000
	_, err := Init(f, "owner|300|1|0")
	require.NoError(t, err)

	_, err = PressButton(f.As("x").Paying("1.000"), "")
	require.NoError(t, err)
	st := mustState(t, f)
	assert.Equal(t, uint64(1_000), st.PrizePool)
	assert.Equal(t, unix(t0)+300, st.TimerEnd)
	assert.Equal(t, sdkAddr("x"), st.LastPlayer)

	f.SetTime(t0.Add(301 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("anyone"), "")
	require.NoError(t, err)

	st = mustState(t, f)
	assert.Equal(t, uint64(2), st.CurrentRound)
	assert.Equal(t, uint64(0), st.PrizePool)
	assert.Equal(t, unix(t0)+601, st.TimerEnd)
	assert.Empty(t, st.LastPlayer)
	assert.Equal(t, uint64(10_000), f.balances["x"])
	assert.Zero(t, f.balances["anyone"], "caller gets nothing for settling")

	evs := f.events(t)
	require.GreaterOrEqual(t, len(evs), 2)
	won, started := evs[len(evs)-2], evs[len(evs)-1]
	assert.Equal(t, EventPrizeWon, won.Type)
	assert.Equal(t, map[string]string{"winner": "x", "amount": "1000", "round": "1"}, won.Attributes)
	assert.Equal(t, EventNewGameStarted, started.Type)
	assert.Equal(t, map[string]string{"round": "2", "initialPrize": "0"}, started.Attributes)
}

func TestScenarioB_FreePlayTooSoon(t *testing.T) {
	f := newLongGame(t)
	_, err := PressButton(f.As("alice"), "true")
	require.NoError(t, err)

	f.SetTime(t0.Add(time.Hour))
	before := f.snapshot()
	_, err = PressButton(f.As("alice"), "true")
	assert.ErrorIs(t, err, ErrInvalidPayment)
	assert.Equal(t, before, f.state)
}

func TestScenarioC_ClaimBeforeExpiry(t *testing.T) {
	f := newGame(t)
	_, err := PressButton(f.As("alice").Paying("0.010"), "")
	require.NoError(t, err)

	f.SetTime(t0.Add(299 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	assert.ErrorIs(t, err, ErrTimerNotExpired)

	st := mustState(t, f)
	assert.Equal(t, uint64(1), st.CurrentRound)
	assert.Equal(t, uint64(5_010), st.PrizePool)
}

func TestScenarioD_NothingToClaim(t *testing.T) {
	f := NewFakeChain("owner", t0)
	_, err := Init(f, "owner|300|1|0")
	require.NoError(t, err)

	f.SetTime(t0.Add(time.Hour))
	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	assert.ErrorIs(t, err, ErrNothingToClaim)
}

func TestScenarioE_Underpay(t *testing.T) {
	f := newGame(t)
	_, err := PressButton(f.As("alice").Paying("0.005"), "false")
	assert.ErrorIs(t, err, ErrInvalidPayment)
	assert.Equal(t, uint64(5_000), mustState(t, f).PrizePool)
}

func TestClaim_AtExactTimerEnd(t *testing.T) {
	f := newGame(t)
	_, err := PressButton(f.As("alice").Paying("0.010"), "")
	require.NoError(t, err)

	f.SetTime(t0.Add(300 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000-10+5_010), f.balances["alice"])
}

func TestClaim_DoubleClaim(t *testing.T) {
	f := NewFakeChain("owner", t0)
	f.balances["alice"] = 100
	_, err := Init(f, "owner|300|0.010|0")
	require.NoError(t, err)
	_, err = PressButton(f.As("alice").Paying("0.010"), "")
	require.NoError(t, err)

	f.SetTime(t0.Add(400 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	require.NoError(t, err)
	_, err = ClaimPrizeAndStartNewGame(f.As("carol"), "")
	assert.ErrorIs(t, err, ErrNothingToClaim)
	assert.Equal(t, uint64(2), mustState(t, f).CurrentRound)
}

func TestClaim_RoundCountsClaims(t *testing.T) {
	f := newGame(t)
	ts := t0
	for i := 0; i < 5; i++ {
		f.SetTime(ts)
		_, err := PressButton(f.As("alice").Paying("0.010"), "")
		require.NoError(t, err)
		ts = ts.Add(301 * time.Second)
		f.SetTime(ts)
		f.balances[contractAddr] += 5_000
		_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
		require.NoError(t, err)
	}
	st := mustState(t, f)
	assert.Equal(t, uint64(6), st.CurrentRound)
	assert.Equal(t, uint32(5), st.WinnersCount)
}

func TestClaim_UnpressedSeedRollsIntoJackpot(t *testing.T) {
	f := newGame(t)
	f.SetTime(t0.Add(301 * time.Second))
	_, err := ClaimPrizeAndStartNewGame(f.As("bob"), "")
	require.NoError(t, err)

	st := mustState(t, f)
	assert.Equal(t, uint64(2), st.CurrentRound)
	assert.Zero(t, st.PrizePool, "the only seed money now backs the jackpot")
	assert.Equal(t, uint64(5_000), st.ProgressiveJackpot)
	assert.Zero(t, st.WinnersCount, "rollover does not record a winner")

	var types []string
	for _, ev := range f.events(t) {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{EventJackpotRolledOver, EventNewGameStarted}, types)
}

func TestClaim_JackpotPaidWithPrize(t *testing.T) {
	f := newGame(t)
	f.balances[contractAddr] += 5_000
	f.SetTime(t0.Add(301 * time.Second))
	_, err := ClaimPrizeAndStartNewGame(f.As("bob"), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000), mustState(t, f).PrizePool)

	_, err = PressButton(f.As("alice").Paying("0.010"), "")
	require.NoError(t, err)
	f.SetTime(t0.Add(700 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	require.NoError(t, err)

	st := mustState(t, f)
	assert.Zero(t, st.ProgressiveJackpot)
	assert.Zero(t, st.PrizePool, "payout drained the contract")
	assert.Zero(t, f.balances[contractAddr])
	assert.Equal(t, uint64(1_000_000-10+5_010+5_000), f.balances["alice"])

	winners, err := latestWinners(f, st, 1)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, uint64(5_010), winners[0].Prize)
	assert.Equal(t, uint64(5_000), winners[0].Jackpot)
	assert.Equal(t, uint64(2), winners[0].Round)
}

func TestClaim_JackpotCadence(t *testing.T) {
	f := NewFakeChain("owner", t0)
	f.balances["alice"] = 1_000_000
	f.balances[contractAddr] = 1_000_000
	// 50% of each fee into the jackpot, paid out every second round
	_, err := Init(f, "owner|300|1|0|hive|5000|2")
	require.NoError(t, err)

	_, err = PressButton(f.As("alice").Paying("1"), "")
	require.NoError(t, err)
	f.SetTime(t0.Add(300 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), mustState(t, f).ProgressiveJackpot, "round 1 keeps the jackpot")

	_, err = PressButton(f.As("alice").Paying("1"), "")
	require.NoError(t, err)
	f.SetTime(t0.Add(600 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	require.NoError(t, err)
	assert.Zero(t, mustState(t, f).ProgressiveJackpot, "round 2 pays it")
}

func TestClaim_Sponsorship(t *testing.T) {
	f := newGame(t)
	_, err := PressButton(f.As("alice").Paying("0.010"), "")
	require.NoError(t, err)
	f.SetTime(t0.Add(301 * time.Second))

	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "2.000")
	assert.ErrorIs(t, err, ErrInvalidPayment, "sponsorship needs an intent")

	f.balances[contractAddr] += 5_000
	_, err = ClaimPrizeAndStartNewGame(f.As("bob").Paying("2.000"), "2.000")
	require.NoError(t, err)
	st := mustState(t, f)
	assert.Equal(t, uint64(7_000), st.PrizePool)
	assert.Equal(t, uint64(1_000_000-2_000), f.balances["bob"])
}

func TestClaim_Inactive(t *testing.T) {
	f := newGame(t)
	_, err := PressButton(f.As("alice").Paying("0.010"), "")
	require.NoError(t, err)
	_, err = SetGameActive(f.As("owner"), "false")
	require.NoError(t, err)

	f.SetTime(t0.Add(400 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	assert.ErrorIs(t, err, ErrGameInactive)
}

func TestClaim_TransferFailure(t *testing.T) {
	f := newGame(t)
	_, err := PressButton(f.As("alice").Paying("0.010"), "")
	require.NoError(t, err)
	f.balances[contractAddr] = 0

	f.SetTime(t0.Add(301 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestClaim_PressOpensAfterClaim(t *testing.T) {
	f := newGame(t)
	_, err := PressButton(f.As("alice").Paying("0.010"), "")
	require.NoError(t, err)

	f.SetTime(t0.Add(301 * time.Second))
	_, err = PressButton(f.As("bob").Paying("0.010"), "")
	require.ErrorIs(t, err, ErrTimerExpired)

	_, err = ClaimPrizeAndStartNewGame(f.As("bob"), "")
	require.NoError(t, err)
	_, err = PressButton(f.As("bob").Paying("0.010"), "")
	require.NoError(t, err)
	assert.Equal(t, sdkAddr("bob"), mustState(t, f).LastPlayer)
}

func TestClaim_SponsorshipOnUnfundedContract(t *testing.T) {
	f := newGame(t)
	_, err := PressButton(f.As("alice").Paying("0.010"), "")
	require.NoError(t, err)
	f.SetTime(t0.Add(301 * time.Second))

	_, err = ClaimPrizeAndStartNewGame(f.As("bob").Paying("2.000"), "2.000")
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), mustState(t, f).PrizePool, "only the sponsorship is backed")
	assert.Equal(t, uint64(2_000), f.balances[contractAddr])
}

func TestClaim_UnfundedContractKeepsCycling(t *testing.T) {
	f := newGame(t)

	// round 1 holds the only funded seed
	_, err := PressButton(f.As("alice"), "true")
	require.NoError(t, err)
	f.SetTime(t0.Add(301 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("anyone"), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000+5_000), f.balances["alice"])

	st := mustState(t, f)
	assert.Equal(t, uint64(2), st.CurrentRound)
	assert.Zero(t, st.PrizePool)

	_, err = PressButton(f.As("bob"), "true")
	require.NoError(t, err)
	f.SetTime(t0.Add(602 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("anyone"), "")
	require.NoError(t, err)

	st = mustState(t, f)
	assert.Equal(t, uint64(3), st.CurrentRound)
	winners, err := latestWinners(f, st, 1)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, sdkAddr("bob"), winners[0].Winner)
	assert.Zero(t, winners[0].Prize)

	// an expired empty round still takes presses
	f.SetTime(t0.Add(2_000 * time.Second))
	_, err = PressButton(f.As("carol").Paying("0.010"), "")
	require.NoError(t, err)
	f.SetTime(t0.Add(2_300 * time.Second))
	_, err = ClaimPrizeAndStartNewGame(f.As("anyone"), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), f.balances["carol"])
}

func TestClaim_PoolAlwaysBacked(t *testing.T) {
	f := NewFakeChain("owner", t0)
	f.balances[contractAddr] = 7_500
	f.balances["alice"] = 1_000_000
	_, err := Init(f, "owner|300|0.010|5.000|hive|5000|3")
	require.NoError(t, err)

	ts := t0
	for i := 0; i < 6; i++ {
		if i%2 == 0 {
			_, err = PressButton(f.As("alice").Paying("0.010"), "")
			require.NoError(t, err)
		}
		ts = ts.Add(301 * time.Second)
		f.SetTime(ts)
		_, err = ClaimPrizeAndStartNewGame(f.As("anyone"), "")
		if errors.Is(err, ErrNothingToClaim) {
			continue
		}
		require.NoError(t, err)

		st := mustState(t, f)
		assert.GreaterOrEqual(t, f.balances[contractAddr], st.PrizePool+st.ProgressiveJackpot,
			"round %d", st.CurrentRound)
	}
}
