package contract

import "okinoko-button_game/sdk"

const (
	// freePlayCooldown is the rolling window between two free presses.
	freePlayCooldown uint64 = 24 * 60 * 60

	// WinnerHistorySize is the capacity of the winner ring buffer.
	WinnerHistorySize uint32 = 100

	// bpsDenominator scales JackpotBps (10000 = 100%).
	bpsDenominator uint64 = 10_000
)

// Config is fixed at deployment and never changes afterwards.
type Config struct {
	Owner            sdk.Address
	Asset            sdk.Asset
	EntryFee         uint64 // base units, 3 implied decimals
	TimerDuration    uint64 // seconds
	InitialPrizePool uint64
	// JackpotBps is the share of every paid entry fee diverted into the
	// progressive jackpot instead of the round's prize pool.
	JackpotBps uint16
	// JackpotEvery pays the jackpot out with the prize on rounds that are a
	// multiple of it. 1 means every won round.
	JackpotEvery uint64
	DeployedAt   uint64
}

// GameState is the mutable singleton of the game.
//
// LastPlayer is empty when nobody has pressed in the current round.
// WinnersCursor is the next ring slot to write, WinnersCount saturates at
// WinnerHistorySize.
type GameState struct {
	TimerEnd           uint64
	PrizePool          uint64
	LastPlayer         sdk.Address
	GameActive         bool
	CurrentRound       uint64
	ProgressiveJackpot uint64
	WinnersCursor      uint32
	WinnersCount       uint32
}

// Expired reports whether the round's timer has run out at ts.
func (s *GameState) Expired(ts uint64) bool { return ts >= s.TimerEnd }

// Empty reports a round nobody pressed that holds nothing. It has nothing
// to settle, so its timer does not lock out presses.
func (s *GameState) Empty() bool { return s.LastPlayer == noPlayer && s.PrizePool == 0 }

// TimeRemaining is max(0, TimerEnd - ts).
func (s *GameState) TimeRemaining(ts uint64) uint64 {
	if s.Expired(ts) {
		return 0
	}
	return s.TimerEnd - ts
}

// WinnerRecord is one settled round.
type WinnerRecord struct {
	Winner    sdk.Address `json:"winner"`
	Prize     uint64      `json:"prize"`
	Jackpot   uint64      `json:"jackpot"`
	Timestamp uint64      `json:"timestamp"`
	Round     uint64      `json:"round"`
}

// GameStateView is the getGameState response.
type GameStateView struct {
	TimerEnd           uint64      `json:"timerEnd"`
	PrizePool          uint64      `json:"prizePool"`
	LastPlayer         sdk.Address `json:"lastPlayer"`
	GameActive         bool        `json:"gameActive"`
	TimeRemaining      uint64      `json:"timeRemaining"`
	CurrentRound       uint64      `json:"currentRound"`
	ProgressiveJackpot uint64      `json:"progressiveJackpot"`
}

// ConfigView is the getConfig response.
type ConfigView struct {
	Owner            sdk.Address `json:"owner"`
	Asset            sdk.Asset   `json:"asset"`
	EntryFee         uint64      `json:"entryFee"`
	TimerDuration    uint64      `json:"timerDuration"`
	InitialPrizePool uint64      `json:"initialPrizePool"`
	JackpotBps       uint16      `json:"jackpotBps"`
	JackpotEvery     uint64      `json:"jackpotEvery"`
	DeployedAt       uint64      `json:"deployedAt"`
}
