package contract

import (
	"strings"

	"okinoko-button_game/sdk"
)

//
// Read-only entry points. They never write state, so a host may run them
// against a snapshot without the write lock.
//

func GetGameState(c Chain, _ string) (*string, error) {
	_, st, err := loadGame(c)
	if err != nil {
		return nil, err
	}
	ts, err := now(c)
	if err != nil {
		return nil, err
	}
	return ToJSON(GameStateView{
		TimerEnd:           st.TimerEnd,
		PrizePool:          st.PrizePool,
		LastPlayer:         st.LastPlayer,
		GameActive:         st.GameActive,
		TimeRemaining:      st.TimeRemaining(ts),
		CurrentRound:       st.CurrentRound,
		ProgressiveJackpot: st.ProgressiveJackpot,
	}, "game state")
}

func GetConfig(c Chain, _ string) (*string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return ToJSON(ConfigView{
		Owner:            cfg.Owner,
		Asset:            cfg.Asset,
		EntryFee:         cfg.EntryFee,
		TimerDuration:    cfg.TimerDuration,
		InitialPrizePool: cfg.InitialPrizePool,
		JackpotBps:       cfg.JackpotBps,
		JackpotEvery:     cfg.JackpotEvery,
		DeployedAt:       cfg.DeployedAt,
	}, "config")
}

// configField returns an entry point that reports one config value.
func configField(pick func(*Config) uint64) Handler {
	return func(c Chain, _ string) (*string, error) {
		cfg, err := loadConfig(c)
		if err != nil {
			return nil, err
		}
		return ToJSON(pick(cfg), "config value")
	}
}

// stateField returns an entry point that reports one state value.
func stateField(pick func(*GameState) uint64) Handler {
	return func(c Chain, _ string) (*string, error) {
		st, err := loadState(c)
		if err != nil {
			return nil, err
		}
		return ToJSON(pick(st), "state value")
	}
}

var (
	EntryFee           = configField(func(cfg *Config) uint64 { return cfg.EntryFee })
	TimerDuration      = configField(func(cfg *Config) uint64 { return cfg.TimerDuration })
	InitialPrizePool   = configField(func(cfg *Config) uint64 { return cfg.InitialPrizePool })
	ProgressiveJackpot = stateField(func(st *GameState) uint64 { return st.ProgressiveJackpot })
	GameRound          = stateField(func(st *GameState) uint64 { return st.CurrentRound })
	GetWinnersCount    = stateField(func(st *GameState) uint64 { return uint64(st.WinnersCount) })
)

func parseAddress(payload string) (sdk.Address, error) {
	addr := strings.TrimSpace(payload)
	if strings.Contains(addr, "|") {
		return "", newError(CodeInvalidArgs, "invalid address %q", addr)
	}
	if err := checkAddress(sdk.Address(addr), "address"); err != nil {
		return "", err
	}
	return sdk.Address(addr), nil
}

// IsEligibleForFreePlay reports whether the address may press for free now.
func IsEligibleForFreePlay(c Chain, payload string) (*string, error) {
	addr, err := parseAddress(payload)
	if err != nil {
		return nil, err
	}
	ts, err := now(c)
	if err != nil {
		return nil, err
	}
	last, used, err := lastFreePlay(c, addr)
	if err != nil {
		return nil, err
	}
	return ToJSON(freePlayEligible(last, used, ts), "eligibility")
}

// LastFreePlay reports the unix time of the address' last free press,
// 0 when it never used one.
func LastFreePlay(c Chain, payload string) (*string, error) {
	addr, err := parseAddress(payload)
	if err != nil {
		return nil, err
	}
	last, _, err := lastFreePlay(c, addr)
	if err != nil {
		return nil, err
	}
	return ToJSON(last, "last free play")
}

// GetLatestWinners returns up to count records, newest first.
func GetLatestWinners(c Chain, payload string) (*string, error) {
	count, err := parseU64(strings.TrimSpace(payload), "count")
	if err != nil {
		return nil, err
	}
	st, err := loadState(c)
	if err != nil {
		return nil, err
	}
	winners, err := latestWinners(c, st, count)
	if err != nil {
		return nil, err
	}
	return ToJSON(winners, "winners")
}
