package contract

import (
	"strings"

	"okinoko-button_game/sdk"
)

//
// Deployment. Runs once and opens round 1.
//

// parseInitArgs reads
//
//	owner|timerDuration|entryFee|initialPrizePool[|asset|jackpotBps|jackpotEvery]
//
// Fees and pools are fixed-point with 3 decimals. An empty owner falls back
// to the sender.
func parseInitArgs(payload string, from sdk.Address) (*Config, error) {
	in := payload
	owner := strings.TrimSpace(nextField(&in))
	durStr := nextField(&in)
	feeStr := nextField(&in)
	poolStr := nextField(&in)
	assetStr := nextField(&in)
	bpsStr := nextField(&in)
	everyStr := nextField(&in)
	if in != "" {
		return nil, newError(CodeInvalidArgs, "too many arguments")
	}

	cfg := &Config{
		Owner:        sdk.Address(owner),
		Asset:        sdk.AssetHive,
		JackpotEvery: 1,
	}
	if cfg.Owner == "" {
		cfg.Owner = from
	}
	if err := checkAddress(cfg.Owner, "owner"); err != nil {
		return nil, err
	}

	var err error
	if cfg.TimerDuration, err = parseU64(durStr, "timer duration"); err != nil {
		return nil, err
	}
	if cfg.TimerDuration == 0 {
		return nil, newError(CodeInvalidArgs, "timer duration must be positive")
	}
	if cfg.EntryFee, err = parseFixedPoint3(feeStr); err != nil {
		return nil, err
	}
	if cfg.EntryFee == 0 {
		return nil, newError(CodeInvalidArgs, "entry fee must be positive")
	}
	if cfg.InitialPrizePool, err = parseFixedPoint3(poolStr); err != nil {
		return nil, err
	}
	if assetStr != "" {
		cfg.Asset = sdk.Asset(assetStr)
		if !isValidAsset(cfg.Asset) {
			return nil, newError(CodeInvalidArgs, "invalid asset %q", assetStr)
		}
	}
	if bpsStr != "" {
		bps, err := parseU64(bpsStr, "jackpot bps")
		if err != nil {
			return nil, err
		}
		if bps > bpsDenominator {
			return nil, newError(CodeInvalidArgs, "jackpot bps above %d", bpsDenominator)
		}
		cfg.JackpotBps = uint16(bps)
	}
	if everyStr != "" {
		if cfg.JackpotEvery, err = parseU64(everyStr, "jackpot cadence"); err != nil {
			return nil, err
		}
		if cfg.JackpotEvery == 0 {
			return nil, newError(CodeInvalidArgs, "jackpot cadence must be positive")
		}
	}
	return cfg, nil
}

// Init deploys the game: stores the immutable config and seeds round 1
// from the initial prize pool, as far as the contract already holds it.
func Init(c Chain, payload string) (*string, error) {
	if val := c.StateGetObject(configKey); val != nil && *val != "" {
		return nil, ErrAlreadyDeployed
	}
	ts, err := now(c)
	if err != nil {
		return nil, err
	}
	cfg, err := parseInitArgs(payload, sender(c))
	if err != nil {
		return nil, err
	}
	cfg.DeployedAt = ts

	timerEnd, err := addU64(ts, cfg.TimerDuration)
	if err != nil {
		return nil, err
	}
	st := &GameState{
		TimerEnd:     timerEnd,
		PrizePool:    backedSeed(c, cfg, 0),
		GameActive:   true,
		CurrentRound: 1,
	}

	if err := saveConfig(c, cfg); err != nil {
		return nil, err
	}
	if err := saveState(c, st); err != nil {
		return nil, err
	}
	EmitNewGameStarted(c, st.CurrentRound, st.PrizePool)
	return nil, nil
}
