package contract

// PressButton resets the countdown and makes the sender the last player.
//
// Payload is "true" to spend the daily free play, "false" or empty to pay
// the entry fee. A paid press must carry a transfer.allow of exactly the
// entry fee; a free press draws nothing and leaves the pool untouched.
func PressButton(c Chain, payload string) (*string, error) {
	useFreePlay, err := parseBool(payload)
	if err != nil {
		return nil, err
	}
	cfg, st, err := loadGame(c)
	if err != nil {
		return nil, err
	}
	ts, err := now(c)
	if err != nil {
		return nil, err
	}
	if !st.GameActive {
		return nil, ErrGameInactive
	}
	if st.Expired(ts) && !st.Empty() {
		return nil, ErrTimerExpired
	}

	player := sender(c)
	if err := checkAddress(player, "sender"); err != nil {
		return nil, err
	}

	if useFreePlay {
		last, used, err := lastFreePlay(c, player)
		if err != nil {
			return nil, err
		}
		if !freePlayEligible(last, used, ts) {
			return nil, newError(CodeInvalidPayment, "free play not available until %d", last+freePlayCooldown)
		}
		setLastFreePlay(c, player, ts)
	} else {
		if err := requireExactPayment(c, cfg.EntryFee, cfg.Asset); err != nil {
			return nil, err
		}
		if err := applyEntryFee(cfg, st); err != nil {
			return nil, err
		}
		if err := c.HiveDraw(cfg.EntryFee, cfg.Asset); err != nil {
			return nil, err
		}
	}

	// reset, not additive: remaining time does not stack
	timerEnd, err := addU64(ts, cfg.TimerDuration)
	if err != nil {
		return nil, err
	}
	st.TimerEnd = timerEnd
	st.LastPlayer = player
	if err := saveState(c, st); err != nil {
		return nil, err
	}

	EmitButtonPressed(c, player, st.TimerEnd, st.PrizePool, useFreePlay)
	return nil, nil
}

// applyEntryFee splits one paid fee between the prize pool and the
// progressive jackpot according to JackpotBps.
func applyEntryFee(cfg *Config, st *GameState) error {
	cut := mulBps(cfg.EntryFee, cfg.JackpotBps)
	pool, err := addU64(st.PrizePool, cfg.EntryFee-cut)
	if err != nil {
		return err
	}
	jackpot, err := addU64(st.ProgressiveJackpot, cut)
	if err != nil {
		return err
	}
	st.PrizePool = pool
	st.ProgressiveJackpot = jackpot
	return nil
}
