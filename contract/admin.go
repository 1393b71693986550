package contract

// SetGameActive switches the game on or off. Owner only.
// A paused game rejects presses and claims; timers keep their deadlines.
func SetGameActive(c Chain, payload string) (*string, error) {
	active, err := parseBool(payload)
	if err != nil {
		return nil, err
	}
	cfg, st, err := loadGame(c)
	if err != nil {
		return nil, err
	}
	caller := sender(c)
	if caller != cfg.Owner {
		return nil, newError(CodeUnauthorized, "game state can only be changed by %s", cfg.Owner)
	}
	if st.GameActive == active {
		return nil, nil
	}
	st.GameActive = active
	if err := saveState(c, st); err != nil {
		return nil, err
	}
	EmitGameActiveChanged(c, active, caller)
	return nil, nil
}

// Fund deposits into the contract balance so seeded rounds can be paid out.
// Payload is the fixed-point amount; the call must carry a matching intent.
// A round nobody pressed yet is topped up towards the initial prize pool.
func Fund(c Chain, payload string) (*string, error) {
	amount, err := parseFixedPoint3(payload)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, newError(CodeInvalidArgs, "amount must be positive")
	}
	cfg, st, err := loadGame(c)
	if err != nil {
		return nil, err
	}
	if err := requireExactPayment(c, amount, cfg.Asset); err != nil {
		return nil, err
	}
	if err := c.HiveDraw(amount, cfg.Asset); err != nil {
		return nil, err
	}
	EmitContractFunded(c, sender(c), amount)

	if st.LastPlayer != noPlayer || st.PrizePool >= cfg.InitialPrizePool {
		return nil, nil
	}
	owed, err := addU64(st.ProgressiveJackpot, st.PrizePool)
	if err != nil {
		return nil, err
	}
	topUp := min(cfg.InitialPrizePool-st.PrizePool, backedSeed(c, cfg, owed))
	if topUp == 0 {
		return nil, nil
	}
	st.PrizePool += topUp
	if err := saveState(c, st); err != nil {
		return nil, err
	}
	return nil, nil
}
