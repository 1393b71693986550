package contract

import "okinoko-button_game/sdk"

//
// Settlement. Anyone may trigger it once the timer ran out; the prize always
// goes to the last player, never to the caller by virtue of calling.
//

// ClaimPrizeAndStartNewGame pays the expired round to its last player and
// opens the next round.
//
// Payload is an optional fixed-point sponsorship the caller adds to the next
// round's seed. A non-zero sponsorship must carry a transfer.allow of exactly
// that amount.
func ClaimPrizeAndStartNewGame(c Chain, payload string) (*string, error) {
	sponsorship, err := parseFixedPoint3(payload)
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
	if st.Empty() {
		return nil, ErrNothingToClaim
	}
	if !st.Expired(ts) {
		return nil, ErrTimerNotExpired
	}
	if sponsorship > 0 {
		if err := requireExactPayment(c, sponsorship, cfg.Asset); err != nil {
			return nil, err
		}
	}
	timerEnd, err := addU64(ts, cfg.TimerDuration)
	if err != nil {
		return nil, err
	}

	if st.LastPlayer != noPlayer {
		if err := payWinner(c, cfg, st, ts); err != nil {
			return nil, err
		}
	} else if err := rollOverPool(c, st); err != nil {
		return nil, err
	}

	// only the jackpot is owed once the old pool is settled
	seed, err := addU64(backedSeed(c, cfg, st.ProgressiveJackpot), sponsorship)
	if err != nil {
		return nil, err
	}

	if sponsorship > 0 {
		if err := c.HiveDraw(sponsorship, cfg.Asset); err != nil {
			return nil, err
		}
	}

	st.CurrentRound++
	st.PrizePool = seed
	st.TimerEnd = timerEnd
	st.LastPlayer = noPlayer
	if err := saveState(c, st); err != nil {
		return nil, err
	}

	EmitNewGameStarted(c, st.CurrentRound, seed)
	return nil, nil
}

// payWinner transfers the pool, plus the jackpot on cadence rounds, to the
// last player and records the result.
func payWinner(c Chain, cfg *Config, st *GameState, ts uint64) error {
	winner := st.LastPlayer
	prize := st.PrizePool
	var jackpot uint64
	if st.ProgressiveJackpot > 0 && st.CurrentRound%cfg.JackpotEvery == 0 {
		jackpot = st.ProgressiveJackpot
	}
	total, err := addU64(prize, jackpot)
	if err != nil {
		return err
	}
	if total > 0 {
		if err := c.HiveTransfer(winner, total, cfg.Asset); err != nil {
			return err
		}
	}
	st.ProgressiveJackpot -= jackpot

	if err := appendWinner(c, st, &WinnerRecord{
		Winner:    winner,
		Prize:     prize,
		Jackpot:   jackpot,
		Timestamp: ts,
		Round:     st.CurrentRound,
	}); err != nil {
		return err
	}
	EmitPrizeWon(c, winner, total, st.CurrentRound)
	return nil
}

// rollOverPool handles a seeded round nobody pressed: there is no one to pay,
// so the unclaimed pool carries into the progressive jackpot.
func rollOverPool(c Chain, st *GameState) error {
	jackpot, err := addU64(st.ProgressiveJackpot, st.PrizePool)
	if err != nil {
		return err
	}
	st.ProgressiveJackpot = jackpot
	EmitJackpotRolledOver(c, st.CurrentRound, st.PrizePool, jackpot)
	return nil
}

// backedSeed is the part of the initial prize pool the contract can cover
// from holdings not already owed elsewhere. An underfunded contract opens
// smaller rounds instead of promising a pool it cannot pay.
func backedSeed(c Chain, cfg *Config, owed uint64) uint64 {
	held := c.ContractBalance(cfg.Asset)
	if held <= owed {
		return 0
	}
	return min(cfg.InitialPrizePool, held-owed)
}

// noPlayer is the null address reported while nobody pressed this round.
const noPlayer sdk.Address = ""
