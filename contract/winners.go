package contract

//
// Winner history is a fixed-size ring of WinnerHistorySize slots. The write
// cursor and fill count live in GameState so appending costs one slot write
// plus the state write the claim does anyway.
//

// appendWinner writes rec into the cursor slot, overwriting the oldest entry
// once the ring is full, and advances the cursor.
func appendWinner(c Chain, st *GameState, rec *WinnerRecord) error {
	b, err := encodeWinner(rec)
	if err != nil {
		return err
	}
	c.StateSetObject(winnerKey(st.WinnersCursor), string(b))
	st.WinnersCursor = (st.WinnersCursor + 1) % WinnerHistorySize
	if st.WinnersCount < WinnerHistorySize {
		st.WinnersCount++
	}
	return nil
}

// latestWinners returns up to count records, newest first.
func latestWinners(c Chain, st *GameState, count uint64) ([]WinnerRecord, error) {
	n := uint64(st.WinnersCount)
	if count < n {
		n = count
	}
	out := make([]WinnerRecord, 0, n)
	for i := uint64(0); i < n; i++ {
		// step back from the cursor: cursor-1 is the newest entry
		slot := (uint64(st.WinnersCursor) + uint64(WinnerHistorySize) - 1 - i) % uint64(WinnerHistorySize)
		val := c.StateGetObject(winnerKey(uint32(slot)))
		if val == nil || *val == "" {
			return nil, newError(CodeCorruptState, "winner slot %d missing", slot)
		}
		rec, err := decodeWinner([]byte(*val))
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}
