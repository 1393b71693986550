package contract

import (
	"encoding/binary"

	"okinoko-button_game/sdk"
)

// ---------- Storage keys ----------

const (
	configKey = "cfg"
	stateKey  = "gs"
)

// freePlayKey is "fp:<address>".
func freePlayKey(addr sdk.Address) string { return "fp:" + addr.String() }

// winnerKey is "w:<slot>" for a ring buffer slot.
func winnerKey(slot uint32) string { return "w:" + UInt64ToString(uint64(slot)) }

// ---------- Binary State Codec ----------

// codecVersion increments when storage encoding changes.
// Used to detect incompatible on-chain state.
const codecVersion uint8 = 1

// maxStrLen is the longest string the 2-byte length prefix can carry.
const maxStrLen = 1<<16 - 1

// wr accumulates big-endian fields. A field that cannot be encoded sticks
// in err and the output must be discarded.
type wr struct {
	out []byte
	err error
}

func (w *wr) u8(x byte) { w.out = append(w.out, x) }

func (w *wr) u16(x uint16) { w.out = binary.BigEndian.AppendUint16(w.out, x) }

func (w *wr) u32(x uint32) { w.out = binary.BigEndian.AppendUint32(w.out, x) }

func (w *wr) u64(x uint64) { w.out = binary.BigEndian.AppendUint64(w.out, x) }

func (w *wr) bool(b bool) {
	if b {
		w.u8(1)
		return
	}
	w.u8(0)
}

// str writes a 2-byte length prefix followed by the bytes.
func (w *wr) str(s string) {
	if len(s) > maxStrLen {
		if w.err == nil {
			w.err = newError(CodeInvalidArgs, "string of %d bytes exceeds %d", len(s), maxStrLen)
		}
		return
	}
	w.u16(uint16(len(s)))
	w.out = append(w.out, s...)
}

// rd is a binary reader over a byte slice. The first short read sticks in
// err and every later read returns zero values.
type rd struct {
	b   []byte // raw buffer
	i   int    // current read index
	err error
}

func (r *rd) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.i+n > len(r.b) {
		r.err = newError(CodeCorruptState, "decode overflow")
		return false
	}
	return true
}

func (r *rd) u8() byte {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.i]
	r.i++
	return v
}

func (r *rd) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.b[r.i : r.i+2])
	r.i += 2
	return v
}

func (r *rd) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.b[r.i : r.i+4])
	r.i += 4
	return v
}

func (r *rd) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.b[r.i : r.i+8])
	r.i += 8
	return v
}

func (r *rd) bool() bool { return r.u8() == 1 }

func (r *rd) str() string {
	l := int(r.u16())
	if !r.need(l) {
		return ""
	}
	v := string(r.b[r.i : r.i+l])
	r.i += l
	return v
}

// version checks the leading codec version byte.
func (r *rd) version() {
	if v := r.u8(); r.err == nil && v != codecVersion {
		r.err = newError(CodeCorruptState, "unsupported codec version %d", v)
	}
}

// end verifies that the reader consumed all bytes exactly.
func (r *rd) end() error {
	if r.err == nil && r.i != len(r.b) {
		r.err = newError(CodeCorruptState, "trailing bytes")
	}
	return r.err
}

// ---------- Config ----------

// Layout:
//
//	version | EntryFee | TimerDuration | InitialPrizePool | JackpotEvery | DeployedAt | JackpotBps | Owner | Asset
func encodeConfig(c *Config) ([]byte, error) {
	w := &wr{out: make([]byte, 0, 48+len(c.Owner)+len(c.Asset))}
	w.u8(codecVersion)
	w.u64(c.EntryFee)
	w.u64(c.TimerDuration)
	w.u64(c.InitialPrizePool)
	w.u64(c.JackpotEvery)
	w.u64(c.DeployedAt)
	w.u16(c.JackpotBps)
	w.str(c.Owner.String())
	w.str(c.Asset.String())
	return w.out, w.err
}

func decodeConfig(b []byte) (*Config, error) {
	r := &rd{b: b}
	r.version()
	c := &Config{}
	c.EntryFee = r.u64()
	c.TimerDuration = r.u64()
	c.InitialPrizePool = r.u64()
	c.JackpotEvery = r.u64()
	c.DeployedAt = r.u64()
	c.JackpotBps = r.u16()
	c.Owner = sdk.Address(r.str())
	c.Asset = sdk.Asset(r.str())
	if err := r.end(); err != nil {
		return nil, err
	}
	return c, nil
}

func saveConfig(c Chain, cfg *Config) error {
	b, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	c.StateSetObject(configKey, string(b))
	return nil
}

// loadConfig returns ErrNotDeployed before init ran.
func loadConfig(c Chain) (*Config, error) {
	val := c.StateGetObject(configKey)
	if val == nil || *val == "" {
		return nil, ErrNotDeployed
	}
	return decodeConfig([]byte(*val))
}

// ---------- Game state ----------

// Layout:
//
//	version | TimerEnd | PrizePool | CurrentRound | ProgressiveJackpot | WinnersCursor | WinnersCount | GameActive | LastPlayer
func encodeState(s *GameState) ([]byte, error) {
	w := &wr{out: make([]byte, 0, 48+len(s.LastPlayer))}
	w.u8(codecVersion)
	w.u64(s.TimerEnd)
	w.u64(s.PrizePool)
	w.u64(s.CurrentRound)
	w.u64(s.ProgressiveJackpot)
	w.u32(s.WinnersCursor)
	w.u32(s.WinnersCount)
	w.bool(s.GameActive)
	w.str(s.LastPlayer.String())
	return w.out, w.err
}

func decodeState(b []byte) (*GameState, error) {
	r := &rd{b: b}
	r.version()
	s := &GameState{}
	s.TimerEnd = r.u64()
	s.PrizePool = r.u64()
	s.CurrentRound = r.u64()
	s.ProgressiveJackpot = r.u64()
	s.WinnersCursor = r.u32()
	s.WinnersCount = r.u32()
	s.GameActive = r.bool()
	s.LastPlayer = sdk.Address(r.str())
	if err := r.end(); err != nil {
		return nil, err
	}
	if s.WinnersCursor >= WinnerHistorySize || s.WinnersCount > WinnerHistorySize {
		return nil, newError(CodeCorruptState, "winner cursor out of range")
	}
	return s, nil
}

func saveState(c Chain, s *GameState) error {
	b, err := encodeState(s)
	if err != nil {
		return err
	}
	c.StateSetObject(stateKey, string(b))
	return nil
}

func loadState(c Chain) (*GameState, error) {
	val := c.StateGetObject(stateKey)
	if val == nil || *val == "" {
		return nil, ErrNotDeployed
	}
	return decodeState([]byte(*val))
}

// loadGame reads config and state together; every entry point needs both.
func loadGame(c Chain) (*Config, *GameState, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	st, err := loadState(c)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

// ---------- Free plays ----------

// lastFreePlay returns the unix time of the address' last free press and
// whether it ever used one.
func lastFreePlay(c Chain, addr sdk.Address) (uint64, bool, error) {
	val := c.StateGetObject(freePlayKey(addr))
	if val == nil || *val == "" {
		return 0, false, nil
	}
	ts, err := parseU64(*val, "free play timestamp")
	if err != nil {
		return 0, false, newError(CodeCorruptState, "free play record for %s: %v", addr, err)
	}
	return ts, true, nil
}

func setLastFreePlay(c Chain, addr sdk.Address, ts uint64) {
	c.StateSetObject(freePlayKey(addr), UInt64ToString(ts))
}

// freePlayEligible: never used, or at least 24h since the last use.
func freePlayEligible(last uint64, used bool, ts uint64) bool {
	return !used || (ts >= last && ts-last >= freePlayCooldown)
}

// ---------- Winner records ----------

// Layout:
//
//	version | Prize | Jackpot | Timestamp | Round | Winner
func encodeWinner(w *WinnerRecord) ([]byte, error) {
	out := &wr{out: make([]byte, 0, 40+len(w.Winner))}
	out.u8(codecVersion)
	out.u64(w.Prize)
	out.u64(w.Jackpot)
	out.u64(w.Timestamp)
	out.u64(w.Round)
	out.str(w.Winner.String())
	return out.out, out.err
}

func decodeWinner(b []byte) (*WinnerRecord, error) {
	r := &rd{b: b}
	r.version()
	w := &WinnerRecord{}
	w.Prize = r.u64()
	w.Jackpot = r.u64()
	w.Timestamp = r.u64()
	w.Round = r.u64()
	w.Winner = sdk.Address(r.str())
	if err := r.end(); err != nil {
		return nil, err
	}
	return w, nil
}
