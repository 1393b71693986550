package contract

// Handler is one contract entry point. It returns an optional result and a
// non-nil error when the call must be reverted.
type Handler func(c Chain, payload string) (*string, error)

// Method describes an exported entry point. ReadOnly methods never write
// state and may run against a snapshot.
type Method struct {
	Name     string
	Handler  Handler
	ReadOnly bool
}

// ---------- Exported entry points ----------

var methods = map[string]Method{}

func export(name string, h Handler, readOnly bool) {
	methods[name] = Method{Name: name, Handler: h, ReadOnly: readOnly}
}

func init() {
	// mutations
	export("init", Init, false)
	export("pressButton", PressButton, false)
	export("claimPrizeAndStartNewGame", ClaimPrizeAndStartNewGame, false)
	export("setGameActive", SetGameActive, false)
	export("fund", Fund, false)

	// queries
	export("getGameState", GetGameState, true)
	export("getConfig", GetConfig, true)
	export("entryFee", EntryFee, true)
	export("timerDuration", TimerDuration, true)
	export("initialPrizePool", InitialPrizePool, true)
	export("isEligibleForFreePlay", IsEligibleForFreePlay, true)
	export("lastFreePlay", LastFreePlay, true)
	export("getLatestWinners", GetLatestWinners, true)
	export("getWinnersCount", GetWinnersCount, true)
	export("progressiveJackpot", ProgressiveJackpot, true)
	export("gameRound", GameRound, true)
}

// Lookup finds an exported entry point by name.
func Lookup(name string) (Method, bool) {
	m, ok := methods[name]
	return m, ok
}

// Dispatch runs the named entry point against c.
func Dispatch(c Chain, method, payload string) (*string, error) {
	m, ok := Lookup(method)
	if !ok {
		return nil, newError(CodeUnknownMethod, "unknown method %q", method)
	}
	return m.Handler(c, payload)
}
