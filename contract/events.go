package contract

import (
	"encoding/json"
	"strconv"

	"okinoko-button_game/sdk"
)

// Event types emitted by the contract.
const (
	EventButtonPressed     = "ButtonPressed"
	EventPrizeWon          = "PrizeWon"
	EventNewGameStarted    = "NewGameStarted"
	EventJackpotRolledOver = "JackpotRolledOver"
	EventGameActiveChanged = "GameActiveChanged"
	EventContractFunded    = "ContractFunded"
)

// Event represents the common structure for all emitted events.
// Each event has a type and a set of key/value attributes.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// emitEvent logs the event as JSON through the host.
func emitEvent(c Chain, eventType string, attributes map[string]string) {
	data, _ := json.Marshal(Event{Type: eventType, Attributes: attributes})
	c.Log(string(data))
}

// EmitButtonPressed is emitted after every accepted press.
func EmitButtonPressed(c Chain, player sdk.Address, newTimerEnd, newPrizePool uint64, isFreePlay bool) {
	emitEvent(c, EventButtonPressed, map[string]string{
		"player":       player.String(),
		"newTimerEnd":  UInt64ToString(newTimerEnd),
		"newPrizePool": UInt64ToString(newPrizePool),
		"isFreePlay":   strconv.FormatBool(isFreePlay),
	})
}

// EmitPrizeWon is emitted when a round is settled with a payout.
// amount includes any jackpot paid alongside the pool.
func EmitPrizeWon(c Chain, winner sdk.Address, amount, round uint64) {
	emitEvent(c, EventPrizeWon, map[string]string{
		"winner": winner.String(),
		"amount": UInt64ToString(amount),
		"round":  UInt64ToString(round),
	})
}

// EmitNewGameStarted is emitted for round 1 at init and after every claim.
func EmitNewGameStarted(c Chain, round, initialPrize uint64) {
	emitEvent(c, EventNewGameStarted, map[string]string{
		"round":        UInt64ToString(round),
		"initialPrize": UInt64ToString(initialPrize),
	})
}

// EmitJackpotRolledOver is emitted when a round nobody pressed is settled
// and its seed moves into the progressive jackpot.
func EmitJackpotRolledOver(c Chain, round, amount, jackpot uint64) {
	emitEvent(c, EventJackpotRolledOver, map[string]string{
		"round":   UInt64ToString(round),
		"amount":  UInt64ToString(amount),
		"jackpot": UInt64ToString(jackpot),
	})
}

func EmitGameActiveChanged(c Chain, active bool, by sdk.Address) {
	emitEvent(c, EventGameActiveChanged, map[string]string{
		"active": strconv.FormatBool(active),
		"by":     by.String(),
	})
}

func EmitContractFunded(c Chain, from sdk.Address, amount uint64) {
	emitEvent(c, EventContractFunded, map[string]string{
		"from":   from.String(),
		"amount": UInt64ToString(amount),
	})
}
