package contract

import "okinoko-button_game/sdk"

// Chain is everything the contract needs from its host.
//
// State writes, logs and fund movements made during a call are expected to
// be applied only if the entry point returns a nil error. The host reverts
// the whole call otherwise, so handlers may validate as they go.
type Chain interface {
	StateGetObject(key string) *string
	StateSetObject(key, value string)
	Log(msg string)
	GetEnv() sdk.Env

	// HiveDraw pulls amount from the sender into the contract balance.
	// The sender must have attached a matching transfer.allow intent.
	HiveDraw(amount uint64, asset sdk.Asset) error
	// HiveTransfer pays amount from the contract balance to the given account.
	HiveTransfer(to sdk.Address, amount uint64, asset sdk.Asset) error
	// ContractBalance is what the contract itself holds of asset, including
	// draws made earlier in the same call.
	ContractBalance(asset sdk.Asset) uint64
}

// sender returns the signer of the current call.
func sender(c Chain) sdk.Address { return c.GetEnv().Sender.Address }

// now returns the block time of the current call as unix seconds.
func now(c Chain) (uint64, error) {
	ts, err := parseISO8601ToUnix(c.GetEnv().BlockTimestamp)
	if err != nil {
		return 0, newError(CodeInvalidArgs, "invalid block timestamp: %v", err)
	}
	return ts, nil
}
