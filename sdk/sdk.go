// Package sdk holds the value types exchanged between the button game
// contract and the host that executes it.
package sdk

// Address identifies an account on the host chain, e.g. "hive:alice".
type Address string

func (a Address) String() string { return string(a) }

// Asset is a liquid token symbol the host can move.
type Asset string

const (
	AssetHive Asset = "hive"
	AssetHbd  Asset = "hbd"
)

func (a Asset) String() string { return string(a) }

// Intent is a permission attached to a transaction by its signer.
// The contract only understands "transfer.allow" with "limit" and "token" args.
type Intent struct {
	Type string            `json:"type"`
	Args map[string]string `json:"args"`
}

// Sender is the account that signed the current call.
type Sender struct {
	Address Address `json:"address"`
}

// Env is the per-call environment the host exposes to the contract.
type Env struct {
	Sender         Sender   `json:"sender"`
	Caller         Address  `json:"caller"`
	TxId           string   `json:"txId"`
	BlockTimestamp string   `json:"blockTimestamp"` // YYYY-MM-DDThh:mm:ss, UTC
	Intents        []Intent `json:"intents"`
}
