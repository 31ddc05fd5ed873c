// Package api defines the collaborators the harness talks to outside the
// bytecode host: the chain client used for deployment, the ledger read side
// answering contract lookups, and the faucet funding local accounts.
package api

import (
	"context"
	"errors"

	"github.com/govm-net/harness/types"
)

// ErrNotFound is returned by Ledger lookups for unknown addresses and keys.
var ErrNotFound = errors.New("not found")

// TransactionSuccess reports a transaction accepted by the chain.
type TransactionSuccess struct {
	Address          types.Address `json:"transactionAddress"`
	Confirmations    int           `json:"nbConfirmations"`
	MaxConfirmations int           `json:"maxConfirmations"`
}

// ChainClient signs, broadcasts and reads back transactions.
type ChainClient interface {
	Ledger

	// DeriveAddress returns the address of the key at index on the chain
	// derived from seed. Index 0 is the genesis address.
	DeriveAddress(seed []byte, index uint32) (types.Address, error)

	// GetTransactionIndex returns how many transactions the chain holds.
	GetTransactionIndex(ctx context.Context, genesis types.Address) (uint32, error)

	// SendTransaction signs tx with the next key of seed's chain and
	// broadcasts it.
	SendTransaction(ctx context.Context, tx *types.Transaction, seed []byte) (TransactionSuccess, error)

	// NewContractTransaction builds an unsigned contract transaction for code.
	NewContractTransaction(code string, seed []byte) (*types.Transaction, error)

	Close() error
}

// Ledger is the read side of a chain.
type Ledger interface {
	Balance(ctx context.Context, address types.Address) (types.Balance, error)
	Transaction(ctx context.Context, address types.Address) (*types.Transaction, error)
	LastTransaction(ctx context.Context, address types.Address) (*types.Transaction, error)
	GenesisAddress(ctx context.Context, address types.Address) (types.Address, error)
	FirstTransactionAddress(ctx context.Context, address types.Address) (types.Address, error)
	LastAddress(ctx context.Context, address types.Address) (types.Address, error)
	PreviousAddress(ctx context.Context, previousPublicKey types.PublicKey) (types.Address, error)
	GenesisPublicKey(ctx context.Context, publicKey types.PublicKey) (types.PublicKey, error)
}

// Faucet credits UCO to an address on a test chain.
type Faucet interface {
	Fund(ctx context.Context, address types.Address, amount uint64) (TransactionSuccess, error)
}
