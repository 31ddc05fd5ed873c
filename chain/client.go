package chain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/types"
)

// FaucetSeed is the seed of the chain that funds faucet requests. Its
// transfers are not checked for funds.
var FaucetSeed = []byte("harness-faucet")

// Client implements api.ChainClient and api.Faucet over a Store.
type Client struct {
	Store
}

var (
	_ api.ChainClient = (*Client)(nil)
	_ api.Faucet      = (*Client)(nil)
)

// NewClient wraps store.
func NewClient(store Store) *Client {
	return &Client{Store: store}
}

func (c *Client) DeriveAddress(seed []byte, index uint32) (types.Address, error) {
	if len(seed) == 0 {
		return "", fmt.Errorf("empty seed")
	}
	return DeriveAddress(seed, index), nil
}

func (c *Client) GetTransactionIndex(ctx context.Context, genesis types.Address) (uint32, error) {
	return c.Store.Index(ctx, Normalize(genesis))
}

// NewContractTransaction returns a contract transaction carrying code.
func (c *Client) NewContractTransaction(code string, seed []byte) (*types.Transaction, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("empty seed")
	}
	return &types.Transaction{
		Type: types.ContractType,
		Data: types.TransactionData{Code: code},
	}, nil
}

// SendTransaction signs tx as the next transaction of seed's chain, settles
// its transfers and records it. tx itself is not modified.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction, seed []byte) (api.TransactionSuccess, error) {
	if len(seed) == 0 {
		return api.TransactionSuccess{}, fmt.Errorf("empty seed")
	}
	genesis := GenesisAddress(seed)
	index, err := c.Store.Index(ctx, genesis)
	if err != nil {
		return api.TransactionSuccess{}, fmt.Errorf("failed to get transaction index: %w", err)
	}

	signed := tx.Clone()
	if signed.Type == "" {
		signed.Type = types.TransferType
	}
	if err := Sign(signed, seed, index); err != nil {
		return api.TransactionSuccess{}, err
	}
	if err := Verify(signed); err != nil {
		return api.TransactionSuccess{}, err
	}

	commit := &Commit{
		Tx:         signed,
		Genesis:    genesis,
		GenesisKey: PublicKeyOf(DeriveKey(seed, 0)),
		Index:      index,
		Unlimited:  bytes.Equal(seed, FaucetSeed),
	}
	if err := c.Store.Commit(ctx, commit); err != nil {
		return api.TransactionSuccess{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	slog.Info("transaction committed", "address", signed.Address, "type", signed.Type, "genesis", genesis, "index", index)
	return api.TransactionSuccess{Address: signed.Address, Confirmations: 1, MaxConfirmations: 1}, nil
}

// Fund sends amount UCO from the faucet chain to address.
func (c *Client) Fund(ctx context.Context, address types.Address, amount uint64) (api.TransactionSuccess, error) {
	if amount == 0 {
		return api.TransactionSuccess{}, fmt.Errorf("faucet amount must be positive")
	}
	tx := &types.Transaction{
		Type: types.TransferType,
		Data: types.TransactionData{
			Ledger: &types.Ledger{UCO: &types.UCOLedger{Transfers: []types.UCOTransfer{{To: address, Amount: amount}}}},
		},
	}
	return c.SendTransaction(ctx, tx, FaucetSeed)
}
