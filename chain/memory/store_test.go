package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/chain"
	"github.com/govm-net/harness/types"
)

func transfer(to types.Address, amount uint64) *types.Transaction {
	return &types.Transaction{
		Type: types.TransferType,
		Data: types.TransactionData{Ledger: &types.Ledger{UCO: &types.UCOLedger{
			Transfers: []types.UCOTransfer{{To: to, Amount: amount}},
		}}},
	}
}

func TestFaucetAndTransfer(t *testing.T) {
	ctx := context.Background()
	c := New()
	alice, bob := []byte("alice"), []byte("bob")
	aliceGenesis := chain.GenesisAddress(alice)
	bobGenesis := chain.GenesisAddress(bob)

	_, err := c.Fund(ctx, aliceGenesis, 1000)
	require.NoError(t, err)

	bal, err := c.Balance(ctx, aliceGenesis)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bal.UCO)

	res, err := c.SendTransaction(ctx, transfer(bobGenesis, 300), alice)
	require.NoError(t, err)
	assert.Equal(t, chain.DeriveAddress(alice, 1), res.Address)
	assert.Equal(t, 1, res.Confirmations)

	bal, err = c.Balance(ctx, res.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(700), bal.UCO, "balance follows the chain, not the transaction address")

	bal, err = c.Balance(ctx, bobGenesis)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), bal.UCO)

	_, err = c.SendTransaction(ctx, transfer(bobGenesis, 701), alice)
	assert.ErrorIs(t, err, chain.ErrInsufficientFunds)

	idx, err := c.GetTransactionIndex(ctx, aliceGenesis)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	c := New()
	seed := []byte("seed")
	genesis := chain.GenesisAddress(seed)

	_, err := c.LastTransaction(ctx, genesis)
	assert.ErrorIs(t, err, api.ErrNotFound)
	last, err := c.LastAddress(ctx, genesis)
	require.NoError(t, err)
	assert.Equal(t, genesis, last)

	first, err := c.SendTransaction(ctx, &types.Transaction{Type: types.DataType, Data: types.TransactionData{Content: "1"}}, seed)
	require.NoError(t, err)
	second, err := c.SendTransaction(ctx, &types.Transaction{Type: types.DataType, Data: types.TransactionData{Content: "2"}}, seed)
	require.NoError(t, err)

	g, err := c.GenesisAddress(ctx, second.Address)
	require.NoError(t, err)
	assert.Equal(t, genesis, g)

	f, err := c.FirstTransactionAddress(ctx, second.Address)
	require.NoError(t, err)
	assert.Equal(t, first.Address, f)

	last, err = c.LastAddress(ctx, genesis)
	require.NoError(t, err)
	assert.Equal(t, second.Address, last)

	tx, err := c.LastTransaction(ctx, first.Address)
	require.NoError(t, err)
	assert.Equal(t, "2", tx.Data.Content)
	require.NoError(t, chain.Verify(tx))

	prev, err := c.PreviousAddress(ctx, tx.PreviousPublicKey)
	require.NoError(t, err)
	assert.Equal(t, first.Address, prev)

	gk, err := c.GenesisPublicKey(ctx, tx.PreviousPublicKey)
	require.NoError(t, err)
	assert.Equal(t, chain.PublicKeyOf(chain.DeriveKey(seed, 0)), gk)

	_, err = c.Transaction(ctx, types.ZeroAddress)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestRegistered(t *testing.T) {
	c, err := chain.Open(chain.MemoryType, nil)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
