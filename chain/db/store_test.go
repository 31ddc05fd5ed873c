package db

import (
	"context"
	"path/filepath"
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
	c := openTest(t)
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
	c := openTest(t)
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

func openTest(t *testing.T) *chain.Client {
	c, err := Open(filepath.Join(t.TempDir(), "chain.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestReopenKeepsChain(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chain.db")
	c, err := Open(path)
	require.NoError(t, err)
	genesis := chain.GenesisAddress([]byte("seed"))
	_, err = c.Fund(ctx, genesis, 42)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := chain.Open(chain.DBType, map[string]any{"db_path": path})
	require.NoError(t, err)
	defer reopened.Close()
	bal, err := reopened.Balance(ctx, genesis)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), bal.UCO)
}

func TestTokenTransfer(t *testing.T) {
	ctx := context.Background()
	c := openTest(t)
	alice, bob := []byte("alice"), []byte("bob")
	token := chain.DeriveAddress([]byte("token"), 1)

	mint := &types.Transaction{Data: types.TransactionData{Ledger: &types.Ledger{Token: &types.TokenLedger{
		Transfers: []types.TokenTransfer{{To: chain.GenesisAddress(alice), Amount: 10, TokenAddress: token}},
	}}}}
	_, err := c.SendTransaction(ctx, mint, chain.FaucetSeed)
	require.NoError(t, err)

	send := &types.Transaction{Data: types.TransactionData{Ledger: &types.Ledger{Token: &types.TokenLedger{
		Transfers: []types.TokenTransfer{{To: chain.GenesisAddress(bob), Amount: 4, TokenAddress: token}},
	}}}}
	_, err = c.SendTransaction(ctx, send, alice)
	require.NoError(t, err)

	bal, err := c.Balance(ctx, chain.GenesisAddress(alice))
	require.NoError(t, err)
	assert.Equal(t, uint64(6), bal.Token(token, 0))
	bal, err = c.Balance(ctx, chain.GenesisAddress(bob))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), bal.Token(token, 0))
}
