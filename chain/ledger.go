package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/types"
)

var (
	// ErrInsufficientFunds is returned when a sender cannot cover its
	// transfers.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrIndexConflict is returned when another transaction took the index
	// first.
	ErrIndexConflict = errors.New("transaction index already used")
)

// Store persists a simulated chain.
type Store interface {
	api.Ledger

	// Index returns the number of transactions on genesis' chain.
	Index(ctx context.Context, genesis types.Address) (uint32, error)

	// Commit settles and records a signed transaction atomically.
	Commit(ctx context.Context, c *Commit) error

	Close() error
}

// Commit is a signed transaction on its way into a Store.
type Commit struct {
	Tx         *types.Transaction
	Genesis    types.Address
	GenesisKey types.PublicKey
	Index      uint32
	// Unlimited skips the funds check on the sender.
	Unlimited bool
}

// Settle computes the balances tx leaves behind. load returns the current
// balance of a genesis address and resolve maps any address to its genesis.
// The returned map is keyed by normalized genesis address. Settle also stamps
// the transaction with the sender's remaining funds.
func (c *Commit) Settle(load func(types.Address) (types.Balance, error), resolve func(types.Address) (types.Address, error)) (map[types.Address]types.Balance, error) {
	touched := make(map[types.Address]types.Balance)
	get := func(a types.Address) (types.Balance, error) {
		a = Normalize(a)
		if b, ok := touched[a]; ok {
			return b, nil
		}
		return load(a)
	}

	sender := Normalize(c.Genesis)
	bal, err := get(sender)
	if err != nil {
		return nil, err
	}
	uco, tokens := Outflow(c.Tx)
	if !c.Unlimited {
		if bal, err = Withdraw(bal, uco, tokens); err != nil {
			return nil, err
		}
	}
	touched[sender] = bal

	credit := func(to types.Address, uco uint64, tokens []types.TokenBalance) error {
		target, err := resolve(to)
		if err != nil {
			return err
		}
		b, err := get(target)
		if err != nil {
			return err
		}
		touched[Normalize(target)] = Deposit(b, uco, tokens)
		return nil
	}
	if l := c.Tx.Data.Ledger; l != nil {
		if l.UCO != nil {
			for _, t := range l.UCO.Transfers {
				if err := credit(t.To, t.Amount, nil); err != nil {
					return nil, err
				}
			}
		}
		if l.Token != nil {
			for _, t := range l.Token.Transfers {
				token := []types.TokenBalance{{TokenAddress: t.TokenAddress, TokenID: t.TokenID, Amount: t.Amount}}
				if err := credit(t.To, 0, token); err != nil {
					return nil, err
				}
			}
		}
	}

	c.Tx.ValidationStamp = stamp(c.Tx, touched[sender])
	return touched, nil
}

func stamp(tx *types.Transaction, remaining types.Balance) *types.ValidationStamp {
	vs := &types.ValidationStamp{}
	from := string(tx.Address)
	if remaining.UCO > 0 {
		vs.LedgerOperations.UnspentOutputs = append(vs.LedgerOperations.UnspentOutputs, types.UnspentOutput{
			Type: types.UTXOUCO, From: from, Amount: remaining.UCO,
		})
	}
	for _, t := range remaining.Tokens {
		vs.LedgerOperations.UnspentOutputs = append(vs.LedgerOperations.UnspentOutputs, types.UnspentOutput{
			Type: types.UTXOToken, From: from, Amount: t.Amount, TokenAddress: t.TokenAddress, TokenIndex: t.TokenID,
		})
	}
	return vs
}

// Outflow totals the UCO and tokens tx sends.
func Outflow(tx *types.Transaction) (uint64, []types.TokenBalance) {
	var uco uint64
	var tokens []types.TokenBalance
	l := tx.Data.Ledger
	if l == nil {
		return 0, nil
	}
	if l.UCO != nil {
		for _, t := range l.UCO.Transfers {
			uco += t.Amount
		}
	}
	if l.Token != nil {
		for _, t := range l.Token.Transfers {
			tokens = addToken(tokens, t.TokenAddress, t.TokenID, t.Amount)
		}
	}
	return uco, tokens
}

// Withdraw takes uco and tokens out of bal.
func Withdraw(bal types.Balance, uco uint64, tokens []types.TokenBalance) (types.Balance, error) {
	if bal.UCO < uco {
		return bal, fmt.Errorf("%w: need %d UCO, have %d", ErrInsufficientFunds, uco, bal.UCO)
	}
	out := types.Balance{UCO: bal.UCO - uco, Tokens: append([]types.TokenBalance(nil), bal.Tokens...)}
	for _, t := range tokens {
		have := out.Token(t.TokenAddress, t.TokenID)
		if have < t.Amount {
			return bal, fmt.Errorf("%w: need %d of token %s/%d, have %d", ErrInsufficientFunds, t.Amount, t.TokenAddress, t.TokenID, have)
		}
		out.Tokens = setToken(out.Tokens, t.TokenAddress, t.TokenID, have-t.Amount)
	}
	return out, nil
}

// Deposit adds uco and tokens to bal.
func Deposit(bal types.Balance, uco uint64, tokens []types.TokenBalance) types.Balance {
	out := types.Balance{UCO: bal.UCO + uco, Tokens: append([]types.TokenBalance(nil), bal.Tokens...)}
	for _, t := range tokens {
		out.Tokens = addToken(out.Tokens, t.TokenAddress, t.TokenID, t.Amount)
	}
	return out
}

func addToken(tokens []types.TokenBalance, address types.Address, id, amount uint64) []types.TokenBalance {
	for i := range tokens {
		if tokens[i].TokenAddress.Equal(address) && tokens[i].TokenID == id {
			tokens[i].Amount += amount
			return tokens
		}
	}
	return append(tokens, types.TokenBalance{TokenAddress: Normalize(address), TokenID: id, Amount: amount})
}

func setToken(tokens []types.TokenBalance, address types.Address, id, amount uint64) []types.TokenBalance {
	for i := range tokens {
		if tokens[i].TokenAddress.Equal(address) && tokens[i].TokenID == id {
			if amount == 0 {
				return append(tokens[:i], tokens[i+1:]...)
			}
			tokens[i].Amount = amount
			return tokens
		}
	}
	if amount == 0 {
		return tokens
	}
	return append(tokens, types.TokenBalance{TokenAddress: Normalize(address), TokenID: id, Amount: amount})
}
