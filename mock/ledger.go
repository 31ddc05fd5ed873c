package mock

import (
	"context"
	"log/slog"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/types"
)

// LedgerTable answers the chain lookups from l. Lookups that fail on the
// ledger side are logged and answered with the zero value, except the
// transaction lookups which report the failure in their Result.
func LedgerTable(l api.Ledger) *Table {
	ctx := context.Background()
	address := func(method Method, fn func(context.Context, types.Address) (types.Address, error)) func(types.Address) types.Address {
		return func(a types.Address) types.Address {
			out, err := fn(ctx, a)
			if err != nil {
				slog.Warn("ledger lookup failed", "method", method, "address", a, "error", err)
			}
			return out
		}
	}
	transaction := func(fn func(context.Context, types.Address) (*types.Transaction, error)) func(types.Address) types.Result[types.Transaction] {
		return func(a types.Address) types.Result[types.Transaction] {
			tx, err := fn(ctx, a)
			if err != nil {
				return types.Err[types.Transaction](err.Error())
			}
			return types.Ok(*tx)
		}
	}
	return &Table{
		GetBalance: func(a types.Address) types.Balance {
			bal, err := l.Balance(ctx, a)
			if err != nil {
				slog.Warn("ledger lookup failed", "method", GetBalance, "address", a, "error", err)
			}
			return bal
		},
		GetGenesisAddress:          address(GetGenesisAddress, l.GenesisAddress),
		GetFirstTransactionAddress: address(GetFirstTransactionAddress, l.FirstTransactionAddress),
		GetLastAddress:             address(GetLastAddress, l.LastAddress),
		GetPreviousAddress: func(k types.PublicKey) types.Address {
			out, err := l.PreviousAddress(ctx, k)
			if err != nil {
				slog.Warn("ledger lookup failed", "method", GetPreviousAddress, "publicKey", k, "error", err)
			}
			return out
		},
		GetGenesisPublicKey: func(k types.PublicKey) types.PublicKey {
			out, err := l.GenesisPublicKey(ctx, k)
			if err != nil {
				slog.Warn("ledger lookup failed", "method", GetGenesisPublicKey, "publicKey", k, "error", err)
			}
			return out
		},
		GetTransaction:     transaction(l.Transaction),
		GetLastTransaction: transaction(l.LastTransaction),
	}
}
