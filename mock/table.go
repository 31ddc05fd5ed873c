// Package mock resolves the outbound calls a contract issues through the
// jsonrpc host function against caller-supplied stand-ins.
package mock

import (
	"github.com/govm-net/harness/types"
)

// Method names a mockable outbound operation.
type Method string

const (
	GetBalance                 Method = "getBalance"
	GetGenesisAddress          Method = "getGenesisAddress"
	GetFirstTransactionAddress Method = "getFirstTransactionAddress"
	GetBurnAddress             Method = "getBurnAddress"
	GetLastAddress             Method = "getLastAddress"
	GetPreviousAddress         Method = "getPreviousAddress"
	GetGenesisPublicKey        Method = "getGenesisPublicKey"
	GetTransaction             Method = "getTransaction"
	GetLastTransaction         Method = "getLastTransaction"
	CallFunction               Method = "callFunction"
	HmacWithStorageNonce       Method = "hmacWithStorageNonce"
	SignWithRecovery           Method = "signWithRecovery"
	DecryptWithStorageNonce    Method = "decryptWithStorageNonce"
	Request                    Method = "request"
	RequestMany                Method = "requestMany"
)

// Methods lists every mockable operation.
var Methods = []Method{
	GetBalance, GetGenesisAddress, GetFirstTransactionAddress, GetBurnAddress,
	GetLastAddress, GetPreviousAddress, GetGenesisPublicKey, GetTransaction,
	GetLastTransaction, CallFunction, HmacWithStorageNonce, SignWithRecovery,
	DecryptWithStorageNonce, Request, RequestMany,
}

// Table holds one stand-in per method. A nil field means the method is not
// mocked and dispatching it fails.
//
// GetTransaction, GetLastTransaction and CallFunction return a Result
// themselves, the others return a plain value the dispatcher wraps.
type Table struct {
	GetBalance                 func(address types.Address) types.Balance
	GetGenesisAddress          func(address types.Address) types.Address
	GetFirstTransactionAddress func(address types.Address) types.Address
	GetBurnAddress             func() types.Address
	GetLastAddress             func(address types.Address) types.Address
	GetPreviousAddress         func(previousPublicKey types.PublicKey) types.Address
	GetGenesisPublicKey        func(publicKey types.PublicKey) types.PublicKey
	GetTransaction             func(address types.Address) types.Result[types.Transaction]
	GetLastTransaction         func(address types.Address) types.Result[types.Transaction]
	CallFunction               func(address types.Address, functionName string, args types.Value) types.Result[types.Value]
	HmacWithStorageNonce       func(data []byte, hash types.HashFunction) []byte
	SignWithRecovery           func(data []byte) []byte
	DecryptWithStorageNonce    func(cipher []byte) []byte
	Request                    func(req types.HTTPRequest) types.HTTPResponse
	RequestMany                func(reqs []types.HTTPRequest) []types.HTTPResponse
}

// Has reports whether m has a stand-in.
func (t *Table) Has(m Method) bool {
	if t == nil {
		return false
	}
	switch m {
	case GetBalance:
		return t.GetBalance != nil
	case GetGenesisAddress:
		return t.GetGenesisAddress != nil
	case GetFirstTransactionAddress:
		return t.GetFirstTransactionAddress != nil
	case GetBurnAddress:
		return t.GetBurnAddress != nil
	case GetLastAddress:
		return t.GetLastAddress != nil
	case GetPreviousAddress:
		return t.GetPreviousAddress != nil
	case GetGenesisPublicKey:
		return t.GetGenesisPublicKey != nil
	case GetTransaction:
		return t.GetTransaction != nil
	case GetLastTransaction:
		return t.GetLastTransaction != nil
	case CallFunction:
		return t.CallFunction != nil
	case HmacWithStorageNonce:
		return t.HmacWithStorageNonce != nil
	case SignWithRecovery:
		return t.SignWithRecovery != nil
	case DecryptWithStorageNonce:
		return t.DecryptWithStorageNonce != nil
	case Request:
		return t.Request != nil
	case RequestMany:
		return t.RequestMany != nil
	}
	return false
}

// With returns a table holding t's stand-ins overridden by the non-nil ones of
// overlay. Neither input is modified.
func (t *Table) With(overlay *Table) *Table {
	out := &Table{}
	if t != nil {
		*out = *t
	}
	if overlay == nil {
		return out
	}
	if overlay.GetBalance != nil {
		out.GetBalance = overlay.GetBalance
	}
	if overlay.GetGenesisAddress != nil {
		out.GetGenesisAddress = overlay.GetGenesisAddress
	}
	if overlay.GetFirstTransactionAddress != nil {
		out.GetFirstTransactionAddress = overlay.GetFirstTransactionAddress
	}
	if overlay.GetBurnAddress != nil {
		out.GetBurnAddress = overlay.GetBurnAddress
	}
	if overlay.GetLastAddress != nil {
		out.GetLastAddress = overlay.GetLastAddress
	}
	if overlay.GetPreviousAddress != nil {
		out.GetPreviousAddress = overlay.GetPreviousAddress
	}
	if overlay.GetGenesisPublicKey != nil {
		out.GetGenesisPublicKey = overlay.GetGenesisPublicKey
	}
	if overlay.GetTransaction != nil {
		out.GetTransaction = overlay.GetTransaction
	}
	if overlay.GetLastTransaction != nil {
		out.GetLastTransaction = overlay.GetLastTransaction
	}
	if overlay.CallFunction != nil {
		out.CallFunction = overlay.CallFunction
	}
	if overlay.HmacWithStorageNonce != nil {
		out.HmacWithStorageNonce = overlay.HmacWithStorageNonce
	}
	if overlay.SignWithRecovery != nil {
		out.SignWithRecovery = overlay.SignWithRecovery
	}
	if overlay.DecryptWithStorageNonce != nil {
		out.DecryptWithStorageNonce = overlay.DecryptWithStorageNonce
	}
	if overlay.Request != nil {
		out.Request = overlay.Request
	}
	if overlay.RequestMany != nil {
		out.RequestMany = overlay.RequestMany
	}
	return out
}
