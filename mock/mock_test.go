package mock

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/harness/types"
)

func dispatchJSON(t *testing.T, d *Dispatcher, method, params string) string {
	t.Helper()
	out, err := d.Dispatch(method, json.RawMessage(params))
	require.NoError(t, err)
	data, err := json.Marshal(out)
	require.NoError(t, err)
	return string(data)
}

func TestDispatchWrapsPlainValues(t *testing.T) {
	d := NewDispatcher(&Table{
		GetBalance: func(a types.Address) types.Balance {
			return types.Balance{UCO: 500}
		},
		GetBurnAddress: func() types.Address { return "00AA" },
		GetGenesisAddress: func(a types.Address) types.Address {
			return "G" + a
		},
	})

	assert.JSONEq(t, `{"ok":{"value":{"uco":500,"tokens":[]}},"error":null}`,
		dispatchJSON(t, d, "getBalance", `{"address":"01"}`))
	assert.JSONEq(t, `{"ok":{"value":"00AA"},"error":null}`,
		dispatchJSON(t, d, "getBurnAddress", ``))
	assert.JSONEq(t, `{"ok":{"value":"G01"},"error":null}`,
		dispatchJSON(t, d, "getGenesisAddress", `{"address":"01"}`))

	calls := d.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, GetBalance, calls[0].Method)
	assert.JSONEq(t, `{"address":"01"}`, string(calls[0].Params))

	d.Reset()
	assert.Empty(t, d.Calls())
}

func TestDispatchPassesResultsThrough(t *testing.T) {
	d := NewDispatcher(&Table{
		GetTransaction: func(a types.Address) types.Result[types.Transaction] {
			return types.Err[types.Transaction]("not found")
		},
		CallFunction: func(a types.Address, fn string, args types.Value) types.Result[types.Value] {
			return types.Ok(types.Array(types.String(fn), args))
		},
	})

	assert.JSONEq(t, `{"ok":null,"error":"not found"}`,
		dispatchJSON(t, d, "getTransaction", `{"address":"01"}`))
	assert.JSONEq(t, `{"ok":{"value":["add",[1,2]]},"error":null}`,
		dispatchJSON(t, d, "callFunction", `{"address":"01","functionName":"add","args":[1,2]}`))
}

func TestDispatchBytesAsHex(t *testing.T) {
	d := NewDispatcher(&Table{
		SignWithRecovery: func(data []byte) []byte { return append(data, 0xff) },
		HmacWithStorageNonce: func(data []byte, fn types.HashFunction) []byte {
			assert.Equal(t, types.SHA256, fn)
			return data
		},
	})
	assert.JSONEq(t, `{"ok":{"value":"01ff"},"error":null}`,
		dispatchJSON(t, d, "signWithRecovery", `{"data":"01"}`))
	assert.JSONEq(t, `{"ok":{"value":"beef"},"error":null}`,
		dispatchJSON(t, d, "hmacWithStorageNonce", `{"data":"beef","hashFunction":0}`))
}

func TestDispatchRequestMany(t *testing.T) {
	d := NewDispatcher(&Table{
		RequestMany: func(reqs []types.HTTPRequest) []types.HTTPResponse { return nil },
	})
	assert.JSONEq(t, `{"ok":{"value":[]},"error":null}`,
		dispatchJSON(t, d, "requestMany", `[]`))
}

func TestDispatchMissingMock(t *testing.T) {
	d := NewDispatcher(&Table{})
	_, err := d.Dispatch("getBalance", json.RawMessage(`{"address":"01"}`))
	var missing *MissingMockError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "getBalance", missing.Method)
	assert.EqualError(t, err, "missing mock for method: getBalance")

	_, err = NewDispatcher(nil).Dispatch("nope", nil)
	assert.EqualError(t, err, "missing mock for method: nope")
}

func TestDispatchBadParams(t *testing.T) {
	d := NewDispatcher(&Table{GetBalance: func(types.Address) types.Balance { return types.Balance{} }})
	_, err := d.Dispatch("getBalance", json.RawMessage(`[1]`))
	var decode *types.ProtocolDecodeError
	require.ErrorAs(t, err, &decode)
	assert.Equal(t, "getBalance params", decode.What)
}

func TestTableWith(t *testing.T) {
	base := &Table{
		GetBurnAddress: func() types.Address { return "01" },
		GetBalance:     func(types.Address) types.Balance { return types.Balance{UCO: 1} },
	}
	merged := base.With(&Table{GetBalance: func(types.Address) types.Balance { return types.Balance{UCO: 2} }})

	assert.Equal(t, uint64(2), merged.GetBalance("").UCO)
	assert.Equal(t, types.Address("01"), merged.GetBurnAddress())
	assert.Equal(t, uint64(1), base.GetBalance("").UCO)

	assert.True(t, merged.Has(GetBurnAddress))
	assert.False(t, merged.Has(Request))
	assert.False(t, (*Table)(nil).Has(GetBalance))
	assert.NotNil(t, (*Table)(nil).With(nil))
}
