package mock

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/govm-net/harness/types"
)

// MissingMockError is returned when a contract calls a method the table does
// not provide.
type MissingMockError struct {
	Method string
}

func (e *MissingMockError) Error() string {
	return fmt.Sprintf("missing mock for method: %s", e.Method)
}

// Call records one dispatched request.
type Call struct {
	Method Method
	Params json.RawMessage
}

// Dispatcher resolves jsonrpc requests against a Table and keeps a trace of
// the calls it served.
type Dispatcher struct {
	table *Table

	mu    sync.Mutex
	calls []Call
}

// NewDispatcher creates a dispatcher over table. A nil table mocks nothing.
func NewDispatcher(table *Table) *Dispatcher {
	return &Dispatcher{table: table}
}

// Table returns the stand-ins the dispatcher serves.
func (d *Dispatcher) Table() *Table { return d.table }

// Calls returns the requests dispatched so far, oldest first.
func (d *Dispatcher) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Reset forgets the recorded calls.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.calls = nil
	d.mu.Unlock()
}

func (d *Dispatcher) record(m Method, params json.RawMessage) {
	d.mu.Lock()
	d.calls = append(d.calls, Call{Method: m, Params: append(json.RawMessage(nil), params...)})
	d.mu.Unlock()
}

type addressParams struct {
	Address types.Address `json:"address"`
}

type previousPublicKeyParams struct {
	PreviousPublicKey types.PublicKey `json:"previousPublicKey"`
}

type publicKeyParams struct {
	PublicKey types.PublicKey `json:"publicKey"`
}

type callFunctionParams struct {
	Address      types.Address `json:"address"`
	FunctionName string        `json:"functionName"`
	Args         types.Value   `json:"args"`
}

type hmacParams struct {
	Data         types.Bytes        `json:"data"`
	HashFunction types.HashFunction `json:"hashFunction"`
}

type dataParams struct {
	Data types.Bytes `json:"data"`
}

type cipherParams struct {
	Cipher types.Bytes `json:"cipher"`
}

func decodeParams(m Method, raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &types.ProtocolDecodeError{What: fmt.Sprintf("%s params", m), Err: err}
	}
	return nil
}

// Dispatch runs the stand-in for method and returns the value to serialize
// back to the module. Results from GetTransaction, GetLastTransaction and
// CallFunction are returned as the stand-in produced them; every other value
// is wrapped in types.Ok.
func (d *Dispatcher) Dispatch(method string, params json.RawMessage) (any, error) {
	m := Method(method)
	if !d.table.Has(m) {
		slog.Debug("mock not provided", "method", method)
		return nil, &MissingMockError{Method: method}
	}
	d.record(m, params)
	t := d.table

	switch m {
	case GetBalance:
		var p addressParams
		if err := decodeParams(m, params, &p); err != nil {
			return nil, err
		}
		return types.Ok(t.GetBalance(p.Address)), nil
	case GetGenesisAddress, GetFirstTransactionAddress, GetLastAddress:
		var p addressParams
		if err := decodeParams(m, params, &p); err != nil {
			return nil, err
		}
		fn := t.GetGenesisAddress
		switch m {
		case GetFirstTransactionAddress:
			fn = t.GetFirstTransactionAddress
		case GetLastAddress:
			fn = t.GetLastAddress
		}
		return types.Ok(fn(p.Address)), nil
	case GetBurnAddress:
		return types.Ok(t.GetBurnAddress()), nil
	case GetPreviousAddress:
		var p previousPublicKeyParams
		if err := decodeParams(m, params, &p); err != nil {
			return nil, err
		}
		return types.Ok(t.GetPreviousAddress(p.PreviousPublicKey)), nil
	case GetGenesisPublicKey:
		var p publicKeyParams
		if err := decodeParams(m, params, &p); err != nil {
			return nil, err
		}
		return types.Ok(t.GetGenesisPublicKey(p.PublicKey)), nil
	case GetTransaction, GetLastTransaction:
		var p addressParams
		if err := decodeParams(m, params, &p); err != nil {
			return nil, err
		}
		if m == GetTransaction {
			return t.GetTransaction(p.Address), nil
		}
		return t.GetLastTransaction(p.Address), nil
	case CallFunction:
		var p callFunctionParams
		if err := decodeParams(m, params, &p); err != nil {
			return nil, err
		}
		return t.CallFunction(p.Address, p.FunctionName, p.Args), nil
	case HmacWithStorageNonce:
		var p hmacParams
		if err := decodeParams(m, params, &p); err != nil {
			return nil, err
		}
		return types.Ok(types.Bytes(t.HmacWithStorageNonce(p.Data, p.HashFunction))), nil
	case SignWithRecovery:
		var p dataParams
		if err := decodeParams(m, params, &p); err != nil {
			return nil, err
		}
		return types.Ok(types.Bytes(t.SignWithRecovery(p.Data))), nil
	case DecryptWithStorageNonce:
		var p cipherParams
		if err := decodeParams(m, params, &p); err != nil {
			return nil, err
		}
		return types.Ok(types.Bytes(t.DecryptWithStorageNonce(p.Cipher))), nil
	case Request:
		var req types.HTTPRequest
		if err := decodeParams(m, params, &req); err != nil {
			return nil, err
		}
		return types.Ok(t.Request(req)), nil
	case RequestMany:
		var reqs []types.HTTPRequest
		if err := decodeParams(m, params, &reqs); err != nil {
			return nil, err
		}
		resps := t.RequestMany(reqs)
		if resps == nil {
			resps = []types.HTTPResponse{}
		}
		return types.Ok(resps), nil
	}
	return nil, &MissingMockError{Method: method}
}
