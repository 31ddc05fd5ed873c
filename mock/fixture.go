package mock

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/govm-net/harness/types"
)

// Load builds a table of fixed responses from a JSON object keyed by method
// name. Each value is what the stand-in returns: a plain value for wrapped
// methods, a full Result for getTransaction, getLastTransaction and
// callFunction.
func Load(r io.Reader) (*Table, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode mock fixtures: %w", err)
	}
	t := &Table{}
	for name, data := range raw {
		if err := t.setFixture(Method(name), data); err != nil {
			return nil, fmt.Errorf("mock fixture %q: %w", name, err)
		}
	}
	return t, nil
}

// LoadFile reads fixtures from path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mock fixtures: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (t *Table) setFixture(m Method, data json.RawMessage) error {
	switch m {
	case GetBalance:
		var v types.Balance
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.GetBalance = func(types.Address) types.Balance { return v }
	case GetGenesisAddress, GetFirstTransactionAddress, GetLastAddress:
		var v types.Address
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		fn := func(types.Address) types.Address { return v }
		switch m {
		case GetGenesisAddress:
			t.GetGenesisAddress = fn
		case GetFirstTransactionAddress:
			t.GetFirstTransactionAddress = fn
		default:
			t.GetLastAddress = fn
		}
	case GetBurnAddress:
		var v types.Address
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.GetBurnAddress = func() types.Address { return v }
	case GetPreviousAddress:
		var v types.Address
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.GetPreviousAddress = func(types.PublicKey) types.Address { return v }
	case GetGenesisPublicKey:
		var v types.PublicKey
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.GetGenesisPublicKey = func(types.PublicKey) types.PublicKey { return v }
	case GetTransaction, GetLastTransaction:
		var v types.Result[types.Transaction]
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		fn := func(types.Address) types.Result[types.Transaction] { return v }
		if m == GetTransaction {
			t.GetTransaction = fn
		} else {
			t.GetLastTransaction = fn
		}
	case CallFunction:
		var v types.Result[types.Value]
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.CallFunction = func(types.Address, string, types.Value) types.Result[types.Value] { return v }
	case HmacWithStorageNonce:
		var v types.Bytes
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.HmacWithStorageNonce = func([]byte, types.HashFunction) []byte { return v }
	case SignWithRecovery:
		var v types.Bytes
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.SignWithRecovery = func([]byte) []byte { return v }
	case DecryptWithStorageNonce:
		var v types.Bytes
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.DecryptWithStorageNonce = func([]byte) []byte { return v }
	case Request:
		var v types.HTTPResponse
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.Request = func(types.HTTPRequest) types.HTTPResponse { return v }
	case RequestMany:
		var v []types.HTTPResponse
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		t.RequestMany = func([]types.HTTPRequest) []types.HTTPResponse { return v }
	default:
		return fmt.Errorf("unknown method")
	}
	return nil
}
