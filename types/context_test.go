package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOptions(t *testing.T) {
	assert.True(t, IsOptions(MustValue(map[string]any{"now": 10})))
	assert.True(t, IsOptions(MustValue(map[string]any{"state": map[string]any{}})))
	assert.False(t, IsOptions(MustValue(map[string]any{"amount": 10})))
	assert.False(t, IsOptions(MustValue([]any{"state"})))
	assert.False(t, IsOptions(String("state")))
}

func TestOptionsApply(t *testing.T) {
	opts, err := OptionsFromValue(MustValue(map[string]any{
		"now":     1700000000,
		"balance": map[string]any{"uco": 10, "tokens": []any{}},
		"state":   nil,
	}))
	require.NoError(t, err)
	assert.Nil(t, opts.State)

	ctx := ExecutionContext{State: MustValue(map[string]any{"keep": true})}
	opts.Apply(&ctx)
	assert.Equal(t, int64(1700000000), ctx.Now)
	assert.Equal(t, uint64(10), ctx.Balance.UCO)
	assert.Equal(t, `{"keep":true}`, ctx.State.String())
}

func TestOptionsFromValueRejectsBadShape(t *testing.T) {
	_, err := OptionsFromValue(MustValue(map[string]any{"now": "soon"}))
	var decodeErr *ProtocolDecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestExecutionContextWireFormat(t *testing.T) {
	ctx := ExecutionContext{
		Contract: DefaultContractMetadata(),
		State:    Object(),
	}
	data, err := json.Marshal(ctx)
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Contains(t, wire, "now")
	assert.Contains(t, wire, "balance")
	assert.Contains(t, wire, "contract")
	assert.Contains(t, wire, "state")
	assert.NotContains(t, wire, "transaction")
	assert.NotContains(t, wire, "arguments")
	assert.JSONEq(t, `{"address":"`+string(ZeroAddress)+`","type":"contract","genesis":"`+string(ZeroAddress)+`"}`, string(wire["contract"]))
}

func TestTransactionStateOutput(t *testing.T) {
	state := MustValue(map[string]any{"counter": 1})
	tx := &Transaction{ValidationStamp: &ValidationStamp{LedgerOperations: LedgerOperations{
		UnspentOutputs: []UnspentOutput{{Type: UTXOUCO, Amount: 5}, {Type: UTXOState, State: &state}},
	}}}
	got, ok := tx.StateOutput()
	require.True(t, ok)
	assert.True(t, got.Equal(state))

	clone := tx.Clone()
	clone.ValidationStamp.LedgerOperations.UnspentOutputs[0].Amount = 9
	assert.Equal(t, uint64(5), tx.ValidationStamp.LedgerOperations.UnspentOutputs[0].Amount)
}
