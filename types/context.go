package types

import "encoding/json"

// ContractMetadata identifies the contract a call runs as.
type ContractMetadata struct {
	Address Address         `json:"address"`
	Type    TransactionType `json:"type"`
	Genesis Address         `json:"genesis"`
}

// DefaultContractMetadata is used when a call does not override "contract".
func DefaultContractMetadata() ContractMetadata {
	return ContractMetadata{
		Address: ZeroAddress,
		Type:    ContractType,
		Genesis: ZeroAddress,
	}
}

// ExecutionContext is serialized into the arena before every exported
// function invocation. Only State is carried between calls by default.
type ExecutionContext struct {
	Now         int64            `json:"now"`
	Balance     Balance          `json:"balance"`
	Contract    ContractMetadata `json:"contract"`
	State       Value            `json:"state"`
	Transaction *Transaction     `json:"transaction,omitempty"`
	Arguments   *Value           `json:"arguments,omitempty"`
}

// Option keys recognised in an options object.
const (
	OptionState       = "state"
	OptionTransaction = "transaction"
	OptionBalance     = "balance"
	OptionNow         = "now"
	OptionContract    = "contract"
)

// OptionKeys lists every key that marks an object as call options.
var OptionKeys = []string{OptionState, OptionTransaction, OptionBalance, OptionNow, OptionContract}

// Options overrides parts of the default execution context for one call.
// Nil fields keep the default.
type Options struct {
	State       *Value            `json:"state,omitempty"`
	Transaction *Transaction      `json:"transaction,omitempty"`
	Balance     *Balance          `json:"balance,omitempty"`
	Now         *int64            `json:"now,omitempty"`
	Contract    *ContractMetadata `json:"contract,omitempty"`
}

// IsOptions reports whether v is an object holding any option key.
func IsOptions(v Value) bool {
	if !v.IsMap() {
		return false
	}
	for _, k := range OptionKeys {
		if v.Has(k) {
			return true
		}
	}
	return false
}

// OptionsFromValue decodes an options object. Null entries are ignored.
func OptionsFromValue(v Value) (Options, error) {
	var opts Options
	if v.IsNull() {
		return opts, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return opts, err
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, &ProtocolDecodeError{What: "call options", Err: err}
	}
	return opts, nil
}

// Apply writes the set fields of o over ctx.
func (o Options) Apply(ctx *ExecutionContext) {
	if o.State != nil {
		ctx.State = *o.State
	}
	if o.Transaction != nil {
		ctx.Transaction = o.Transaction
	}
	if o.Balance != nil {
		ctx.Balance = *o.Balance
	}
	if o.Now != nil {
		ctx.Now = *o.Now
	}
	if o.Contract != nil {
		ctx.Contract = *o.Contract
	}
}
