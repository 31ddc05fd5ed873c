package vm

import (
	"errors"
	"fmt"

	"github.com/govm-net/harness/types"
)

// ErrTooManyArguments is returned when a call passes more than an argument
// and an options object.
var ErrTooManyArguments = errors.New("too many arguments")

// asOptions reports whether arg is an options object and decodes it.
func asOptions(arg any) (types.Options, bool, error) {
	switch o := arg.(type) {
	case types.Options:
		return o, true, nil
	case *types.Options:
		if o == nil {
			return types.Options{}, false, nil
		}
		return *o, true, nil
	}
	v, err := types.ValueOf(arg)
	if err != nil {
		return types.Options{}, false, err
	}
	if !types.IsOptions(v) {
		return types.Options{}, false, nil
	}
	opts, err := types.OptionsFromValue(v)
	return opts, true, err
}

// secondOptions decodes the options passed after an argument. Anything that
// is not an object carries no override.
func secondOptions(arg any) (types.Options, error) {
	if opts, ok, err := asOptions(arg); ok || err != nil {
		return opts, err
	}
	v, err := types.ValueOf(arg)
	if err != nil {
		return types.Options{}, err
	}
	if !v.IsMap() {
		return types.Options{}, nil
	}
	return types.OptionsFromValue(v)
}

// buildContext resolves the positional arguments of a call into the context
// serialized for the module.
//
// With a leading options object the call carries no argument of its own and
// arguments is an empty object. Otherwise the first value is the argument
// and a second value, when present, overrides the context.
func buildContext(base types.ExecutionContext, args []any) (types.ExecutionContext, error) {
	ctx := base
	if len(args) > 2 {
		return ctx, fmt.Errorf("%w: got %d, want at most 2", ErrTooManyArguments, len(args))
	}
	if len(args) == 0 {
		return ctx, nil
	}

	opts, isOpts, err := asOptions(args[0])
	if err != nil {
		return ctx, err
	}
	if isOpts {
		opts.Apply(&ctx)
		empty := types.Object()
		ctx.Arguments = &empty
		return ctx, nil
	}

	arg, err := types.ValueOf(args[0])
	if err != nil {
		return ctx, err
	}
	ctx.Arguments = &arg
	if len(args) == 2 {
		opts, err := secondOptions(args[1])
		if err != nil {
			return ctx, err
		}
		opts.Apply(&ctx)
	}
	return ctx, nil
}

// mergeResult applies a function result to the contract. A map result
// carrying a non-null state or transaction replaces both fields and the
// call returns {state, transaction}; anything else is returned unchanged.
func (c *Contract) mergeResult(result types.Value) (types.Value, error) {
	state, hasState := result.Get("state")
	txValue, hasTx := result.Get("transaction")
	hasState = hasState && !state.IsNull()
	hasTx = hasTx && !txValue.IsNull()
	if !hasState && !hasTx {
		return result, nil
	}

	var tx *types.Transaction
	if hasTx {
		tx = &types.Transaction{}
		if err := txValue.Decode(tx); err != nil {
			return types.Null(), &types.ProtocolDecodeError{What: "result transaction", Err: err}
		}
	}
	c.state = state.Clone()
	c.transaction = tx

	return types.Map(map[string]types.Value{
		"state":       state,
		"transaction": txValue,
	}), nil
}
