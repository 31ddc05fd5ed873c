package vm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"golang.org/x/text/encoding/unicode"

	"github.com/govm-net/harness/types"
)

const (
	// RuntimeNamespace is reserved for the runtime and carries no functions.
	RuntimeNamespace = "env"
	// HostNamespace carries the host functions contracts import.
	HostNamespace = "archethic/env"
)

// rpcRequest is the envelope a module sends through jsonrpc.
type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// hostFail aborts the running call. wazero recovers the panic and returns an
// error wrapping err from the exported function's Call.
func hostFail(err error) {
	panic(err)
}

// instantiateHost registers the import namespaces of c on its runtime.
func (c *Contract) instantiateHost(ctx context.Context) error {
	if _, err := c.runtime.NewHostModuleBuilder(RuntimeNamespace).Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate %s module: %w", RuntimeNamespace, err)
	}

	builder := c.runtime.NewHostModuleBuilder(HostNamespace)

	builder.NewFunctionBuilder().
		WithParameterNames("offset", "length").
		WithFunc(func(_ context.Context, _ api.Module, offset, length uint64) {
			c.hostLog(offset, length)
		}).
		Export("log")

	builder.NewFunctionBuilder().
		WithParameterNames("offset", "value").
		WithFunc(func(_ context.Context, _ api.Module, offset uint64, value uint32) {
			if err := c.arena.StoreByte(offset, byte(value)); err != nil {
				hostFail(err)
			}
		}).
		Export("store_u8")

	builder.NewFunctionBuilder().
		WithParameterNames("offset").
		WithResultNames("value").
		WithFunc(func(_ context.Context, _ api.Module, offset uint64) uint32 {
			b, err := c.arena.LoadByte(offset)
			if err != nil {
				hostFail(err)
			}
			return uint32(b)
		}).
		Export("load_u8")

	builder.NewFunctionBuilder().
		WithResultNames("size").
		WithFunc(func(_ context.Context, _ api.Module) uint64 {
			return uint64(len(c.arena.Input()))
		}).
		Export("input_size")

	builder.NewFunctionBuilder().
		WithParameterNames("length").
		WithResultNames("offset").
		WithFunc(func(_ context.Context, _ api.Module, length uint64) uint64 {
			offset, err := c.arena.Alloc(length)
			if err != nil {
				hostFail(err)
			}
			return offset
		}).
		Export("alloc")

	builder.NewFunctionBuilder().
		WithParameterNames("offset", "length").
		WithFunc(func(_ context.Context, _ api.Module, offset, length uint64) {
			if err := c.arena.SetOutput(offset, length); err != nil {
				hostFail(err)
			}
		}).
		Export("set_output")

	builder.NewFunctionBuilder().
		WithParameterNames("offset", "length").
		WithFunc(func(_ context.Context, _ api.Module, offset, length uint64) {
			if err := c.arena.SetError(offset, length); err != nil {
				hostFail(err)
			}
		}).
		Export("set_error")

	builder.NewFunctionBuilder().
		WithParameterNames("offset", "length").
		WithResultNames("region").
		WithFunc(func(_ context.Context, _ api.Module, offset, length uint64) uint64 {
			region, err := c.hostJSONRPC(offset, length)
			if err != nil {
				hostFail(err)
			}
			return region
		}).
		Export("jsonrpc")

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate %s module: %w", HostNamespace, err)
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, c.runtime); err != nil {
		return fmt.Errorf("failed to instantiate wasi: %w", err)
	}
	return nil
}

func (c *Contract) hostLog(offset, length uint64) {
	raw, err := c.arena.Read(offset, length)
	if err != nil {
		hostFail(err)
	}
	msg, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		hostFail(err)
	}
	c.logger.Info(string(msg))
}

// hostJSONRPC serves one mock request and returns the response region as
// offset<<32 | length.
func (c *Contract) hostJSONRPC(offset, length uint64) (uint64, error) {
	raw, err := c.arena.Read(offset, length)
	if err != nil {
		return 0, err
	}
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return 0, &types.ProtocolDecodeError{What: "jsonrpc request", Err: err}
	}
	if req.Method == "" {
		return 0, &types.ProtocolDecodeError{What: "jsonrpc request", Err: fmt.Errorf("missing method")}
	}
	// an explicit null decodes to "null", only an absent field stays nil
	if req.Params == nil {
		return 0, &types.ProtocolDecodeError{What: "jsonrpc request", Err: fmt.Errorf("missing params")}
	}

	result, err := c.mocks.Dispatch(req.Method, req.Params)
	if err != nil {
		return 0, err
	}
	resp, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s response: %w", req.Method, err)
	}

	region, err := c.arena.Alloc(uint64(len(resp)))
	if err != nil {
		return 0, err
	}
	if err := c.arena.Write(region, resp); err != nil {
		return 0, err
	}
	c.logger.Debug("jsonrpc served", "method", req.Method, "offset", region, "length", len(resp))
	return region<<32 | uint64(len(resp)), nil
}

// newRuntime creates the runtime a contract runs in.
func newRuntime(ctx context.Context, pages uint32) wazero.Runtime {
	cfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(pages).
		WithCloseOnContextDone(true)
	return wazero.NewRuntimeWithConfig(ctx, cfg)
}
