// Package vm loads contract bytecode into a wazero runtime and runs its
// exported functions against a host-side arena, the way the chain executes
// them, with outbound calls answered by mocks.
package vm

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/govm-net/harness/mock"
	"github.com/govm-net/harness/security"
	"github.com/govm-net/harness/types"
)

// Lifecycle exports. They are never callable through Call.
const (
	OnInit    = "onInit"
	OnUpgrade = "onUpgrade"
	OnInherit = "onInherit"
)

var reserved = map[string]bool{
	OnInit:    true,
	OnUpgrade: true,
	OnInherit: true,
}

var (
	ErrEmptyBytecode    = errors.New("empty bytecode")
	ErrUnknownFunction  = errors.New("unknown function")
	ErrReservedFunction = errors.New("reserved function")
	ErrClosed           = errors.New("contract closed")
)

// Function is an exported contract function bound to its contract.
type Function func(ctx context.Context, args ...any) (types.Value, error)

type config struct {
	mocks       *mock.Table
	balance     *types.Balance
	transaction *types.Transaction
	init        bool
	logger      *slog.Logger
	limits      security.Limits
}

// Option configures Load and Upgrade.
type Option func(*config)

// WithMocks sets the stand-ins that answer jsonrpc requests.
func WithMocks(table *mock.Table) Option {
	return func(c *config) { c.mocks = table }
}

// WithBalance sets the balance calls see when they do not override it.
func WithBalance(balance types.Balance) Option {
	return func(c *config) { c.balance = &balance }
}

// WithTransaction sets the transaction onInit runs with.
func WithTransaction(tx *types.Transaction) Option {
	return func(c *config) { c.transaction = tx }
}

// WithoutInit skips onInit.
func WithoutInit() Option {
	return func(c *config) { c.init = false }
}

// WithLogger sets the logger contract log output goes to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLimits bounds the resources the contract may use.
func WithLimits(limits security.Limits) Option {
	return func(c *config) { c.limits = limits }
}

// Contract is one loaded module with its persisted state. Calls on a
// contract are serialized. A mock must not call back into the contract that
// issued the request.
type Contract struct {
	id       string
	cfg      config
	limits   security.Limits
	bytecode []byte
	logger   *slog.Logger

	runtime   wazero.Runtime
	module    api.Module
	exports   map[string]bool
	functions []string

	arena *Arena
	mocks *mock.Dispatcher

	mu          sync.Mutex
	state       types.Value
	transaction *types.Transaction
	closed      bool
}

// Load instantiates bytecode and, unless WithoutInit is given, runs onInit.
func Load(ctx context.Context, bytecode []byte, opts ...Option) (*Contract, error) {
	cfg := config{init: true, logger: slog.Default(), limits: security.DefaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return load(ctx, bytecode, cfg)
}

func load(ctx context.Context, bytecode []byte, cfg config) (*Contract, error) {
	if len(bytecode) == 0 {
		return nil, ErrEmptyBytecode
	}
	limits := cfg.limits.Normalize()
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	c := &Contract{
		id:       id,
		cfg:      cfg,
		limits:   limits,
		bytecode: append([]byte(nil), bytecode...),
		logger:   cfg.logger.With("contract", id),
		arena:    NewArena(limits.MaxArenaBytes),
		mocks:    mock.NewDispatcher(cfg.mocks),
		state:    types.Object(),
		exports:  make(map[string]bool),
	}

	c.runtime = newRuntime(ctx, limits.MemoryLimitPages)
	if err := c.instantiate(ctx); err != nil {
		c.runtime.Close(ctx)
		return nil, err
	}

	if cfg.init && c.exports[OnInit] {
		if err := c.runInit(ctx); err != nil {
			c.runtime.Close(ctx)
			return nil, fmt.Errorf("%s failed: %w", OnInit, err)
		}
	}
	c.logger.Debug("contract loaded", "functions", c.functions, "size", len(bytecode))
	return c, nil
}

func (c *Contract) instantiate(ctx context.Context) error {
	if err := c.instantiateHost(ctx); err != nil {
		return err
	}
	compiled, err := c.runtime.CompileModule(ctx, c.bytecode)
	if err != nil {
		return fmt.Errorf("failed to compile module: %w", err)
	}
	for name := range compiled.ExportedFunctions() {
		c.exports[name] = true
		if !reserved[name] {
			c.functions = append(c.functions, name)
		}
	}
	sort.Strings(c.functions)

	modCfg := wazero.NewModuleConfig().
		WithName("contract-" + c.id).
		WithStartFunctions("_initialize").
		WithStdout(os.Stdout).
		WithStderr(os.Stderr)
	module, err := c.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return fmt.Errorf("failed to instantiate module: %w", err)
	}
	c.module = module
	return nil
}

// lifecycleContext is the context lifecycle exports run with.
func lifecycleContext(state types.Value, tx *types.Transaction) types.ExecutionContext {
	return types.ExecutionContext{
		Balance:     types.Balance{},
		Contract:    types.DefaultContractMetadata(),
		State:       state,
		Transaction: tx,
	}
}

func (c *Contract) runInit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, err := c.invoke(ctx, OnInit, lifecycleContext(types.Object(), c.cfg.transaction))
	if err != nil {
		return err
	}
	if state, ok := out.Get("state"); ok && !state.IsNull() {
		c.state = state
	}
	return nil
}

// invoke runs one export with ectx as input. c.mu must be held.
func (c *Contract) invoke(ctx context.Context, name string, ectx types.ExecutionContext) (types.Value, error) {
	if c.closed {
		return types.Null(), ErrClosed
	}
	input, err := json.Marshal(ectx)
	if err != nil {
		return types.Null(), fmt.Errorf("failed to encode context: %w", err)
	}
	c.arena.Reset()
	if err := c.arena.SetInput(input); err != nil {
		return types.Null(), err
	}

	callCtx, cancel := c.limits.WithDeadline(ctx)
	defer cancel()
	fn := c.module.ExportedFunction(name)
	if fn == nil {
		return types.Null(), fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	results, err := fn.Call(callCtx)
	if err != nil {
		if callCtx.Err() != nil {
			// the runtime closed the module when the context ended
			c.closed = true
		}
		if rec := c.arena.CapturedError(); rec != nil {
			c.logger.Debug("contract reported error", "function", name, "error", rec.Message, "file", rec.FileName, "line", rec.Line)
			return types.Null(), rec
		}
		return types.Null(), err
	}
	if len(results) > 0 && results[0] != 0 {
		// a non-zero return means the function produced no result
		return types.Null(), nil
	}
	return c.arena.DecodeOutput()
}

func (c *Contract) defaultContext() types.ExecutionContext {
	balance := types.Balance{}
	if c.cfg.balance != nil {
		balance = *c.cfg.balance
	}
	return types.ExecutionContext{
		Balance:  balance,
		Contract: types.DefaultContractMetadata(),
		State:    c.state.Clone(),
	}
}

// Call runs the exported function name. Arguments follow the options rule
// of buildContext.
func (c *Contract) Call(ctx context.Context, name string, args ...any) (types.Value, error) {
	if reserved[name] {
		return types.Null(), fmt.Errorf("%w: %s", ErrReservedFunction, name)
	}
	if !c.exports[name] {
		return types.Null(), fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ectx, err := buildContext(c.defaultContext(), args)
	if err != nil {
		return types.Null(), err
	}
	out, err := c.invoke(ctx, name, ectx)
	if err != nil {
		return types.Null(), err
	}
	return c.mergeResult(out)
}

// Function returns name bound to c.
func (c *Contract) Function(name string) (Function, error) {
	if reserved[name] {
		return nil, fmt.Errorf("%w: %s", ErrReservedFunction, name)
	}
	if !c.exports[name] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return func(ctx context.Context, args ...any) (types.Value, error) {
		return c.Call(ctx, name, args...)
	}, nil
}

// Functions lists the callable exports, sorted.
func (c *Contract) Functions() []string {
	return append([]string(nil), c.functions...)
}

// HasExport reports whether the module exports a function called name,
// reserved ones included.
func (c *Contract) HasExport(name string) bool {
	return c.exports[name]
}

// ID names the instance in logs.
func (c *Contract) ID() string { return c.id }

// Mocks returns the dispatcher serving the contract's jsonrpc requests.
func (c *Contract) Mocks() *mock.Dispatcher { return c.mocks }

// Bytecode returns a copy of the loaded module.
func (c *Contract) Bytecode() []byte {
	return append([]byte(nil), c.bytecode...)
}

// State returns a copy of the persisted state.
func (c *Contract) State() types.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// SetState replaces the persisted state.
func (c *Contract) SetState(state types.Value) {
	c.mu.Lock()
	c.state = state.Clone()
	c.mu.Unlock()
}

// Transaction returns the pending transaction set by the last result, if any.
func (c *Contract) Transaction() *types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transaction.Clone()
}

// SetTransaction replaces the pending transaction.
func (c *Contract) SetTransaction(tx *types.Transaction) {
	c.mu.Lock()
	c.transaction = tx.Clone()
	c.mu.Unlock()
}

// Upgrade loads newBytecode as a new contract carrying c's options plus
// opts, with onInit skipped. The old contract's onUpgrade migrates its state
// into the new one and the new contract's onInherit then runs on that state.
// c itself is left unchanged.
func (c *Contract) Upgrade(ctx context.Context, newBytecode []byte, tx *types.Transaction, opts ...Option) (*Contract, error) {
	cfg := c.cfg
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.init = false
	next, err := load(ctx, newBytecode, cfg)
	if err != nil {
		return nil, err
	}

	if c.exports[OnUpgrade] {
		c.mu.Lock()
		out, err := c.invoke(ctx, OnUpgrade, lifecycleContext(c.state.Clone(), tx))
		c.mu.Unlock()
		if err != nil {
			next.Close(ctx)
			return nil, fmt.Errorf("%s failed: %w", OnUpgrade, err)
		}
		if state, ok := out.Get("state"); ok && !state.IsNull() {
			next.state = state
		}
	}

	if next.exports[OnInherit] {
		next.mu.Lock()
		_, err := next.invoke(ctx, OnInherit, lifecycleContext(next.state.Clone(), tx))
		next.mu.Unlock()
		if err != nil {
			next.Close(ctx)
			return nil, fmt.Errorf("%s failed: %w", OnInherit, err)
		}
	}
	c.logger.Info("contract upgraded", "next", next.id)
	return next, nil
}

// ToTransaction renders the contract as the transaction that would carry
// it: the pending transaction when set, with the hex bytecode as code when
// none is given and a state output holding the current state.
func (c *Contract) ToTransaction() *types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state.Clone()
	stamp := &types.ValidationStamp{LedgerOperations: types.LedgerOperations{
		UnspentOutputs: []types.UnspentOutput{{Type: types.UTXOState, From: "", State: &state}},
	}}
	code := hex.EncodeToString(c.bytecode)

	tx := c.transaction.Clone()
	if tx == nil {
		tx = &types.Transaction{}
	}
	if tx.Type == "" {
		tx.Type = types.ContractType
	}
	if tx.Data.Code == "" {
		tx.Data.Code = code
	}
	if tx.ValidationStamp == nil {
		tx.ValidationStamp = stamp
	}
	return tx
}

// Close releases the runtime. The contract cannot be called afterwards.
func (c *Contract) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runtime == nil {
		return nil
	}
	c.closed = true
	err := c.runtime.Close(ctx)
	c.runtime = nil
	return err
}
