package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/deploy"
	"github.com/govm-net/harness/mock"
	"github.com/govm-net/harness/repository"
	"github.com/govm-net/harness/types"
	"github.com/govm-net/harness/vm"
)

var (
	wasmFile     string
	contractAddr string
	optionsJSON  string
	stateJSON    string
	mocksFile    string
	useLedger    bool
	useHTTP      bool
	skipInit     bool
)

var callCmd = &cobra.Command{
	Use:   "call <function> [argument-json]",
	Short: "Run an exported contract function",
	Long: `Load a contract and run one of its exported functions.
The bytecode comes from --wasm, from a deployed --address, or from the
project's dist/contract.wasm.
Example: contract-cli call increment '{"step":2}' --options '{"now":1700000000}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runCall(ctx, args[0], args[1:])
	},
}

func init() {
	callCmd.Flags().StringVarP(&wasmFile, "wasm", "w", "", "WASM file to load")
	callCmd.Flags().StringVarP(&contractAddr, "address", "a", "", "Address of a deployed contract to load")
	callCmd.Flags().StringVarP(&optionsJSON, "options", "o", "", "Call options as JSON (state, transaction, balance, now, contract)")
	callCmd.Flags().StringVar(&stateJSON, "state", "", "State to start from, as JSON")
	callCmd.Flags().StringVarP(&mocksFile, "mocks", "m", "", "JSON file of mock responses keyed by method")
	callCmd.Flags().BoolVar(&useLedger, "ledger", false, "Answer chain lookups from the configured chain")
	callCmd.Flags().BoolVar(&useHTTP, "http", false, "Perform the contract's HTTP requests")
	callCmd.Flags().BoolVar(&skipInit, "no-init", false, "Do not run onInit")
	callCmd.MarkFlagsMutuallyExclusive("wasm", "address")
}

// lazyChain opens the chain the first time it is needed.
type lazyChain struct {
	client api.ChainClient
}

func (l *lazyChain) get() (api.ChainClient, error) {
	if l.client != nil {
		return l.client, nil
	}
	client, err := openChain()
	if err != nil {
		return nil, err
	}
	l.client = client
	return client, nil
}

func (l *lazyChain) Close() {
	if l.client != nil {
		l.client.Close()
	}
}

func loadBytecode(ctx context.Context, chainConn *lazyChain) ([]byte, error) {
	switch {
	case wasmFile != "":
		return os.ReadFile(wasmFile)
	case contractAddr != "":
		address := types.Address(contractAddr)
		repo, err := openRepository()
		if err != nil {
			return nil, err
		}
		code, err := repo.GetCode(address)
		if err == nil {
			return code.Code, nil
		}
		if !errors.Is(err, repository.ErrNotDeployed) {
			return nil, err
		}
		client, err := chainConn.get()
		if err != nil {
			return nil, err
		}
		tx, err := client.Transaction(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch contract %s: %w", address, err)
		}
		bytecode, _, err := deploy.DecodeContract(tx)
		return bytecode, err
	default:
		build, err := repository.LoadBuild(cfg.Path(cfg.Project))
		if err != nil {
			return nil, err
		}
		return build.Bytecode, nil
	}
}

func buildMocks(chainConn *lazyChain) (*mock.Table, error) {
	nonce := cfg.SeedBytes()
	if nonce == nil {
		nonce = []byte("harness")
	}
	table := mock.NewCrypto(nonce).Table()
	if useLedger {
		client, err := chainConn.get()
		if err != nil {
			return nil, err
		}
		table = table.With(mock.LedgerTable(client))
	}
	if useHTTP {
		table = table.With(mock.LiveHTTP(nil))
	}
	if mocksFile != "" {
		fixtures, err := mock.LoadFile(mocksFile)
		if err != nil {
			return nil, err
		}
		table = table.With(fixtures)
	}
	return table, nil
}

func callArguments(args []string) ([]any, error) {
	var out []any
	if len(args) > 0 {
		arg, err := types.ParseValue([]byte(args[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid argument: %w", err)
		}
		out = append(out, arg)
	}
	if optionsJSON != "" {
		v, err := types.ParseValue([]byte(optionsJSON))
		if err != nil {
			return nil, fmt.Errorf("invalid options: %w", err)
		}
		opts, err := types.OptionsFromValue(v)
		if err != nil {
			return nil, err
		}
		out = append(out, opts)
	}
	return out, nil
}

func runCall(ctx context.Context, function string, rest []string) error {
	chainConn := &lazyChain{}
	defer chainConn.Close()

	bytecode, err := loadBytecode(ctx, chainConn)
	if err != nil {
		return err
	}
	table, err := buildMocks(chainConn)
	if err != nil {
		return err
	}
	args, err := callArguments(rest)
	if err != nil {
		return err
	}

	opts := []vm.Option{vm.WithMocks(table), vm.WithLimits(cfg.Limits)}
	if skipInit {
		opts = append(opts, vm.WithoutInit())
	}
	contract, err := vm.Load(ctx, bytecode, opts...)
	if err != nil {
		return err
	}
	defer contract.Close(ctx)

	if stateJSON != "" {
		state, err := types.ParseValue([]byte(stateJSON))
		if err != nil {
			return fmt.Errorf("invalid state: %w", err)
		}
		contract.SetState(state)
	}

	result, err := contract.Call(ctx, function, args...)
	if err != nil {
		var rec *vm.ErrorRecord
		if errors.As(err, &rec) {
			pterm.Error.Println(rec.Stack())
		}
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	pterm.Success.Printf("%s returned\n", function)
	fmt.Println(string(out))

	if calls := contract.Mocks().Calls(); len(calls) > 0 {
		data := pterm.TableData{{"#", "Method", "Params"}}
		for i, c := range calls {
			data = append(data, []string{fmt.Sprint(i + 1), string(c.Method), string(c.Params)})
		}
		return pterm.DefaultTable.WithHasHeader(true).WithData(data).Render()
	}
	return nil
}
