package vm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// FunctionInfo describes one exported or imported function.
type FunctionInfo struct {
	Module    string // import namespace, empty for exports
	Name      string
	Signature string
	Lifecycle bool
}

// ModuleInfo is what Inspect learns from bytecode without running it.
type ModuleInfo struct {
	Exports []FunctionInfo
	Imports []FunctionInfo
	// Unsupported lists imports no host namespace provides.
	Unsupported []FunctionInfo
}

var hostImports = map[string]bool{
	"log": true, "store_u8": true, "load_u8": true, "input_size": true,
	"alloc": true, "set_output": true, "set_error": true, "jsonrpc": true,
}

func signature(def api.FunctionDefinition) string {
	names := func(types []api.ValueType) string {
		out := make([]string, len(types))
		for i, t := range types {
			out[i] = api.ValueTypeName(t)
		}
		return strings.Join(out, ", ")
	}
	return fmt.Sprintf("(%s) -> (%s)", names(def.ParamTypes()), names(def.ResultTypes()))
}

// Inspect compiles bytecode and lists its exported and imported functions.
func Inspect(ctx context.Context, bytecode []byte) (*ModuleInfo, error) {
	if len(bytecode) == 0 {
		return nil, ErrEmptyBytecode
	}
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, bytecode)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	info := &ModuleInfo{}
	for name, def := range compiled.ExportedFunctions() {
		info.Exports = append(info.Exports, FunctionInfo{Name: name, Signature: signature(def), Lifecycle: reserved[name]})
	}
	sort.Slice(info.Exports, func(i, j int) bool { return info.Exports[i].Name < info.Exports[j].Name })

	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		fn := FunctionInfo{Module: module, Name: name, Signature: signature(def)}
		info.Imports = append(info.Imports, fn)
		supported := (module == HostNamespace && hostImports[name]) || module == wasi_snapshot_preview1.ModuleName
		if !supported {
			info.Unsupported = append(info.Unsupported, fn)
		}
	}
	return info, nil
}
