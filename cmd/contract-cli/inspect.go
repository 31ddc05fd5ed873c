package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/govm-net/harness/repository"
	"github.com/govm-net/harness/vm"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [wasm-file]",
	Short: "List the functions a contract exports and imports",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var bytecode []byte
		var err error
		if len(args) == 1 {
			bytecode, err = os.ReadFile(args[0])
		} else {
			var build *repository.Build
			build, err = repository.LoadBuild(cfg.Path(cfg.Project))
			if build != nil {
				bytecode = build.Bytecode
			}
		}
		if err != nil {
			return err
		}

		info, err := vm.Inspect(context.Background(), bytecode)
		if err != nil {
			return err
		}

		exports := pterm.TableData{{"Export", "Signature", "Callable"}}
		for _, fn := range info.Exports {
			callable := "yes"
			if fn.Lifecycle {
				callable = "lifecycle"
			}
			exports = append(exports, []string{fn.Name, fn.Signature, callable})
		}
		if err := pterm.DefaultTable.WithHasHeader(true).WithData(exports).Render(); err != nil {
			return err
		}

		imports := pterm.TableData{{"Module", "Import", "Signature"}}
		for _, fn := range info.Imports {
			imports = append(imports, []string{fn.Module, fn.Name, fn.Signature})
		}
		if err := pterm.DefaultTable.WithHasHeader(true).WithData(imports).Render(); err != nil {
			return err
		}

		for _, fn := range info.Unsupported {
			pterm.Warning.Println(fmt.Sprintf("%s.%s is not provided by the harness", fn.Module, fn.Name))
		}
		return nil
	},
}
