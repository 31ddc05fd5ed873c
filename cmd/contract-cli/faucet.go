package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/chain"
	"github.com/govm-net/harness/types"
)

var faucetAmount uint64

var faucetCmd = &cobra.Command{
	Use:   "faucet [address]",
	Short: "Credit UCO to an address on the local chain",
	Long: `Credit UCO to an address on the local chain. Without an address the
configured seed's genesis address is funded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, err := openChain()
		if err != nil {
			return err
		}
		defer client.Close()

		faucet, ok := client.(api.Faucet)
		if !ok {
			return fmt.Errorf("the configured chain has no faucet")
		}

		var address types.Address
		if len(args) == 1 {
			address = types.Address(args[0])
		} else {
			seed := cfg.SeedBytes()
			if seed == nil {
				return fmt.Errorf("an address or a configured seed is required")
			}
			address = chain.GenesisAddress(seed)
		}

		res, err := faucet.Fund(ctx, address, faucetAmount)
		if err != nil {
			return err
		}
		balance, err := client.Balance(ctx, address)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Funded %s\n", address)
		return pterm.DefaultTable.WithData(pterm.TableData{
			{"Transaction", res.Address.String()},
			{"Balance (UCO)", fmt.Sprint(balance.UCO)},
		}).Render()
	},
}

func init() {
	faucetCmd.Flags().Uint64Var(&faucetAmount, "amount", 100_000_000_000, "Amount of UCO to credit, in the smallest unit")
}
