package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/config"
	"github.com/govm-net/harness/deploy"
	"github.com/govm-net/harness/repository"
	"github.com/govm-net/harness/types"
)

var (
	randomAccount bool
	content       string
	ucoTransfers  []string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the project's contract build",
	Long: `Deploy dist/contract.wasm and dist/manifest.json to the configured chain.
Example: contract-cli deploy --content "v1" --uco 00AB...:100`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeployment(func(ctx context.Context, d *deploy.Deployer, account deploy.Account, build *repository.Build, data *deploy.AdditionalData, repo *repository.Manager) error {
			address, err := d.Deploy(ctx, account, build, data)
			if err != nil {
				return err
			}
			if err := repo.RegisterCode(address, build, ""); err != nil {
				return err
			}
			pterm.Success.Println("Contract deployed")
			return pterm.DefaultTable.WithData(pterm.TableData{
				{"Contract address", address.String()},
				{"Account", account.Address.String()},
			}).Render()
		})
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <contract-address>",
	Short: "Upgrade a deployed contract to the project's build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contract := types.Address(args[0])
		return withDeployment(func(ctx context.Context, d *deploy.Deployer, account deploy.Account, build *repository.Build, data *deploy.AdditionalData, repo *repository.Manager) error {
			address, err := d.Update(ctx, account, contract, build, data)
			if err != nil {
				return err
			}
			if err := repo.RegisterCode(address, build, contract); err != nil {
				return err
			}
			pterm.Success.Println("Upgrade sent")
			return pterm.DefaultTable.WithData(pterm.TableData{
				{"Transaction address", address.String()},
				{"Contract", contract.String()},
			}).Render()
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{deployCmd, upgradeCmd} {
		cmd.Flags().BoolVar(&randomAccount, "random", false, "Send from a fresh random account instead of the configured seed")
		cmd.Flags().StringVar(&content, "content", "", "Content to attach to the transaction")
		cmd.Flags().StringArrayVar(&ucoTransfers, "uco", nil, "UCO transfer to attach, as address:amount")
	}
}

func parseTransfers(entries []string) ([]types.UCOTransfer, error) {
	var out []types.UCOTransfer
	for _, entry := range entries {
		i := strings.LastIndex(entry, ":")
		if i <= 0 {
			return nil, fmt.Errorf("invalid transfer %q, want address:amount", entry)
		}
		amount, err := strconv.ParseUint(entry[i+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount in %q: %w", entry, err)
		}
		out = append(out, types.UCOTransfer{To: types.Address(entry[:i]), Amount: amount})
	}
	return out, nil
}

func resolveAccount(client api.ChainClient) (deploy.Account, error) {
	if randomAccount {
		account, err := deploy.RandomAccount(client)
		if err == nil {
			pterm.Info.Println("Using random account seed " + account.SeedHex())
		}
		return account, err
	}
	seed := cfg.SeedBytes()
	if seed == nil {
		return deploy.Account{}, fmt.Errorf("seed is required: set it in %s or pass --random", config.FileName)
	}
	return deploy.AccountFromSeed(client, seed)
}

type deployment func(ctx context.Context, d *deploy.Deployer, account deploy.Account, build *repository.Build, data *deploy.AdditionalData, repo *repository.Manager) error

func withDeployment(fn deployment) error {
	ctx := context.Background()
	build, err := repository.LoadBuild(cfg.Path(cfg.Project))
	if err != nil {
		return err
	}
	transfers, err := parseTransfers(ucoTransfers)
	if err != nil {
		return err
	}
	repo, err := openRepository()
	if err != nil {
		return err
	}

	client, err := openChain()
	if err != nil {
		return err
	}
	defer client.Close()

	account, err := resolveAccount(client)
	if err != nil {
		return err
	}
	data := &deploy.AdditionalData{Content: content, UCOTransfers: transfers}
	return fn(ctx, deploy.NewDeployer(client, cfg.UpgradeAddress), account, build, data, repo)
}
