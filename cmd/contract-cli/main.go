package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/chain"
	_ "github.com/govm-net/harness/chain/db"
	_ "github.com/govm-net/harness/chain/memory"
	"github.com/govm-net/harness/config"
	"github.com/govm-net/harness/repository"
)

var (
	configDir string
	logLevel  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "contract-cli",
	Short: "Local WebAssembly contract harness",
	Long: `Run WebAssembly contracts against a simulated context, inspect their
exports and deploy them to a local simulated chain.
Settings are read from harness.toml in the project directory or above it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.FindAndLoad(configDir)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		return setupLogging(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "dir", "C", ".", "Directory to look for harness.toml from")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(faucetCmd)
}

// openChain connects to the configured chain.
func openChain() (api.ChainClient, error) {
	typ, params, err := cfg.ChainTarget()
	if err != nil {
		return nil, err
	}
	client, err := chain.Open(typ, params)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s chain: %w", typ, err)
	}
	return client, nil
}

func openRepository() (*repository.Manager, error) {
	return repository.NewManager(cfg.Path(cfg.Chain.DeploymentsDir))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
