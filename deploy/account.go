package deploy

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/chain"
	"github.com/govm-net/harness/repository"
	"github.com/govm-net/harness/types"
)

// Account is a chain the harness signs transactions for.
type Account struct {
	Address types.Address // genesis address
	Seed    []byte
}

// SeedHex renders the seed for display and configuration files.
func (a Account) SeedHex() string { return hex.EncodeToString(a.Seed) }

// AccountFromSeed returns the account of seed's chain.
func AccountFromSeed(client api.ChainClient, seed []byte) (Account, error) {
	if len(seed) == 0 {
		return Account{}, fmt.Errorf("seed is required")
	}
	address, err := client.DeriveAddress(seed, 0)
	if err != nil {
		return Account{}, fmt.Errorf("failed to derive address: %w", err)
	}
	return Account{Address: address, Seed: seed}, nil
}

// RandomAccount returns an account on a fresh random seed.
func RandomAccount(client api.ChainClient) (Account, error) {
	seed, err := chain.RandomSeed()
	if err != nil {
		return Account{}, fmt.Errorf("failed to generate seed: %w", err)
	}
	return AccountFromSeed(client, seed)
}

// Deployer sends deploy and upgrade transactions through a chain client.
type Deployer struct {
	client         api.ChainClient
	upgradeAddress types.Address
}

// NewDeployer returns a deployer recording upgradeAddress, when set, in
// every manifest it sends.
func NewDeployer(client api.ChainClient, upgradeAddress types.Address) *Deployer {
	return &Deployer{client: client, upgradeAddress: upgradeAddress}
}

// Deploy publishes build from account and returns the contract's
// transaction address.
func (d *Deployer) Deploy(ctx context.Context, account Account, build *repository.Build, data *AdditionalData) (types.Address, error) {
	tx, err := ContractTransaction(d.client, account, build, Opts{AdditionalData: data, UpgradeAddress: d.upgradeAddress})
	if err != nil {
		return "", err
	}
	res, err := d.client.SendTransaction(ctx, tx, account.Seed)
	if err != nil {
		return "", fmt.Errorf("failed to send contract transaction: %w", err)
	}
	slog.Info("contract deployed", "address", res.Address, "account", account.Address)
	return res.Address, nil
}

// Update asks contract to replace its code with build and returns the
// address of the upgrade transaction.
func (d *Deployer) Update(ctx context.Context, account Account, contract types.Address, build *repository.Build, data *AdditionalData) (types.Address, error) {
	tx, err := UpgradeTransaction(contract, build, Opts{AdditionalData: data, UpgradeAddress: d.upgradeAddress})
	if err != nil {
		return "", err
	}
	res, err := d.client.SendTransaction(ctx, tx, account.Seed)
	if err != nil {
		return "", fmt.Errorf("failed to send upgrade transaction: %w", err)
	}
	slog.Info("contract upgrade sent", "address", res.Address, "contract", contract)
	return res.Address, nil
}
