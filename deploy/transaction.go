// Package deploy builds the transactions that publish a contract build to a
// chain and upgrade an existing contract to a new one.
package deploy

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/repository"
	"github.com/govm-net/harness/types"
)

// UpgradeAction is the recipient action that replaces a contract's code.
const UpgradeAction = "upgrade"

// ErrNotContract is returned by DecodeContract for transactions that carry
// no contract payload.
var ErrNotContract = errors.New("transaction carries no contract")

// AdditionalData is added to deploy and upgrade transactions.
type AdditionalData struct {
	Content        string
	UCOTransfers   []types.UCOTransfer
	TokenTransfers []types.TokenTransfer
	Recipients     []types.Recipient
}

func (d *AdditionalData) apply(tx *types.Transaction) {
	if d == nil {
		return
	}
	if d.Content != "" {
		tx.Data.Content = d.Content
	}
	if len(d.UCOTransfers) > 0 || len(d.TokenTransfers) > 0 {
		if tx.Data.Ledger == nil {
			tx.Data.Ledger = &types.Ledger{}
		}
	}
	if len(d.UCOTransfers) > 0 {
		if tx.Data.Ledger.UCO == nil {
			tx.Data.Ledger.UCO = &types.UCOLedger{}
		}
		tx.Data.Ledger.UCO.Transfers = append(tx.Data.Ledger.UCO.Transfers, d.UCOTransfers...)
	}
	if len(d.TokenTransfers) > 0 {
		if tx.Data.Ledger.Token == nil {
			tx.Data.Ledger.Token = &types.TokenLedger{}
		}
		tx.Data.Ledger.Token.Transfers = append(tx.Data.Ledger.Token.Transfers, d.TokenTransfers...)
	}
	tx.Data.Recipients = append(tx.Data.Recipients, d.Recipients...)
}

// Opts tunes the transactions built from a build.
type Opts struct {
	AdditionalData *AdditionalData
	// UpgradeAddress is recorded in the manifest as the address allowed to
	// upgrade the contract.
	UpgradeAddress types.Address
}

// Payload is the content of a contract transaction's code field.
type Payload struct {
	Manifest types.Value `json:"manifest"`
	Bytecode string      `json:"bytecode"`
}

func manifestFor(build *repository.Build, opts Opts) types.Value {
	manifest := build.Manifest.Clone()
	if !manifest.IsMap() {
		manifest = types.Object()
	}
	if opts.UpgradeAddress != "" {
		manifest.Set("upgradeOpts", types.Map(map[string]types.Value{
			"from": types.String(opts.UpgradeAddress.String()),
		}))
	}
	return manifest
}

func compressedHex(build *repository.Build) (string, error) {
	compressed, err := Compress(build.Bytecode)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(compressed), nil
}

// ContractTransaction returns the unsigned transaction deploying build from
// account.
func ContractTransaction(client api.ChainClient, account Account, build *repository.Build, opts Opts) (*types.Transaction, error) {
	code, err := compressedHex(build)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(Payload{Manifest: manifestFor(build, opts), Bytecode: code})
	if err != nil {
		return nil, fmt.Errorf("failed to encode contract payload: %w", err)
	}
	tx, err := client.NewContractTransaction(string(payload), account.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract transaction: %w", err)
	}
	opts.AdditionalData.apply(tx)
	return tx, nil
}

// UpgradeTransaction returns the unsigned transfer asking contract to
// replace its code with build.
func UpgradeTransaction(contract types.Address, build *repository.Build, opts Opts) (*types.Transaction, error) {
	code, err := compressedHex(build)
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{
		Type: types.TransferType,
		Data: types.TransactionData{
			Recipients: []types.Recipient{{
				Address: contract,
				Action:  UpgradeAction,
				Args:    []types.Value{types.String(code), manifestFor(build, opts)},
			}},
		},
	}
	opts.AdditionalData.apply(tx)
	return tx, nil
}

// DecodeContract extracts the bytecode and manifest a contract transaction
// carries.
func DecodeContract(tx *types.Transaction) ([]byte, types.Value, error) {
	if tx == nil || tx.Data.Code == "" {
		return nil, types.Null(), ErrNotContract
	}
	var payload Payload
	if err := json.Unmarshal([]byte(tx.Data.Code), &payload); err != nil {
		return nil, types.Null(), &types.ProtocolDecodeError{What: "contract payload", Err: err}
	}
	return decodePayload(payload.Bytecode, payload.Manifest)
}

// DecodeUpgrade extracts the bytecode and manifest of the first upgrade
// recipient of tx.
func DecodeUpgrade(tx *types.Transaction) (types.Address, []byte, types.Value, error) {
	if tx != nil {
		for _, r := range tx.Data.Recipients {
			if r.Action != UpgradeAction || len(r.Args) != 2 {
				continue
			}
			code, ok := r.Args[0].AsString()
			if !ok {
				return "", nil, types.Null(), &types.ProtocolDecodeError{What: "upgrade arguments", Err: fmt.Errorf("bytecode is %s", r.Args[0].Kind())}
			}
			bytecode, manifest, err := decodePayload(code, r.Args[1])
			return r.Address, bytecode, manifest, err
		}
	}
	return "", nil, types.Null(), ErrNotContract
}

func decodePayload(code string, manifest types.Value) ([]byte, types.Value, error) {
	compressed, err := hex.DecodeString(code)
	if err != nil {
		return nil, types.Null(), &types.ProtocolDecodeError{What: "contract bytecode", Err: err}
	}
	bytecode, err := Decompress(compressed)
	if err != nil {
		return nil, types.Null(), err
	}
	return bytecode, manifest, nil
}
