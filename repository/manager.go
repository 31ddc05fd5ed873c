package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/govm-net/harness/chain"
	"github.com/govm-net/harness/types"
)

// Build output layout of a contract project.
const (
	DistDir      = "dist"
	BytecodeFile = "contract.wasm"
	ManifestFile = "manifest.json"
	metadataFile = "metadata.json"
)

// ErrNotDeployed is returned for addresses the manager holds no code for.
var ErrNotDeployed = errors.New("contract not deployed")

// Build is a compiled contract as found in a project's dist directory.
type Build struct {
	Bytecode []byte
	Manifest types.Value
	Hash     [32]byte
}

// LoadBuild reads dist/contract.wasm and dist/manifest.json under projectDir.
func LoadBuild(projectDir string) (*Build, error) {
	dist := filepath.Join(projectDir, DistDir)
	bytecode, err := os.ReadFile(filepath.Join(dist, BytecodeFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read bytecode: %w", err)
	}
	raw, err := os.ReadFile(filepath.Join(dist, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	manifest, err := types.ParseValue(raw)
	if err != nil {
		return nil, &types.ProtocolDecodeError{What: "manifest", Err: err}
	}
	if !manifest.IsMap() {
		return nil, &types.ProtocolDecodeError{What: "manifest", Err: fmt.Errorf("expected an object, got %s", manifest.Kind())}
	}
	return &Build{Bytecode: bytecode, Manifest: manifest, Hash: sha256.Sum256(bytecode)}, nil
}

// Manager keeps the code of deployed contracts on disk, one directory per
// transaction address.
type Manager struct {
	rootDir string
}

// ContractCode is one deployed version.
type ContractCode struct {
	Address    types.Address
	Code       []byte
	Manifest   types.Value
	Upgrades   types.Address // contract this version replaced, if any
	UpdateTime time.Time
	Hash       [32]byte
}

// ContractMetadata is stored next to the code.
type ContractMetadata struct {
	Hash       string        `json:"hash"`
	UpdateTime time.Time     `json:"update_time"`
	Manifest   types.Value   `json:"manifest"`
	Upgrades   types.Address `json:"upgrades,omitempty"`
}

// NewManager creates a manager rooted at rootDir.
func NewManager(rootDir string) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		slog.Error("failed to create root directory", "dir", rootDir, "error", err)
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &Manager{rootDir: rootDir}, nil
}

// RegisterCode records build as deployed at address. upgrades names the
// contract it replaces and is empty for a first deployment.
func (m *Manager) RegisterCode(address types.Address, build *Build, upgrades types.Address) error {
	address = chain.Normalize(address)
	contractDir := m.getContractDir(address)
	if _, err := os.Stat(contractDir); err == nil {
		return fmt.Errorf("contract already exists: %s", address)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check contract directory: %w", err)
	}

	if err := os.MkdirAll(contractDir, 0755); err != nil {
		return fmt.Errorf("failed to create contract directory: %w", err)
	}

	code := &ContractCode{
		Address:    address,
		Code:       build.Bytecode,
		Manifest:   build.Manifest,
		Upgrades:   upgrades,
		UpdateTime: time.Now().UTC(),
		Hash:       build.Hash,
	}
	if err := m.saveContractFiles(code); err != nil {
		os.RemoveAll(contractDir)
		return fmt.Errorf("failed to save contract files: %w", err)
	}
	slog.Debug("contract code registered", "address", address, "hash", hex.EncodeToString(build.Hash[:]))
	return nil
}

// GetCode returns the version deployed at address.
func (m *Manager) GetCode(address types.Address) (*ContractCode, error) {
	return m.loadContractCode(chain.Normalize(address))
}

// List returns the addresses of every registered version, sorted.
func (m *Manager) List() ([]types.Address, error) {
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	var out []types.Address
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(m.rootDir, e.Name(), metadataFile)); err == nil {
			out = append(out, types.Address(e.Name()))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *Manager) getContractDir(address types.Address) string {
	return filepath.Join(m.rootDir, address.String())
}

func (m *Manager) saveContractFiles(code *ContractCode) error {
	dir := m.getContractDir(code.Address)

	if err := os.WriteFile(filepath.Join(dir, BytecodeFile), code.Code, 0644); err != nil {
		return fmt.Errorf("failed to save bytecode: %w", err)
	}

	metadata := ContractMetadata{
		Hash:       hex.EncodeToString(code.Hash[:]),
		UpdateTime: code.UpdateTime,
		Manifest:   code.Manifest,
		Upgrades:   code.Upgrades,
	}
	metadataBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), metadataBytes, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (m *Manager) loadContractCode(address types.Address) (*ContractCode, error) {
	dir := m.getContractDir(address)

	code, err := os.ReadFile(filepath.Join(dir, BytecodeFile))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotDeployed, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bytecode: %w", err)
	}

	metadataBytes, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var metadata ContractMetadata
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	hashBytes, err := hex.DecodeString(metadata.Hash)
	if err != nil {
		return nil, fmt.Errorf("invalid hash in metadata: %w", err)
	}
	var hash [32]byte
	copy(hash[:], hashBytes)
	if hash != sha256.Sum256(code) {
		return nil, fmt.Errorf("bytecode of %s does not match its recorded hash", address)
	}

	return &ContractCode{
		Address:    address,
		Code:       code,
		Manifest:   metadata.Manifest,
		Upgrades:   metadata.Upgrades,
		UpdateTime: metadata.UpdateTime,
		Hash:       hash,
	}, nil
}
