package memory

import (
	"context"
	"sync"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/chain"
	"github.com/govm-net/harness/types"
)

// store keeps a simulated chain in process memory.
type store struct {
	mu sync.RWMutex

	txs         map[types.Address]*types.Transaction
	chains      map[types.Address][]types.Address
	genesisOf   map[types.Address]types.Address
	keyGenesis  map[types.PublicKey]types.Address
	genesisKeys map[types.Address]types.PublicKey
	balances    map[types.Address]types.Balance
}

func init() {
	chain.Register(chain.MemoryType, func(map[string]any) (api.ChainClient, error) {
		return New(), nil
	})
}

// New returns an empty in-memory chain.
func New() *chain.Client {
	return chain.NewClient(&store{
		txs:         make(map[types.Address]*types.Transaction),
		chains:      make(map[types.Address][]types.Address),
		genesisOf:   make(map[types.Address]types.Address),
		keyGenesis:  make(map[types.PublicKey]types.Address),
		genesisKeys: make(map[types.Address]types.PublicKey),
		balances:    make(map[types.Address]types.Balance),
	})
}

func (s *store) Close() error { return nil }

func (s *store) Index(_ context.Context, genesis types.Address) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint32(len(s.chains[chain.Normalize(genesis)])), nil
}

// resolve must be called with the lock held.
func (s *store) resolve(a types.Address) types.Address {
	a = chain.Normalize(a)
	if g, ok := s.genesisOf[a]; ok {
		return g
	}
	return a
}

func (s *store) Commit(_ context.Context, c *chain.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	genesis := chain.Normalize(c.Genesis)
	if uint32(len(s.chains[genesis])) != c.Index {
		return chain.ErrIndexConflict
	}
	balances, err := c.Settle(
		func(a types.Address) (types.Balance, error) { return s.balances[a], nil },
		func(a types.Address) (types.Address, error) { return s.resolve(a), nil },
	)
	if err != nil {
		return err
	}
	for a, b := range balances {
		s.balances[a] = b
	}

	addr := chain.Normalize(c.Tx.Address)
	s.txs[addr] = c.Tx.Clone()
	s.chains[genesis] = append(s.chains[genesis], addr)
	s.genesisOf[addr] = genesis
	s.genesisOf[genesis] = genesis
	s.keyGenesis[chain.NormalizeKey(c.Tx.PreviousPublicKey)] = genesis
	s.genesisKeys[genesis] = c.GenesisKey
	return nil
}

func (s *store) Balance(_ context.Context, address types.Address) (types.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[s.resolve(address)], nil
}

func (s *store) Transaction(_ context.Context, address types.Address) (*types.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[chain.Normalize(address)]
	if !ok {
		return nil, api.ErrNotFound
	}
	return tx.Clone(), nil
}

func (s *store) LastTransaction(ctx context.Context, address types.Address) (*types.Transaction, error) {
	s.mu.RLock()
	txs := s.chains[s.resolve(address)]
	s.mu.RUnlock()
	if len(txs) == 0 {
		return nil, api.ErrNotFound
	}
	return s.Transaction(ctx, txs[len(txs)-1])
}

// GenesisAddress of an unknown address is the address itself.
func (s *store) GenesisAddress(_ context.Context, address types.Address) (types.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(address), nil
}

func (s *store) FirstTransactionAddress(_ context.Context, address types.Address) (types.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := s.chains[s.resolve(address)]
	if len(txs) == 0 {
		return "", api.ErrNotFound
	}
	return txs[0], nil
}

func (s *store) LastAddress(_ context.Context, address types.Address) (types.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := s.chains[s.resolve(address)]
	if len(txs) == 0 {
		return chain.Normalize(address), nil
	}
	return txs[len(txs)-1], nil
}

func (s *store) PreviousAddress(_ context.Context, previousPublicKey types.PublicKey) (types.Address, error) {
	return chain.AddressOf(previousPublicKey)
}

func (s *store) GenesisPublicKey(_ context.Context, publicKey types.PublicKey) (types.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := chain.NormalizeKey(publicKey)
	if g, ok := s.keyGenesis[key]; ok {
		return s.genesisKeys[g], nil
	}
	return key, nil
}
