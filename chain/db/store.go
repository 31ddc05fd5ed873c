package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/govm-net/harness/api"
	"github.com/govm-net/harness/chain"
	"github.com/govm-net/harness/types"
)

const defaultDBPath = "./harness.db"

type DBTransaction struct {
	gorm.Model
	Address           string `gorm:"column:tx_address;not null;unique;index;size:68"`
	Genesis           string `gorm:"column:genesis_address;not null;uniqueIndex:idx_chain_position;size:68"`
	Index             uint32 `gorm:"column:chain_index;not null;uniqueIndex:idx_chain_position"`
	Type              string `gorm:"column:tx_type;not null;size:16"`
	PreviousPublicKey string `gorm:"column:previous_public_key;not null;index;size:70"`
	Payload           []byte `gorm:"column:payload;type:blob;not null"`
}

func (DBTransaction) TableName() string {
	return "transactions"
}

// DBChain records the genesis public key of each known chain.
type DBChain struct {
	Genesis    string `gorm:"column:genesis_address;primaryKey;size:68"`
	GenesisKey string `gorm:"column:genesis_public_key;not null;size:70"`
}

func (DBChain) TableName() string {
	return "chains"
}

// DBBalance is the UCO held by a genesis address.
type DBBalance struct {
	Address string `gorm:"column:address;primaryKey;size:68"`
	UCO     uint64 `gorm:"column:uco;not null;default:0"`
}

func (DBBalance) TableName() string {
	return "balances"
}

// DBTokenBalance is the amount of one token held by a genesis address.
type DBTokenBalance struct {
	Address      string `gorm:"column:address;primaryKey;size:68"`
	TokenAddress string `gorm:"column:token_address;primaryKey;size:68"`
	TokenID      uint64 `gorm:"column:token_id;primaryKey"`
	Amount       uint64 `gorm:"column:amount;not null"`
}

func (DBTokenBalance) TableName() string {
	return "token_balances"
}

// store persists a simulated chain in sqlite.
type store struct {
	db *gorm.DB
}

func init() {
	chain.Register(chain.DBType, func(params map[string]any) (api.ChainClient, error) {
		path, _ := params["db_path"].(string)
		return Open(path)
	})
}

// Open opens or creates the chain database at path.
func Open(path string) (*chain.Client, error) {
	if path == "" {
		path = defaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&DBTransaction{}, &DBChain{}, &DBBalance{}, &DBTokenBalance{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Debug("chain database opened", "path", path)
	return chain.NewClient(&store{db: db}), nil
}

func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *store) Index(ctx context.Context, genesis types.Address) (uint32, error) {
	return index(s.db.WithContext(ctx), chain.Normalize(genesis))
}

func index(db *gorm.DB, genesis types.Address) (uint32, error) {
	var count int64
	if err := db.Model(&DBTransaction{}).Where("genesis_address = ?", string(genesis)).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return uint32(count), nil
}

func resolve(db *gorm.DB, a types.Address) (types.Address, error) {
	a = chain.Normalize(a)
	var row DBTransaction
	err := db.Where("tx_address = ?", string(a)).First(&row).Error
	if err == nil {
		return types.Address(row.Genesis), nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return a, nil
	}
	return "", fmt.Errorf("failed to resolve genesis: %w", err)
}

func loadBalance(db *gorm.DB, genesis types.Address) (types.Balance, error) {
	var bal types.Balance
	var row DBBalance
	err := db.Where("address = ?", string(genesis)).First(&row).Error
	switch {
	case err == nil:
		bal.UCO = row.UCO
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return bal, fmt.Errorf("failed to get balance: %w", err)
	}
	var tokens []DBTokenBalance
	if err := db.Where("address = ?", string(genesis)).Order("token_address, token_id").Find(&tokens).Error; err != nil {
		return bal, fmt.Errorf("failed to get token balances: %w", err)
	}
	for _, t := range tokens {
		bal.Tokens = append(bal.Tokens, types.TokenBalance{
			TokenAddress: types.Address(t.TokenAddress), TokenID: t.TokenID, Amount: t.Amount,
		})
	}
	return bal, nil
}

func storeBalance(db *gorm.DB, genesis types.Address, bal types.Balance) error {
	row := DBBalance{Address: string(genesis), UCO: bal.UCO}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if err := db.Where("address = ?", string(genesis)).Delete(&DBTokenBalance{}).Error; err != nil {
		return fmt.Errorf("failed to update token balances: %w", err)
	}
	for _, t := range bal.Tokens {
		if t.Amount == 0 {
			continue
		}
		tok := DBTokenBalance{Address: string(genesis), TokenAddress: string(chain.Normalize(t.TokenAddress)), TokenID: t.TokenID, Amount: t.Amount}
		if err := db.Create(&tok).Error; err != nil {
			return fmt.Errorf("failed to update token balances: %w", err)
		}
	}
	return nil
}

func (s *store) Commit(ctx context.Context, c *chain.Commit) error {
	genesis := chain.Normalize(c.Genesis)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := index(tx, genesis)
		if err != nil {
			return err
		}
		if current != c.Index {
			return chain.ErrIndexConflict
		}
		balances, err := c.Settle(
			func(a types.Address) (types.Balance, error) { return loadBalance(tx, a) },
			func(a types.Address) (types.Address, error) { return resolve(tx, a) },
		)
		if err != nil {
			return err
		}
		for a, b := range balances {
			if err := storeBalance(tx, a, b); err != nil {
				return err
			}
		}

		payload, err := json.Marshal(c.Tx)
		if err != nil {
			return fmt.Errorf("failed to encode transaction: %w", err)
		}
		row := DBTransaction{
			Address:           string(chain.Normalize(c.Tx.Address)),
			Genesis:           string(genesis),
			Index:             c.Index,
			Type:              string(c.Tx.Type),
			PreviousPublicKey: string(chain.NormalizeKey(c.Tx.PreviousPublicKey)),
			Payload:           payload,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to store transaction: %w", err)
		}
		ch := DBChain{Genesis: string(genesis), GenesisKey: string(chain.NormalizeKey(c.GenesisKey))}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ch).Error; err != nil {
			return fmt.Errorf("failed to store chain: %w", err)
		}
		return nil
	})
}

func (s *store) Balance(ctx context.Context, address types.Address) (types.Balance, error) {
	db := s.db.WithContext(ctx)
	genesis, err := resolve(db, address)
	if err != nil {
		return types.Balance{}, err
	}
	return loadBalance(db, genesis)
}

func decodeTransaction(row DBTransaction) (*types.Transaction, error) {
	var tx types.Transaction
	if err := json.Unmarshal(row.Payload, &tx); err != nil {
		return nil, &types.ProtocolDecodeError{What: "stored transaction", Err: err}
	}
	return &tx, nil
}

func (s *store) Transaction(ctx context.Context, address types.Address) (*types.Transaction, error) {
	var row DBTransaction
	err := s.db.WithContext(ctx).Where("tx_address = ?", string(chain.Normalize(address))).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return decodeTransaction(row)
}

// chainEnd returns the first or last transaction of address' chain.
func (s *store) chainEnd(ctx context.Context, address types.Address, last bool) (*DBTransaction, error) {
	db := s.db.WithContext(ctx)
	genesis, err := resolve(db, address)
	if err != nil {
		return nil, err
	}
	order := "chain_index"
	if last {
		order = "chain_index desc"
	}
	var row DBTransaction
	err = db.Where("genesis_address = ?", string(genesis)).Order(order).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &row, nil
}

func (s *store) LastTransaction(ctx context.Context, address types.Address) (*types.Transaction, error) {
	row, err := s.chainEnd(ctx, address, true)
	if err != nil {
		return nil, err
	}
	return decodeTransaction(*row)
}

func (s *store) GenesisAddress(ctx context.Context, address types.Address) (types.Address, error) {
	return resolve(s.db.WithContext(ctx), address)
}

func (s *store) FirstTransactionAddress(ctx context.Context, address types.Address) (types.Address, error) {
	row, err := s.chainEnd(ctx, address, false)
	if err != nil {
		return "", err
	}
	return types.Address(row.Address), nil
}

func (s *store) LastAddress(ctx context.Context, address types.Address) (types.Address, error) {
	row, err := s.chainEnd(ctx, address, true)
	if errors.Is(err, api.ErrNotFound) {
		return chain.Normalize(address), nil
	}
	if err != nil {
		return "", err
	}
	return types.Address(row.Address), nil
}

func (s *store) PreviousAddress(_ context.Context, previousPublicKey types.PublicKey) (types.Address, error) {
	return chain.AddressOf(previousPublicKey)
}

func (s *store) GenesisPublicKey(ctx context.Context, publicKey types.PublicKey) (types.PublicKey, error) {
	db := s.db.WithContext(ctx)
	key := chain.NormalizeKey(publicKey)
	var row DBTransaction
	err := db.Where("previous_public_key = ?", string(key)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return key, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get transaction: %w", err)
	}
	var ch DBChain
	if err := db.Where("genesis_address = ?", row.Genesis).First(&ch).Error; err != nil {
		return "", fmt.Errorf("failed to get chain: %w", err)
	}
	return types.PublicKey(ch.GenesisKey), nil
}
