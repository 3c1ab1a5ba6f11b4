package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

const assetContractKey = "asset_contract"

// SettingsStore implements domain.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a SettingsStore backed by the given connection pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// SetAssetContract records the asset contract identity.
func (s *SettingsStore) SetAssetContract(ctx context.Context, addr common.Address) error {
	const query = `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, assetContractKey, addr.Hex()); err != nil {
		return fmt.Errorf("postgres: set asset contract: %w", err)
	}
	return nil
}

// AssetContract returns the recorded contract address, or the zero address
// when none has been set.
func (s *SettingsStore) AssetContract(ctx context.Context) (common.Address, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, assetContractKey,
	).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return common.Address{}, nil
		}
		return common.Address{}, fmt.Errorf("postgres: get asset contract: %w", err)
	}
	return common.HexToAddress(value), nil
}

// Compile-time interface check.
var _ domain.SettingsStore = (*SettingsStore)(nil)
