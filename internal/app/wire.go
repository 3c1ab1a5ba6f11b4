package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/merchantpay/internal/asset"
	busredis "github.com/alanyoungcy/merchantpay/internal/bus/redis"
	"github.com/alanyoungcy/merchantpay/internal/config"
	"github.com/alanyoungcy/merchantpay/internal/crypto"
	"github.com/alanyoungcy/merchantpay/internal/domain"
	"github.com/alanyoungcy/merchantpay/internal/store/memory"
	"github.com/alanyoungcy/merchantpay/internal/store/postgres"
)

// Dependencies bundles the constructed collaborators for a running instance.
type Dependencies struct {
	Listings  domain.ListingStore
	Settings  domain.SettingsStore
	Assets    domain.AssetTransferer
	Bus       domain.EventBus
	Log       domain.EventLog
	Locks     domain.Locker
	Custodian common.Address
}

// Wire constructs the dependency graph for the configured mode and returns
// the dependencies plus a cleanup function that releases every resource in
// reverse construction order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	switch cfg.Mode {
	case "paper":
		return wirePaper(cfg, logger)
	default:
		return wireFull(ctx, cfg, logger)
	}
}

// wirePaper builds an all-in-memory instance: listings live in a mutex map,
// transfers move balances on an internal book seeded from config, and events
// go nowhere.
func wirePaper(cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	store := memory.New()
	book := asset.NewLedger()

	for addr, amount := range cfg.Paper.Balances {
		n, ok := new(big.Int).SetString(amount, 10)
		if !ok || n.Sign() < 0 {
			return nil, nil, fmt.Errorf("app: paper balance for %s: invalid amount %q", addr, amount)
		}
		book.Credit(common.HexToAddress(addr), n)
	}

	var custodian common.Address
	if cfg.Custodian.Address != "" {
		custodian = common.HexToAddress(cfg.Custodian.Address)
	}

	logger.Info("app: wired paper mode",
		slog.String("custodian", custodian.Hex()),
		slog.Int("seeded_balances", len(cfg.Paper.Balances)),
	)

	return &Dependencies{
		Listings:  store,
		Settings:  store,
		Assets:    book,
		Bus:       nopBus{},
		Log:       nopBus{},
		Locks:     memory.NewLocker(),
		Custodian: custodian,
	}, func() {}, nil
}

// wireFull builds the production instance: PostgreSQL stores, Redis event
// bus, and an on-chain ERC-20 transferer signing with the custodian key.
func wireFull(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	pg, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("app: postgres: %w", err)
	}
	cleanups = append(cleanups, pg.Close)

	if cfg.Postgres.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: migrations: %w", err)
		}
	}

	rdb, err := busredis.New(ctx, busredis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("app: redis: %w", err)
	}
	cleanups = append(cleanups, func() { _ = rdb.Close() })

	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Custodian.PrivateKey,
		EncryptedKeyPath: cfg.Custodian.EncryptedKeyPath,
		KeyPassword:      cfg.Custodian.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("app: custodian key: %w", err)
	}

	transferer, err := asset.NewERC20Transferer(ctx, cfg.Chain.RPCURL, key, cfg.Chain.ChainID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("app: transferer: %w", err)
	}
	cleanups = append(cleanups, transferer.Close)

	bus := busredis.NewEventBusWithMaxLen(rdb, int64(cfg.Redis.StreamMaxLen))

	logger.Info("app: wired full mode",
		slog.String("custodian", transferer.Custodian().Hex()),
		slog.Int64("chain_id", cfg.Chain.ChainID),
	)

	return &Dependencies{
		Listings:  postgres.NewListingStore(pg.Pool()),
		Settings:  postgres.NewSettingsStore(pg.Pool()),
		Assets:    transferer,
		Bus:       bus,
		Log:       bus,
		Locks:     busredis.NewLockManager(rdb),
		Custodian: transferer.Custodian(),
	}, cleanup, nil
}

// nopBus is the event bus used in paper mode, where nothing listens and the
// event log is always empty.
type nopBus struct{}

func (nopBus) Publish(ctx context.Context, channel string, payload []byte) error { return nil }

func (nopBus) StreamAppend(ctx context.Context, stream string, payload []byte) error { return nil }

func (nopBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

var (
	_ domain.EventBus = nopBus{}
	_ domain.EventLog = nopBus{}
)
