package app

import (
	"context"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/merchantpay/internal/asset"
	"github.com/alanyoungcy/merchantpay/internal/config"
	"github.com/alanyoungcy/merchantpay/internal/ledger"
)

func paperConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Mode = "paper"
	cfg.Custodian.Address = "0xcccccccccccccccccccccccccccccccccccccccc"
	cfg.Paper.Balances = map[string]string{
		"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb": "10000",
	}
	return &cfg
}

func TestWirePaperSeedsBalances(t *testing.T) {
	deps, cleanup, err := wirePaper(paperConfig(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer cleanup()

	book, ok := deps.Assets.(*asset.Ledger)
	require.True(t, ok)

	buyer := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assert.Equal(t, int64(10_000), book.BalanceOf(buyer).Int64())
}

func TestWirePaperRejectsBadBalance(t *testing.T) {
	cfg := paperConfig()
	cfg.Paper.Balances["0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"] = "lots"

	_, _, err := wirePaper(cfg, slog.New(slog.DiscardHandler))
	require.Error(t, err)
}

// The seeded paper instance must settle a payment end to end without any
// external services.
func TestWirePaperSettlesEndToEnd(t *testing.T) {
	cfg := paperConfig()
	logger := slog.New(slog.DiscardHandler)

	deps, cleanup, err := Wire(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer cleanup()

	svc := ledger.New(deps.Listings, deps.Settings, deps.Assets, deps.Bus, deps.Locks, deps.Custodian, logger)
	ctx := context.Background()

	id := common.HexToHash("0x01")
	sellerAddr := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	buyerAddr := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	require.NoError(t, svc.CreateListing(ctx, id, big.NewInt(5000), big.NewInt(2), sellerAddr))
	require.NoError(t, svc.Pay(ctx, id, sellerAddr, big.NewInt(2), big.NewInt(10_000), buyerAddr))

	book := deps.Assets.(*asset.Ledger)
	assert.Equal(t, int64(9995), book.BalanceOf(sellerAddr).Int64())
	assert.Equal(t, int64(5), book.BalanceOf(deps.Custodian).Int64())
	assert.Equal(t, int64(0), book.BalanceOf(buyerAddr).Int64())
}
