// Package app wires configuration, storage, the asset transferer, the event
// bus, and the HTTP server into a runnable merchantpay instance.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/merchantpay/internal/config"
	"github.com/alanyoungcy/merchantpay/internal/ledger"
	"github.com/alanyoungcy/merchantpay/internal/server"
	"github.com/alanyoungcy/merchantpay/internal/server/handler"
)

// shutdownTimeout bounds how long in-flight requests may run after the stop
// signal before the HTTP server is torn down.
const shutdownTimeout = 10 * time.Second

// App is the top-level application container.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

// New creates an App from the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run wires the dependency graph, adopts the configured asset contract, and
// serves HTTP until ctx is cancelled. It returns ctx.Err() on a clean
// shutdown so callers can tell cancellation from failure.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire: %w", err)
	}
	a.cleanup = cleanup

	svc := ledger.New(deps.Listings, deps.Settings, deps.Assets, deps.Bus, deps.Locks, deps.Custodian, a.logger)

	if err := a.adoptAssetContract(ctx, svc, deps); err != nil {
		return err
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:   handler.NewHealthHandler(a.cfg.Mode, a.logger),
		Listings: handler.NewListingHandler(svc, a.logger),
		Admin:    handler.NewAdminHandler(svc, a.logger),
		Events:   handler.NewEventsHandler(deps.Log, a.logger),
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		return gctx.Err()
	})
	return g.Wait()
}

// adoptAssetContract reconciles the persisted asset contract with the
// configured one. A recorded contract wins; otherwise the configured value,
// if any, is recorded through the normal initialize path.
func (a *App) adoptAssetContract(ctx context.Context, svc *ledger.Service, deps *Dependencies) error {
	recorded, err := svc.AssetContract(ctx)
	if err != nil {
		return fmt.Errorf("app: read asset contract: %w", err)
	}

	if recorded != (common.Address{}) {
		deps.Assets.SetContract(recorded)
		a.logger.Info("app: using recorded asset contract",
			slog.String("contract", recorded.Hex()),
		)
		return nil
	}

	if a.cfg.Chain.AssetContract == "" {
		a.logger.Warn("app: no asset contract recorded or configured; settlement disabled until one is set")
		return nil
	}

	contract := common.HexToAddress(a.cfg.Chain.AssetContract)
	if err := svc.Initialize(ctx, deps.Custodian, contract); err != nil {
		return fmt.Errorf("app: adopt asset contract: %w", err)
	}
	return nil
}

// Close releases every resource the App acquired in Run.
func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}
