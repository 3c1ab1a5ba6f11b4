// Package ledger implements the listing lifecycle and payment-settlement
// state machine: sellers publish quantities at a fixed unit rate, buyers pay
// to claim quantity, and funds are split between the seller and a fixed
// platform fee moved through the asset-transfer collaborator.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

// feeDivisor fixes the platform fee at 0.1% of the unit rate. The fee base
// is the rate, not the total price, matching the deployed fee model.
var feeDivisor = big.NewInt(1000)

// settleLockTTL bounds how long a settlement may hold its per-listing lock
// before it expires on its own.
const settleLockTTL = 30 * time.Second

// Service is the settlement engine plus the registry and query operations.
// Settlements against the same (id, seller) pair are serialized through the
// locker; the service itself holds no cross-call state beyond its
// collaborators.
type Service struct {
	listings  domain.ListingStore
	settings  domain.SettingsStore
	assets    domain.AssetTransferer
	bus       domain.EventBus
	locks     domain.Locker
	custodian common.Address
	logger    *slog.Logger
}

// New creates a Service with all required collaborators. The custodian
// address is the account that collects platform fees.
func New(
	listings domain.ListingStore,
	settings domain.SettingsStore,
	assets domain.AssetTransferer,
	bus domain.EventBus,
	locks domain.Locker,
	custodian common.Address,
	logger *slog.Logger,
) *Service {
	return &Service{
		listings:  listings,
		settings:  settings,
		assets:    assets,
		bus:       bus,
		locks:     locks,
		custodian: custodian,
		logger:    logger,
	}
}

// Initialize records the asset contract identity and retargets the
// transferer. There is no access restriction on who may call this or how
// often; the deployment is expected to call it once at startup.
func (s *Service) Initialize(ctx context.Context, caller, assetContract common.Address) error {
	if err := s.settings.SetAssetContract(ctx, assetContract); err != nil {
		return fmt.Errorf("ledger: record asset contract: %w", err)
	}
	s.assets.SetContract(assetContract)

	s.logger.InfoContext(ctx, "ledger: asset contract set",
		slog.String("contract", assetContract.Hex()),
		slog.String("caller", caller.Hex()),
	)
	return nil
}

// CreateListing registers (or silently resets) the listing keyed by
// (id, caller) with caller as seller. A zero rate or quantity fails with
// ErrInvalidAmount.
func (s *Service) CreateListing(ctx context.Context, id common.Hash, rate, quantity *big.Int, caller common.Address) error {
	if rate == nil || quantity == nil || rate.Sign() <= 0 || quantity.Sign() <= 0 {
		return fmt.Errorf("ledger: create listing %s: %w", id.Hex(), domain.ErrInvalidAmount)
	}

	listing := domain.Listing{
		ID:       id,
		Seller:   caller,
		Buyer:    common.Address{},
		Rate:     new(big.Int).Set(rate),
		Quantity: new(big.Int).Set(quantity),
		Status:   domain.StatusPending,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return fmt.Errorf("ledger: create listing %s: %w", id.Hex(), err)
	}

	s.emit(ctx, domain.EventNewListing, domain.NewListingEvent{
		ID:       id,
		Seller:   caller,
		Rate:     listing.Rate,
		Quantity: listing.Quantity,
	})

	s.logger.InfoContext(ctx, "ledger: listing created",
		slog.String("id", id.Hex()),
		slog.String("seller", caller.Hex()),
		slog.String("rate", rate.String()),
		slog.String("quantity", quantity.String()),
	)
	return nil
}

// Pay settles a payment of amount for quantity units of the listing at
// (id, seller), on behalf of caller. Validation is ordered: listing status,
// then remaining quantity, then amount against price. The two transfer legs
// happen before any state write; if the fee leg fails after the seller leg
// succeeded, the seller leg is reversed so no partial effect remains.
func (s *Service) Pay(ctx context.Context, id common.Hash, seller common.Address, quantity, amount *big.Int, caller common.Address) error {
	if quantity == nil || amount == nil {
		return fmt.Errorf("ledger: pay listing %s: %w", id.Hex(), domain.ErrInvalidAmount)
	}

	// Two concurrent payments against the same listing would both read the
	// same remaining quantity; the lock makes the read-settle-write exclusive.
	unlock, err := s.locks.Acquire(ctx, "settle:"+id.Hex()+":"+seller.Hex(), settleLockTTL)
	if err != nil {
		return fmt.Errorf("ledger: pay listing %s: %w", id.Hex(), err)
	}
	defer unlock()

	listing, err := s.listings.Get(ctx, id, seller)
	if err != nil {
		return fmt.Errorf("ledger: pay listing %s: %w", id.Hex(), err)
	}
	// A never-created pair reads back as the store's default value, which
	// the original ledger treats as a pending listing with zero quantity.
	if listing.Status == "" {
		listing.Status = domain.StatusPending
		listing.Rate = new(big.Int)
		listing.Quantity = new(big.Int)
	}

	if !listing.Status.Payable() {
		return fmt.Errorf("ledger: pay listing %s: %w", id.Hex(), domain.ErrInvalidListing)
	}
	if quantity.Cmp(listing.Quantity) > 0 {
		return fmt.Errorf("ledger: pay listing %s: %w", id.Hex(), domain.ErrInvalidQuantity)
	}

	price := new(big.Int).Mul(listing.Rate, quantity)
	if amount.Cmp(price) < 0 {
		return fmt.Errorf("ledger: pay listing %s: %w", id.Hex(), domain.ErrInvalidAmount)
	}

	// Fee is 0.1% of the unit rate, floor division. Overpayment beyond the
	// price is accepted and absorbed; only price - fee reaches the seller.
	fee := new(big.Int).Div(listing.Rate, feeDivisor)
	sellerAmount := new(big.Int).Sub(price, fee)

	if err := s.assets.TransferFrom(ctx, caller, seller, sellerAmount); err != nil {
		s.logger.WarnContext(ctx, "ledger: seller transfer failed",
			slog.String("id", id.Hex()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("ledger: pay listing %s: %w", id.Hex(), domain.ErrTransferFailed)
	}
	if err := s.assets.TransferFrom(ctx, caller, s.custodian, fee); err != nil {
		// Reverse the seller leg so the failed settlement leaves no trace.
		if revErr := s.assets.TransferFrom(ctx, seller, caller, sellerAmount); revErr != nil {
			s.logger.ErrorContext(ctx, "ledger: seller leg reversal failed",
				slog.String("id", id.Hex()),
				slog.String("error", revErr.Error()),
			)
		}
		s.logger.WarnContext(ctx, "ledger: fee transfer failed",
			slog.String("id", id.Hex()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("ledger: pay listing %s: %w", id.Hex(), domain.ErrTransferFailed)
	}

	listing.Buyer = caller
	listing.Quantity = new(big.Int).Sub(listing.Quantity, quantity)
	if listing.Quantity.Sign() == 0 {
		listing.Status = domain.StatusCompleted
	} else {
		listing.Status = domain.StatusPaid
	}

	if err := s.listings.Update(ctx, listing); err != nil {
		return fmt.Errorf("ledger: pay listing %s: %w", id.Hex(), err)
	}

	s.emit(ctx, domain.EventListingPaid, domain.ListingPaidEvent{
		ID:       id,
		Seller:   seller,
		Buyer:    caller,
		Amount:   new(big.Int).Set(amount),
		Quantity: new(big.Int).Set(quantity),
	})

	s.logger.InfoContext(ctx, "ledger: listing paid",
		slog.String("id", id.Hex()),
		slog.String("seller", seller.Hex()),
		slog.String("buyer", caller.Hex()),
		slog.String("amount", amount.String()),
		slog.String("quantity", quantity.String()),
		slog.String("status", string(listing.Status)),
	)
	return nil
}

// GetListing returns the listing at (id, seller), or ErrListingNotFound if
// the pair was never created.
func (s *Service) GetListing(ctx context.Context, id common.Hash, seller common.Address) (domain.Listing, error) {
	listing, err := s.listings.Get(ctx, id, seller)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("ledger: get listing %s: %w", id.Hex(), err)
	}
	if !listing.Exists() {
		return domain.Listing{}, fmt.Errorf("ledger: get listing %s: %w", id.Hex(), domain.ErrListingNotFound)
	}
	return listing, nil
}

// ListingsForSeller returns every listing the seller has created, in index
// insertion order. An empty result is ErrListingNotFound.
func (s *Service) ListingsForSeller(ctx context.Context, seller common.Address) ([]domain.Listing, error) {
	listings, err := s.listings.ListBySeller(ctx, seller)
	if err != nil {
		return nil, fmt.Errorf("ledger: list for %s: %w", seller.Hex(), err)
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("ledger: list for %s: %w", seller.Hex(), domain.ErrListingNotFound)
	}
	return listings, nil
}

// ListingIDs returns every listing id ever created, in insertion order.
func (s *Service) ListingIDs(ctx context.Context) ([]common.Hash, error) {
	ids, err := s.listings.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: list ids: %w", err)
	}
	return ids, nil
}

// AssetContract returns the asset contract identity recorded by Initialize,
// or the zero address before the first call.
func (s *Service) AssetContract(ctx context.Context) (common.Address, error) {
	addr, err := s.settings.AssetContract(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("ledger: asset contract: %w", err)
	}
	return addr, nil
}

// eventEnvelope is the wire form of a published event.
type eventEnvelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	EmittedAt time.Time `json:"emitted_at"`
	Data      any       `json:"data"`
}

// emit publishes an event to the durable stream and the pub/sub channel.
// Event delivery is best effort; failures are logged, never surfaced.
func (s *Service) emit(ctx context.Context, kind string, data any) {
	payload, err := json.Marshal(eventEnvelope{
		ID:        uuid.NewString(),
		Type:      kind,
		EmittedAt: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "ledger: marshal event failed",
			slog.String("type", kind),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.bus.StreamAppend(ctx, domain.EventStream, payload); err != nil {
		s.logger.WarnContext(ctx, "ledger: append event failed",
			slog.String("type", kind),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.Publish(ctx, domain.EventChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "ledger: publish event failed",
			slog.String("type", kind),
			slog.String("error", err.Error()),
		)
	}
}
