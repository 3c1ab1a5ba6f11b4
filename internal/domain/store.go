package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ListingStore persists listings keyed by (id, seller) and maintains the
// enumeration indexes: the global append-only deduplicated id sequence and a
// per-seller id sequence. Implementations must apply each call atomically;
// a failed call leaves no partial index or listing state behind.
type ListingStore interface {
	// Create writes the listing and records its id in both indexes,
	// deduplicated. Re-creating an existing (id, seller) pair overwrites the
	// stored listing without touching the indexes.
	Create(ctx context.Context, l Listing) error

	// Update replaces the stored listing for (l.ID, l.Seller). It returns
	// ErrListingNotFound if the pair was never created.
	Update(ctx context.Context, l Listing) error

	// Get returns the listing stored at (id, seller). A pair that was never
	// created yields the zero-value Listing and no error, mirroring default
	// mapping semantics; callers decide what absence means.
	Get(ctx context.Context, id common.Hash, seller common.Address) (Listing, error)

	// ListBySeller resolves the seller's index sequence in insertion order,
	// skipping ids that never materialized into a stored listing.
	ListBySeller(ctx context.Context, seller common.Address) ([]Listing, error)

	// AllIDs returns every listing id ever created, deduplicated, in
	// insertion order.
	AllIDs(ctx context.Context) ([]common.Hash, error)
}

// SettingsStore persists process-wide configuration state, currently only
// the asset contract identity recorded by Initialize.
type SettingsStore interface {
	SetAssetContract(ctx context.Context, addr common.Address) error
	// AssetContract returns the recorded contract address, or the zero
	// address when Initialize has never been called.
	AssetContract(ctx context.Context) (common.Address, error)
}
