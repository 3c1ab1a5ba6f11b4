// Package memory implements the domain store interfaces with in-process
// maps. It backs paper mode and tests, where no database is available.
package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

type listingKey struct {
	id     common.Hash
	seller common.Address
}

// Store holds listings, both enumeration indexes, and settings in memory.
// Index membership is tracked with presence sets so dedup on create is O(1)
// while the ordered slices preserve insertion order for enumeration.
type Store struct {
	mu sync.RWMutex

	listings map[listingKey]domain.Listing

	ids    []common.Hash
	idSeen map[common.Hash]struct{}

	sellerIDs  map[common.Address][]common.Hash
	sellerSeen map[common.Address]map[common.Hash]struct{}

	assetContract common.Address
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		listings:   make(map[listingKey]domain.Listing),
		idSeen:     make(map[common.Hash]struct{}),
		sellerIDs:  make(map[common.Address][]common.Hash),
		sellerSeen: make(map[common.Address]map[common.Hash]struct{}),
	}
}

// Create writes the listing and records its id in the global and per-seller
// indexes, deduplicated. An existing (id, seller) pair is overwritten.
func (s *Store) Create(ctx context.Context, l domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings[listingKey{l.ID, l.Seller}] = l.Copy()

	if _, ok := s.idSeen[l.ID]; !ok {
		s.idSeen[l.ID] = struct{}{}
		s.ids = append(s.ids, l.ID)
	}

	seen, ok := s.sellerSeen[l.Seller]
	if !ok {
		seen = make(map[common.Hash]struct{})
		s.sellerSeen[l.Seller] = seen
	}
	if _, ok := seen[l.ID]; !ok {
		seen[l.ID] = struct{}{}
		s.sellerIDs[l.Seller] = append(s.sellerIDs[l.Seller], l.ID)
	}

	return nil
}

// Update replaces the stored listing for (l.ID, l.Seller).
func (s *Store) Update(ctx context.Context, l domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := listingKey{l.ID, l.Seller}
	if _, ok := s.listings[key]; !ok {
		return domain.ErrListingNotFound
	}
	s.listings[key] = l.Copy()
	return nil
}

// Get returns the stored listing, or the zero-value Listing when the pair
// was never created.
func (s *Store) Get(ctx context.Context, id common.Hash, seller common.Address) (domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[listingKey{id, seller}]
	if !ok {
		return domain.Listing{}, nil
	}
	return l.Copy(), nil
}

// ListBySeller resolves the seller's index in insertion order, skipping ids
// that never materialized into a stored listing.
func (s *Store) ListBySeller(ctx context.Context, seller common.Address) ([]domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Listing
	for _, id := range s.sellerIDs[seller] {
		l, ok := s.listings[listingKey{id, seller}]
		if !ok || !l.Exists() {
			continue
		}
		out = append(out, l.Copy())
	}
	return out, nil
}

// AllIDs returns every listing id ever created, in insertion order.
func (s *Store) AllIDs(ctx context.Context) ([]common.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Hash, len(s.ids))
	copy(out, s.ids)
	return out, nil
}

// SetAssetContract records the asset contract identity.
func (s *Store) SetAssetContract(ctx context.Context, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetContract = addr
	return nil
}

// AssetContract returns the recorded contract address, or the zero address
// when none has been set.
func (s *Store) AssetContract(ctx context.Context) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assetContract, nil
}

// Compile-time interface checks.
var (
	_ domain.ListingStore  = (*Store)(nil)
	_ domain.SettingsStore = (*Store)(nil)
)
