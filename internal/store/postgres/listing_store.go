package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a ListingStore backed by the given connection pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Create upserts the listing and records its id in the global and per-seller
// indexes inside one transaction. ON CONFLICT DO NOTHING on the index tables
// gives the append-only dedup without a membership scan.
func (s *ListingStore) Create(ctx context.Context, l domain.Listing) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin create listing: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsert = `
		INSERT INTO listings (id, seller, buyer, rate, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id, seller) DO UPDATE SET
			buyer = EXCLUDED.buyer,
			rate = EXCLUDED.rate,
			quantity = EXCLUDED.quantity,
			status = EXCLUDED.status,
			updated_at = NOW()`
	if _, err := tx.Exec(ctx, upsert,
		l.ID.Hex(), l.Seller.Hex(), l.Buyer.Hex(),
		l.Rate.String(), l.Quantity.String(), string(l.Status),
	); err != nil {
		return fmt.Errorf("postgres: upsert listing %s: %w", l.ID.Hex(), err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO listing_keys (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		l.ID.Hex(),
	); err != nil {
		return fmt.Errorf("postgres: index listing key %s: %w", l.ID.Hex(), err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO seller_listings (seller, id) VALUES ($1, $2)
		 ON CONFLICT (seller, id) DO NOTHING`,
		l.Seller.Hex(), l.ID.Hex(),
	); err != nil {
		return fmt.Errorf("postgres: index seller listing %s: %w", l.ID.Hex(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit create listing: %w", err)
	}
	return nil
}

// Update replaces the stored listing for (l.ID, l.Seller).
func (s *ListingStore) Update(ctx context.Context, l domain.Listing) error {
	const query = `
		UPDATE listings
		SET buyer = $1, quantity = $2, status = $3, updated_at = NOW()
		WHERE id = $4 AND seller = $5`
	tag, err := s.pool.Exec(ctx, query,
		l.Buyer.Hex(), l.Quantity.String(), string(l.Status),
		l.ID.Hex(), l.Seller.Hex(),
	)
	if err != nil {
		return fmt.Errorf("postgres: update listing %s: %w", l.ID.Hex(), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

const listingSelectCols = `id, seller, buyer, rate, quantity, status`

func scanListing(scanner interface{ Scan(dest ...any) error }) (domain.Listing, error) {
	var l domain.Listing
	var id, seller, buyer, rate, quantity, status string

	if err := scanner.Scan(&id, &seller, &buyer, &rate, &quantity, &status); err != nil {
		return domain.Listing{}, err
	}

	l.ID = common.HexToHash(id)
	l.Seller = common.HexToAddress(seller)
	l.Buyer = common.HexToAddress(buyer)
	l.Status = domain.Status(status)

	l.Rate = new(big.Int)
	if _, ok := l.Rate.SetString(rate, 10); !ok {
		return domain.Listing{}, fmt.Errorf("postgres: malformed rate %q", rate)
	}
	l.Quantity = new(big.Int)
	if _, ok := l.Quantity.SetString(quantity, 10); !ok {
		return domain.Listing{}, fmt.Errorf("postgres: malformed quantity %q", quantity)
	}

	return l, nil
}

// Get returns the listing stored at (id, seller), or the zero-value Listing
// when the pair was never created.
func (s *ListingStore) Get(ctx context.Context, id common.Hash, seller common.Address) (domain.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingSelectCols+` FROM listings WHERE id = $1 AND seller = $2`,
		id.Hex(), seller.Hex())

	l, err := scanListing(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Listing{}, nil
		}
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s: %w", id.Hex(), err)
	}
	return l, nil
}

// ListBySeller resolves the seller's index in insertion order. The inner
// join naturally drops index entries whose listing never materialized.
func (s *ListingStore) ListBySeller(ctx context.Context, seller common.Address) ([]domain.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT l.id, l.seller, l.buyer, l.rate, l.quantity, l.status
		 FROM seller_listings sl
		 JOIN listings l ON l.id = sl.id AND l.seller = sl.seller
		 WHERE sl.seller = $1
		 ORDER BY sl.seq`,
		seller.Hex())
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings for %s: %w", seller.Hex(), err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing for %s: %w", seller.Hex(), err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate listings for %s: %w", seller.Hex(), err)
	}
	return listings, nil
}

// AllIDs returns every listing id ever created, in insertion order.
func (s *ListingStore) AllIDs(ctx context.Context) ([]common.Hash, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM listing_keys ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ids: %w", err)
	}
	defer rows.Close()

	var ids []common.Hash
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan id: %w", err)
		}
		ids = append(ids, common.HexToHash(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate ids: %w", err)
	}
	return ids, nil
}

// Compile-time interface check.
var _ domain.ListingStore = (*ListingStore)(nil)
