package memory

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

func testListing(id byte, seller byte) domain.Listing {
	return domain.Listing{
		ID:       common.Hash{id},
		Seller:   common.Address{seller},
		Rate:     big.NewInt(100),
		Quantity: big.NewInt(10),
		Status:   domain.StatusPending,
	}
}

func TestCreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := testListing(1, 1)

	require.NoError(t, s.Create(ctx, l))

	got, err := s.Get(ctx, l.ID, l.Seller)
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestGetNeverCreatedReturnsZeroValue(t *testing.T) {
	s := New()

	got, err := s.Get(context.Background(), common.Hash{9}, common.Address{9})
	require.NoError(t, err)
	assert.Equal(t, domain.Listing{}, got)
	assert.False(t, got.Exists())
}

func TestCreateDeduplicatesIndexes(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := testListing(1, 1)

	require.NoError(t, s.Create(ctx, l))
	l.Rate = big.NewInt(200)
	require.NoError(t, s.Create(ctx, l))

	ids, err := s.AllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{l.ID}, ids)

	listings, err := s.ListBySeller(ctx, l.Seller)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, int64(200), listings[0].Rate.Int64())
}

func TestIndexOrderIsInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := byte(1); i <= 5; i++ {
		require.NoError(t, s.Create(ctx, testListing(i, 1)))
	}

	ids, err := s.AllIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 5)
	for i := byte(1); i <= 5; i++ {
		assert.Equal(t, common.Hash{i}, ids[i-1])
	}

	listings, err := s.ListBySeller(ctx, common.Address{1})
	require.NoError(t, err)
	require.Len(t, listings, 5)
	assert.Equal(t, common.Hash{1}, listings[0].ID)
	assert.Equal(t, common.Hash{5}, listings[4].ID)
}

func TestUpdateUnknownListingFails(t *testing.T) {
	s := New()

	err := s.Update(context.Background(), testListing(1, 1))
	require.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestUpdateReplacesListing(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := testListing(1, 1)
	require.NoError(t, s.Create(ctx, l))

	l.Quantity = big.NewInt(0)
	l.Status = domain.StatusCompleted
	l.Buyer = common.Address{7}
	require.NoError(t, s.Update(ctx, l))

	got, err := s.Get(ctx, l.ID, l.Seller)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, common.Address{7}, got.Buyer)
}

func TestGetCopiesAmounts(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := testListing(1, 1)
	require.NoError(t, s.Create(ctx, l))

	got, err := s.Get(ctx, l.ID, l.Seller)
	require.NoError(t, err)
	got.Quantity.SetInt64(0)

	again, err := s.Get(ctx, l.ID, l.Seller)
	require.NoError(t, err)
	assert.Equal(t, int64(10), again.Quantity.Int64())
}

func TestSameIDAcrossSellers(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := testListing(1, 1)
	b := testListing(1, 2)
	b.Rate = big.NewInt(300)
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))

	ids, err := s.AllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{{1}}, ids)

	gotA, err := s.Get(ctx, a.ID, a.Seller)
	require.NoError(t, err)
	gotB, err := s.Get(ctx, b.ID, b.Seller)
	require.NoError(t, err)
	assert.Equal(t, int64(100), gotA.Rate.Int64())
	assert.Equal(t, int64(300), gotB.Rate.Int64())
}

func TestLockerExclusion(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "settle:x", 0)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "settle:x", 0)
	require.ErrorIs(t, err, domain.ErrLockHeld)

	// A different key is independent.
	other, err := l.Acquire(ctx, "settle:y", 0)
	require.NoError(t, err)
	other()

	// Double release is a no-op; the key is reacquirable after the first.
	unlock()
	unlock()
	again, err := l.Acquire(ctx, "settle:x", 0)
	require.NoError(t, err)
	again()
}

func TestAssetContractRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	got, err := s.AssetContract(ctx)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, got)

	addr := common.Address{0xee}
	require.NoError(t, s.SetAssetContract(ctx, addr))

	got, err = s.AssetContract(ctx)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}
