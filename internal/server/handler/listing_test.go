package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

var (
	testID     = common.HexToHash("0x0000000000000000000000000000000000000000000000000000000000000001")
	testSeller = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testBuyer  = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

// stubLedger returns canned results and records the last call arguments.
type stubLedger struct {
	createErr error
	payErr    error
	listing   domain.Listing
	getErr    error
	listings  []domain.Listing
	listErr   error
	ids       []common.Hash
	idsErr    error

	lastCaller common.Address
	lastAmount *big.Int
}

func (s *stubLedger) CreateListing(ctx context.Context, id common.Hash, rate, quantity *big.Int, caller common.Address) error {
	s.lastCaller = caller
	return s.createErr
}

func (s *stubLedger) Pay(ctx context.Context, id common.Hash, seller common.Address, quantity, amount *big.Int, caller common.Address) error {
	s.lastCaller = caller
	s.lastAmount = amount
	return s.payErr
}

func (s *stubLedger) GetListing(ctx context.Context, id common.Hash, seller common.Address) (domain.Listing, error) {
	return s.listing, s.getErr
}

func (s *stubLedger) ListingsForSeller(ctx context.Context, seller common.Address) ([]domain.Listing, error) {
	return s.listings, s.listErr
}

func (s *stubLedger) ListingIDs(ctx context.Context) ([]common.Hash, error) {
	return s.ids, s.idsErr
}

func newListingMux(svc LedgerService) *http.ServeMux {
	h := NewListingHandler(svc, slog.New(slog.DiscardHandler))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/listings", h.ListIDs)
	mux.HandleFunc("POST /api/listings", h.CreateListing)
	mux.HandleFunc("GET /api/listings/{id}", h.GetListing)
	mux.HandleFunc("POST /api/listings/{id}/pay", h.Pay)
	mux.HandleFunc("GET /api/sellers/{seller}/listings", h.ListBySeller)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, caller, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateListingHandler(t *testing.T) {
	svc := &stubLedger{}
	mux := newListingMux(svc)

	body := fmt.Sprintf(`{"id":%q,"rate":"5000","quantity":"2"}`, testID.Hex())
	rec := doJSON(t, mux, http.MethodPost, "/api/listings", testSeller.Hex(), body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, testSeller, svc.lastCaller)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testID.Hex(), resp["id"])
	assert.Equal(t, "pending", resp["status"])
}

func TestCreateListingRequiresCallerHeader(t *testing.T) {
	mux := newListingMux(&stubLedger{})

	rec := doJSON(t, mux, http.MethodPost, "/api/listings", "", `{"id":"0x01","rate":"1","quantity":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), callerHeader)
}

func TestCreateListingRejectsBadInputs(t *testing.T) {
	mux := newListingMux(&stubLedger{})

	cases := []struct {
		name string
		body string
	}{
		{"bad id", `{"id":"nope","rate":"1","quantity":"1"}`},
		{"negative rate", fmt.Sprintf(`{"id":%q,"rate":"-1","quantity":"1"}`, testID.Hex())},
		{"non-numeric quantity", fmt.Sprintf(`{"id":%q,"rate":"1","quantity":"many"}`, testID.Hex())},
		{"not json", `rate=1`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/api/listings", testSeller.Hex(), tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateListingMapsInvalidAmount(t *testing.T) {
	svc := &stubLedger{createErr: fmt.Errorf("wrapped: %w", domain.ErrInvalidAmount)}
	mux := newListingMux(svc)

	body := fmt.Sprintf(`{"id":%q,"rate":"0","quantity":"1"}`, testID.Hex())
	rec := doJSON(t, mux, http.MethodPost, "/api/listings", testSeller.Hex(), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayHandlerSuccess(t *testing.T) {
	svc := &stubLedger{
		listing: domain.Listing{
			ID:       testID,
			Seller:   testSeller,
			Buyer:    testBuyer,
			Rate:     big.NewInt(5000),
			Quantity: big.NewInt(0),
			Status:   domain.StatusCompleted,
		},
	}
	mux := newListingMux(svc)

	body := fmt.Sprintf(`{"seller":%q,"quantity":"2","amount":"10000"}`, testSeller.Hex())
	rec := doJSON(t, mux, http.MethodPost, "/api/listings/"+testID.Hex()+"/pay", testBuyer.Hex(), body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testBuyer, svc.lastCaller)
	assert.Equal(t, int64(10_000), svc.lastAmount.Int64())

	var resp domain.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusCompleted, resp.Status)
}

func TestPayHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidListing, http.StatusConflict},
		{domain.ErrInvalidQuantity, http.StatusBadRequest},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrTransferFailed, http.StatusBadGateway},
		{domain.ErrLockHeld, http.StatusLocked},
		{fmt.Errorf("database down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			svc := &stubLedger{payErr: fmt.Errorf("ledger: %w", tc.err)}
			mux := newListingMux(svc)

			body := fmt.Sprintf(`{"seller":%q,"quantity":"1","amount":"100"}`, testSeller.Hex())
			rec := doJSON(t, mux, http.MethodPost, "/api/listings/"+testID.Hex()+"/pay", testBuyer.Hex(), body)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestGetListingHandler(t *testing.T) {
	svc := &stubLedger{
		listing: domain.Listing{
			ID:       testID,
			Seller:   testSeller,
			Rate:     big.NewInt(100),
			Quantity: big.NewInt(10),
			Status:   domain.StatusPending,
		},
	}
	mux := newListingMux(svc)

	rec := doJSON(t, mux, http.MethodGet, "/api/listings/"+testID.Hex()+"?seller="+testSeller.Hex(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testID, resp.ID)
	assert.Equal(t, domain.StatusPending, resp.Status)
}

func TestGetListingNotFound(t *testing.T) {
	svc := &stubLedger{getErr: fmt.Errorf("ledger: %w", domain.ErrListingNotFound)}
	mux := newListingMux(svc)

	rec := doJSON(t, mux, http.MethodGet, "/api/listings/"+testID.Hex()+"?seller="+testSeller.Hex(), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBySellerHandler(t *testing.T) {
	svc := &stubLedger{
		listings: []domain.Listing{
			{ID: testID, Seller: testSeller, Rate: big.NewInt(1), Quantity: big.NewInt(1), Status: domain.StatusPending},
		},
	}
	mux := newListingMux(svc)

	rec := doJSON(t, mux, http.MethodGet, "/api/sellers/"+testSeller.Hex()+"/listings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, testID, resp.Listings[0].ID)
}

func TestListIDsHandler(t *testing.T) {
	svc := &stubLedger{ids: []common.Hash{testID}}
	mux := newListingMux(svc)

	rec := doJSON(t, mux, http.MethodGet, "/api/listings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{testID.Hex()}, resp["ids"])
}
