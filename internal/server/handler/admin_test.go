package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdmin returns canned results and records the last contract set.
type stubAdmin struct {
	initErr      error
	contract     common.Address
	contractErr  error
	lastContract common.Address
}

func (s *stubAdmin) Initialize(ctx context.Context, caller, assetContract common.Address) error {
	s.lastContract = assetContract
	return s.initErr
}

func (s *stubAdmin) AssetContract(ctx context.Context) (common.Address, error) {
	return s.contract, s.contractErr
}

func newAdminMux(svc AdminService) *http.ServeMux {
	h := NewAdminHandler(svc, slog.New(slog.DiscardHandler))
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/admin/asset-contract", h.Initialize)
	mux.HandleFunc("GET /api/admin/asset-contract", h.GetAssetContract)
	return mux
}

func TestInitializeHandler(t *testing.T) {
	svc := &stubAdmin{}
	mux := newAdminMux(svc)
	contract := common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")

	body := fmt.Sprintf(`{"asset_contract":%q}`, contract.Hex())
	rec := doJSON(t, mux, http.MethodPut, "/api/admin/asset-contract", testSeller.Hex(), body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contract, svc.lastContract)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, contract.Hex(), resp["asset_contract"])
}

func TestInitializeHandlerRejectsBadAddress(t *testing.T) {
	mux := newAdminMux(&stubAdmin{})

	rec := doJSON(t, mux, http.MethodPut, "/api/admin/asset-contract", testSeller.Hex(), `{"asset_contract":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitializeHandlerRequiresCaller(t *testing.T) {
	mux := newAdminMux(&stubAdmin{})

	rec := doJSON(t, mux, http.MethodPut, "/api/admin/asset-contract", "", `{"asset_contract":"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAssetContractHandler(t *testing.T) {
	contract := common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	mux := newAdminMux(&stubAdmin{contract: contract})

	rec := doJSON(t, mux, http.MethodGet, "/api/admin/asset-contract", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, contract.Hex(), resp["asset_contract"])
}
