package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// AdminService defines the configuration operations the admin handler needs.
type AdminService interface {
	Initialize(ctx context.Context, caller, assetContract common.Address) error
	AssetContract(ctx context.Context) (common.Address, error)
}

// AdminHandler serves the asset-contract configuration endpoints. The set
// operation carries no caller restriction beyond the server-wide API key;
// anyone holding the key may retarget the asset contract at any time.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given service and logger.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger,
	}
}

// initializeRequest is the body for the asset-contract set operation.
type initializeRequest struct {
	AssetContract string `json:"asset_contract"`
}

// Initialize records the asset contract identity.
// PUT /api/admin/asset-contract
func (h *AdminHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	contract, err := parseAddress(req.AssetContract)
	if err != nil {
		writeError(w, http.StatusBadRequest, "asset_contract: "+err.Error())
		return
	}

	if err := h.admin.Initialize(r.Context(), caller, contract); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: initialize failed",
			slog.String("contract", contract.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to set asset contract")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"asset_contract": contract.Hex(),
	})
}

// GetAssetContract returns the currently recorded asset contract identity.
// GET /api/admin/asset-contract
func (h *AdminHandler) GetAssetContract(w http.ResponseWriter, r *http.Request) {
	contract, err := h.admin.AssetContract(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get asset contract failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get asset contract")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"asset_contract": contract.Hex(),
	})
}
