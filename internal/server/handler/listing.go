package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

// LedgerService defines the methods the listing handler requires from the
// settlement ledger.
type LedgerService interface {
	CreateListing(ctx context.Context, id common.Hash, rate, quantity *big.Int, caller common.Address) error
	Pay(ctx context.Context, id common.Hash, seller common.Address, quantity, amount *big.Int, caller common.Address) error
	GetListing(ctx context.Context, id common.Hash, seller common.Address) (domain.Listing, error)
	ListingsForSeller(ctx context.Context, seller common.Address) ([]domain.Listing, error)
	ListingIDs(ctx context.Context) ([]common.Hash, error)
}

// ListingHandler serves listing and settlement HTTP endpoints.
type ListingHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

// NewListingHandler creates a ListingHandler with the given service and logger.
func NewListingHandler(ledger LedgerService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		ledger: ledger,
		logger: logger,
	}
}

// createListingRequest is the body for listing creation. Rate and quantity
// cross the API as decimal strings to preserve 256-bit precision.
type createListingRequest struct {
	ID       string `json:"id"`
	Rate     string `json:"rate"`
	Quantity string `json:"quantity"`
}

// CreateListing registers a new listing for the caller.
// POST /api/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := parseHash(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rate, err := parseBig(req.Rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rate: "+err.Error())
		return
	}
	quantity, err := parseBig(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "quantity: "+err.Error())
		return
	}

	if err := h.ledger.CreateListing(r.Context(), id, rate, quantity, caller); err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, "rate and quantity must be positive")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create listing failed",
			slog.String("id", id.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create listing")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":     id.Hex(),
		"seller": caller.Hex(),
		"status": string(domain.StatusPending),
	})
}

// payRequest is the body for a settlement call.
type payRequest struct {
	Seller   string `json:"seller"`
	Quantity string `json:"quantity"`
	Amount   string `json:"amount"`
}

// Pay settles a payment against a listing on behalf of the caller.
// POST /api/listings/{id}/pay
func (h *ListingHandler) Pay(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := parseHash(pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	seller, err := parseAddress(req.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "seller: "+err.Error())
		return
	}
	quantity, err := parseBig(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "quantity: "+err.Error())
		return
	}
	amount, err := parseBig(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount: "+err.Error())
		return
	}

	if err := h.ledger.Pay(r.Context(), id, seller, quantity, amount, caller); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidListing):
			writeError(w, http.StatusConflict, "listing is not payable")
		case errors.Is(err, domain.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, "requested quantity exceeds remaining quantity")
		case errors.Is(err, domain.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "amount does not cover the price")
		case errors.Is(err, domain.ErrTransferFailed):
			writeError(w, http.StatusBadGateway, "asset transfer failed")
		case errors.Is(err, domain.ErrLockHeld):
			writeError(w, http.StatusLocked, "another settlement against this listing is in progress")
		default:
			h.logger.ErrorContext(r.Context(), "handler: pay failed",
				slog.String("id", id.Hex()),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to settle payment")
		}
		return
	}

	listing, err := h.ledger.GetListing(r.Context(), id, seller)
	if err != nil {
		// The payment settled; report success even if the read-back failed.
		h.logger.WarnContext(r.Context(), "handler: read back after pay failed",
			slog.String("id", id.Hex()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// GetListing returns a single listing by id and seller.
// GET /api/listings/{id}?seller=0x...
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	seller, err := parseAddress(r.URL.Query().Get("seller"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "seller: "+err.Error())
		return
	}

	listing, err := h.ledger.GetListing(r.Context(), id, seller)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get listing failed",
			slog.String("id", id.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get listing")
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// listingsResponse wraps the seller listings response.
type listingsResponse struct {
	Listings []domain.Listing `json:"listings"`
}

// ListBySeller returns every listing a seller has created, in creation order.
// GET /api/sellers/{seller}/listings
func (h *ListingHandler) ListBySeller(w http.ResponseWriter, r *http.Request) {
	seller, err := parseAddress(pathParam(r, "seller"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "seller: "+err.Error())
		return
	}

	listings, err := h.ledger.ListingsForSeller(r.Context(), seller)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, "no listings for seller")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: list by seller failed",
			slog.String("seller", seller.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list listings")
		return
	}

	writeJSON(w, http.StatusOK, listingsResponse{Listings: listings})
}

// ListIDs returns every listing id ever created, in creation order.
// GET /api/listings
func (h *ListingHandler) ListIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.ledger.ListingIDs(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list ids failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list ids")
		return
	}

	hexIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		hexIDs = append(hexIDs, id.Hex())
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": hexIDs})
}
