// Package domain defines the core types, sentinel errors, and collaborator
// interfaces for the merchantpay settlement ledger.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Status represents the lifecycle state of a listing.
type Status string

const (
	// StatusPending marks a listing that has never been paid against.
	StatusPending Status = "pending"
	// StatusPaid marks a partially fulfilled listing with quantity remaining.
	StatusPaid Status = "paid"
	// StatusCompleted marks a listing whose quantity reached zero.
	StatusCompleted Status = "completed"
	// StatusCancelled is reserved for a future cancel operation. No current
	// operation transitions a listing into or out of this state.
	StatusCancelled Status = "cancelled"
)

// Payable reports whether a listing in this status can still accept payments.
func (s Status) Payable() bool {
	return s == StatusPending || s == StatusPaid
}

// Listing is a seller's offer to sell a bounded quantity at a fixed unit
// rate. Listings are addressed by the composite key (ID, Seller); two
// different sellers may register the same ID independently.
type Listing struct {
	ID       common.Hash    `json:"id"`
	Seller   common.Address `json:"seller"`
	Buyer    common.Address `json:"buyer"`
	Rate     *big.Int       `json:"rate"`
	Quantity *big.Int       `json:"quantity"`
	Status   Status         `json:"status"`
}

// Exists reports whether the listing was ever created. A zero seller address
// is the never-created default value of the backing store.
func (l Listing) Exists() bool {
	return l.Seller != (common.Address{})
}

// Copy returns a deep copy of the listing so callers can mutate amounts
// without aliasing store-held big integers.
func (l Listing) Copy() Listing {
	c := l
	if l.Rate != nil {
		c.Rate = new(big.Int).Set(l.Rate)
	}
	if l.Quantity != nil {
		c.Quantity = new(big.Int).Set(l.Quantity)
	}
	return c
}
