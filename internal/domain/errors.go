package domain

import "errors"

var (
	// ErrInvalidListing is returned when a payment targets a listing that is
	// not in a payable status.
	ErrInvalidListing = errors.New("invalid listing")
	// ErrInvalidQuantity is returned when a payment requests more quantity
	// than the listing has remaining.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidAmount is returned when a listing is created with a zero rate
	// or quantity, or when a payment amount does not cover the price.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidSeller is reserved for future seller validation. No current
	// operation returns it.
	ErrInvalidSeller = errors.New("invalid seller")
	// ErrTransferFailed is returned when the asset-transfer collaborator
	// rejects either leg of a settlement.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrListingNotFound is returned by queries for listings that were never
	// created.
	ErrListingNotFound = errors.New("listing not found")
	// ErrUnauthorized is reserved for future access control. No current
	// operation returns it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLockHeld is returned by Locker.Acquire when another settlement
	// already holds the lock.
	ErrLockHeld = errors.New("lock already held")
)
