package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event channel and stream names used by the ledger.
const (
	// EventChannel is the pub/sub channel for ephemeral event fan-out.
	EventChannel = "listings"
	// EventStream is the durable ordered log of emitted events.
	EventStream = "listings:log"
)

// Event kind identifiers carried in the envelope.
const (
	EventNewListing  = "new_listing"
	EventListingPaid = "listing_paid"
)

// NewListingEvent is emitted after a listing is created.
type NewListingEvent struct {
	ID       common.Hash    `json:"id"`
	Seller   common.Address `json:"seller"`
	Rate     *big.Int       `json:"rate"`
	Quantity *big.Int       `json:"quantity"`
}

// ListingPaidEvent is emitted after a payment settles against a listing.
// Quantity is the quantity claimed by this payment, not the remainder.
type ListingPaidEvent struct {
	ID       common.Hash    `json:"id"`
	Seller   common.Address `json:"seller"`
	Buyer    common.Address `json:"buyer"`
	Amount   *big.Int       `json:"amount"`
	Quantity *big.Int       `json:"quantity"`
}

// EventBus delivers ledger events to external observers. Delivery is a
// best-effort collaborator concern: the ledger logs publish failures but
// never fails an operation because of them.
type EventBus interface {
	// Publish fans a payload out to pub/sub subscribers of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// StreamAppend appends a payload to the named durable, ordered stream.
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// StreamMessage is one entry read back from the durable event log.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// EventLog is the read side of the durable event stream, consumed by the
// events endpoint for cursor-based replay.
type EventLog interface {
	// StreamRead returns up to count messages appended after lastID, oldest
	// first. Use "0" to read from the beginning.
	StreamRead(ctx context.Context, stream, lastID string, count int) ([]StreamMessage, error)
}
