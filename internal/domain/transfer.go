package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetTransferer moves fungible assets between identities on behalf of the
// settlement engine. Callers are expected to have pre-authorized the
// settlement system to move funds from their account; any non-success result
// is surfaced to the ledger as ErrTransferFailed.
type AssetTransferer interface {
	// SetContract retargets the transferer at a new asset contract identity.
	SetContract(addr common.Address)

	// TransferFrom moves amount from one identity to another. It blocks
	// until the transfer is confirmed or fails.
	TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error
}
