package asset

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

// Ledger is an in-memory balance book implementing domain.AssetTransferer.
// It backs paper mode and tests, where no chain is available.
type Ledger struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	token    common.Address
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[common.Address]*big.Int)}
}

// SetContract records the token identity. The ledger tracks a single asset,
// so this only affects what Contract reports.
func (l *Ledger) SetContract(addr common.Address) {
	l.mu.Lock()
	l.token = addr
	l.mu.Unlock()
}

// Contract returns the recorded token identity.
func (l *Ledger) Contract() common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token
}

// Credit adds amount to the account's balance.
func (l *Ledger) Credit(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balanceLocked(addr)
	b.Add(b, amount)
}

// BalanceOf returns the account's current balance.
func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceLocked(addr))
}

// TransferFrom moves amount between accounts, failing when the source
// balance is insufficient.
func (l *Ledger) TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("asset: negative transfer amount")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	src := l.balanceLocked(from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("asset: insufficient balance for %s", from.Hex())
	}
	src.Sub(src, amount)
	dst := l.balanceLocked(to)
	dst.Add(dst, amount)
	return nil
}

func (l *Ledger) balanceLocked(addr common.Address) *big.Int {
	b, ok := l.balances[addr]
	if !ok {
		b = new(big.Int)
		l.balances[addr] = b
	}
	return b
}

// Compile-time interface check.
var _ domain.AssetTransferer = (*Ledger)(nil)
