// Package asset implements the fungible-asset transfer collaborator that the
// settlement engine calls out to: an ERC-20 contract on an EVM chain, plus an
// in-memory balance book for paper mode and tests.
package asset

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

// erc20ABI is the minimal fragment the settlement engine needs. The caller
// must have approved the custodian account for transferFrom to succeed.
const erc20ABI = `[{
	"name": "transferFrom",
	"type": "function",
	"inputs": [
		{"name": "from", "type": "address"},
		{"name": "to", "type": "address"},
		{"name": "amount", "type": "uint256"}
	],
	"outputs": [{"name": "", "type": "bool"}]
}]`

// fallbackGasLimit is used when gas estimation fails against the node.
const fallbackGasLimit = 120_000

// ERC20Transferer moves tokens via transferFrom transactions signed with the
// custodian key and submitted through an Ethereum JSON-RPC client.
type ERC20Transferer struct {
	client    *ethclient.Client
	abi       abi.ABI
	key       *ecdsa.PrivateKey
	custodian common.Address
	chainID   *big.Int

	mu    sync.RWMutex
	token common.Address
}

// NewERC20Transferer dials the RPC endpoint and prepares a transferer that
// signs with the given hex-encoded private key.
func NewERC20Transferer(ctx context.Context, rpcURL, privateKeyHex string, chainID int64) (*ERC20Transferer, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("asset: parse custodian key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("asset: dial %s: %w", rpcURL, err)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("asset: parse erc20 abi: %w", err)
	}

	return &ERC20Transferer{
		client:    client,
		abi:       parsed,
		key:       key,
		custodian: ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID:   big.NewInt(chainID),
	}, nil
}

// Custodian returns the address derived from the signing key. Platform fees
// settle into this account.
func (t *ERC20Transferer) Custodian() common.Address {
	return t.custodian
}

// SetContract retargets the transferer at a new token contract.
func (t *ERC20Transferer) SetContract(addr common.Address) {
	t.mu.Lock()
	t.token = addr
	t.mu.Unlock()
}

// Contract returns the token contract currently targeted.
func (t *ERC20Transferer) Contract() common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// Close releases the underlying RPC client.
func (t *ERC20Transferer) Close() {
	t.client.Close()
}

// TransferFrom submits a signed transferFrom transaction and waits for it to
// be mined. A reverted receipt is reported as an error.
func (t *ERC20Transferer) TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error {
	token := t.Contract()
	if token == (common.Address{}) {
		return fmt.Errorf("asset: no token contract configured")
	}

	data, err := t.abi.Pack("transferFrom", from, to, amount)
	if err != nil {
		return fmt.Errorf("asset: pack transferFrom: %w", err)
	}

	nonce, err := t.client.PendingNonceAt(ctx, t.custodian)
	if err != nil {
		return fmt.Errorf("asset: pending nonce: %w", err)
	}

	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("asset: suggest gas price: %w", err)
	}

	gasLimit, err := t.client.EstimateGas(ctx, ethereum.CallMsg{
		From: t.custodian,
		To:   &token,
		Data: data,
	})
	if err != nil {
		gasLimit = fallbackGasLimit
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &token,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(t.chainID), t.key)
	if err != nil {
		return fmt.Errorf("asset: sign transferFrom: %w", err)
	}

	if err := t.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("asset: send transferFrom: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, t.client, signed)
	if err != nil {
		return fmt.Errorf("asset: wait mined %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("asset: transferFrom %s reverted", signed.Hash().Hex())
	}

	return nil
}

// Compile-time interface check.
var _ domain.AssetTransferer = (*ERC20Transferer)(nil)
