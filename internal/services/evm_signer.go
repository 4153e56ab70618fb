package services

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
)

// Treasury methods invoked with platform-admin credentials. Pledge
// registration must happen before the backer's own pledge transaction.
const treasuryMethodABI = `[
	{
		"inputs": [
			{"name": "pledgeId", "type": "bytes32"},
			{"name": "fee", "type": "uint256"}
		],
		"name": "setPaymentGatewayFee",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "withdraw",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// TreasurySigner submits privileged transactions against a campaign treasury
// and waits for their confirmation. Implementations must be safe for
// concurrent use across unrelated subjects.
type TreasurySigner interface {
	RegisterPledge(ctx context.Context, treasuryAddress, pledgeID string, gatewayFee *big.Int) (string, error)
	ExecuteWithdrawal(ctx context.Context, treasuryAddress, recipient string, amount *big.Int) (string, error)
	// WaitForConfirmation polls for the transaction receipt until ctx ends.
	// A context deadline maps to a TimeoutError: the transaction may still
	// be mined, so the caller must treat this as unconfirmed, not failed.
	WaitForConfirmation(ctx context.Context, txHash string) error
}

type evmSigner struct {
	rpcURL      string
	privateKey  *ecdsa.PrivateKey
	fromAddress common.Address
	treasuryABI abi.ABI
	gasLimit    uint64
}

// NewEvmSigner creates a TreasurySigner from a hex-encoded platform admin
// private key.
func NewEvmSigner(rpcURL, privateKeyHex string) (TreasurySigner, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(treasuryMethodABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse treasury ABI: %w", err)
	}

	return &evmSigner{
		rpcURL:      rpcURL,
		privateKey:  privateKey,
		fromAddress: crypto.PubkeyToAddress(privateKey.PublicKey),
		treasuryABI: parsed,
		gasLimit:    300000,
	}, nil
}

func (s *evmSigner) RegisterPledge(ctx context.Context, treasuryAddress, pledgeID string, gatewayFee *big.Int) (string, error) {
	var pledgeIDBytes [32]byte
	decoded := common.FromHex(pledgeID)
	if len(decoded) != 32 {
		return "", apperrors.NewParameter("pledge id %q is not a 32-byte hex value", pledgeID)
	}
	copy(pledgeIDBytes[:], decoded)

	data, err := s.treasuryABI.Pack("setPaymentGatewayFee", pledgeIDBytes, gatewayFee)
	if err != nil {
		return "", fmt.Errorf("failed to encode setPaymentGatewayFee call: %w", err)
	}
	return s.submit(ctx, treasuryAddress, data)
}

func (s *evmSigner) ExecuteWithdrawal(ctx context.Context, treasuryAddress, recipient string, amount *big.Int) (string, error) {
	data, err := s.treasuryABI.Pack("withdraw", common.HexToAddress(recipient), amount)
	if err != nil {
		return "", fmt.Errorf("failed to encode withdraw call: %w", err)
	}
	return s.submit(ctx, treasuryAddress, data)
}

func (s *evmSigner) submit(ctx context.Context, contractAddress string, data []byte) (string, error) {
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return "", apperrors.NewUpstream(err, "failed to dial RPC")
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return "", apperrors.NewUpstream(err, "failed to get chain id")
	}
	nonce, err := client.PendingNonceAt(ctx, s.fromAddress)
	if err != nil {
		return "", apperrors.NewUpstream(err, "failed to get nonce")
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", apperrors.NewUpstream(err, "failed to get gas price")
	}

	to := common.HexToAddress(contractAddress)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      s.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return "", apperrors.NewUpstream(err, "failed to send transaction")
	}
	return signedTx.Hash().Hex(), nil
}

func (s *evmSigner) WaitForConfirmation(ctx context.Context, txHash string) error {
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return apperrors.NewUpstream(err, "failed to dial RPC")
	}
	defer client.Close()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	hash := common.HexToHash(txHash)
	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return fmt.Errorf("transaction %s reverted", txHash)
		}

		select {
		case <-ctx.Done():
			return apperrors.NewTimeout("transaction %s unconfirmed after wait; it may still be mined", txHash)
		case <-ticker.C:
		}
	}
}
