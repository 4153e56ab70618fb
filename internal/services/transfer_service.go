package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/constants"
	"github.com/fundmatch-labs/fundmatch/internal/models"
	"github.com/fundmatch-labs/fundmatch/internal/utils"
)

// Treasury contract events relevant to settlement. Receipt fires on a pledge,
// WithdrawalWithFeeSuccessful on an executed withdrawal.
const treasuryEventABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "backer", "type": "address"},
			{"indexed": true, "name": "reward", "type": "bytes32"},
			{"indexed": false, "name": "pledgeAmount", "type": "uint256"},
			{"indexed": false, "name": "tip", "type": "uint256"},
			{"indexed": false, "name": "tokenId", "type": "uint256"},
			{"indexed": false, "name": "rewards", "type": "bytes32[]"}
		],
		"name": "Receipt",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "amount", "type": "uint256"},
			{"indexed": false, "name": "fee", "type": "uint256"}
		],
		"name": "WithdrawalWithFeeSuccessful",
		"type": "event"
	}
]`

// Treasury contracts see little traffic, but public RPC endpoints time out on
// unbounded log scans; ~4 weeks of blocks covers an active campaign.
const treasuryScanBlocks = 200000

// TransferReader retrieves token-transfer-level activity for a treasury
// address. Decoded contract events are preferred; a block-explorer transfer
// scan is the generic fallback, with alternate RPC endpoints tried when the
// primary claims the treasury has no contract code (stale routing).
type TransferReader interface {
	GetTreasuryEvents(ctx context.Context, treasuryAddress string) ([]models.TokenTransfer, error)
	GetRawTransfers(ctx context.Context, treasuryAddress string) ([]models.TokenTransfer, error)
	// FetchTransfers combines both paths: events first, explorer scan when
	// events are unavailable or empty.
	FetchTransfers(ctx context.Context, treasuryAddress string) ([]models.TokenTransfer, error)
}

type transferService struct {
	endpoints      []string // ordered; first is primary
	explorer       *utils.ExplorerClient
	stableSymbol   string
	stableDecimals int
	treasuryABI    abi.ABI
}

// NewTransferService creates a TransferReader over the given ordered RPC
// endpoints and optional explorer client (nil disables the explorer path).
func NewTransferService(endpoints []string, explorer *utils.ExplorerClient) (TransferReader, error) {
	parsed, err := abi.JSON(strings.NewReader(treasuryEventABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse treasury ABI: %w", err)
	}
	return &transferService{
		endpoints:      endpoints,
		explorer:       explorer,
		stableSymbol:   "USDC",
		stableDecimals: constants.DefaultTokenDecimals,
		treasuryABI:    parsed,
	}, nil
}

func (s *transferService) GetTreasuryEvents(ctx context.Context, treasuryAddress string) ([]models.TokenTransfer, error) {
	if len(s.endpoints) == 0 {
		return nil, apperrors.NewUpstream(nil, "no RPC endpoints configured")
	}

	var lastErr error
	for _, endpoint := range s.endpoints {
		// An endpoint that reports no code at the treasury is routed to the
		// wrong network or lagging; skip to the next one instead of failing.
		hasCode, err := utils.NewRPCClient(endpoint).HasContractCode(treasuryAddress)
		if err != nil {
			lastErr = err
			continue
		}
		if !hasCode {
			continue
		}

		transfers, err := s.scanTreasuryLogs(ctx, endpoint, treasuryAddress)
		if err != nil {
			lastErr = err
			continue
		}
		return transfers, nil
	}

	if lastErr != nil {
		return nil, apperrors.NewUpstream(lastErr, "failed to read treasury events for %s", treasuryAddress)
	}
	// No endpoint sees contract code: nothing deployed yet, nothing to read.
	return nil, nil
}

func (s *transferService) scanTreasuryLogs(ctx context.Context, endpoint, treasuryAddress string) ([]models.TokenTransfer, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	defer client.Close()

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block number: %w", err)
	}
	fromBlock := uint64(0)
	if head > treasuryScanBlocks {
		fromBlock = head - treasuryScanBlocks
	}

	receiptEvent := s.treasuryABI.Events["Receipt"]
	withdrawalEvent := s.treasuryABI.Events["WithdrawalWithFeeSuccessful"]

	logs, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{common.HexToAddress(treasuryAddress)},
		Topics:    [][]common.Hash{{receiptEvent.ID, withdrawalEvent.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter treasury logs: %w", err)
	}

	transfers := make([]models.TokenTransfer, 0, len(logs))
	for _, entry := range logs {
		if entry.Removed || len(entry.Topics) == 0 {
			continue
		}
		switch entry.Topics[0] {
		case receiptEvent.ID:
			transfer, err := s.decodeReceipt(entry, treasuryAddress)
			if err != nil {
				continue
			}
			transfers = append(transfers, transfer)
		case withdrawalEvent.ID:
			transfer, err := s.decodeWithdrawal(entry, treasuryAddress)
			if err != nil {
				continue
			}
			transfers = append(transfers, transfer)
		}
	}
	return transfers, nil
}

func (s *transferService) decodeReceipt(entry types.Log, treasuryAddress string) (models.TokenTransfer, error) {
	values, err := s.treasuryABI.Events["Receipt"].Inputs.NonIndexed().Unpack(entry.Data)
	if err != nil || len(values) < 2 {
		return models.TokenTransfer{}, fmt.Errorf("failed to unpack Receipt event: %w", err)
	}
	pledgeAmount, ok1 := values[0].(*big.Int)
	tip, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 || len(entry.Topics) < 2 {
		return models.TokenTransfer{}, fmt.Errorf("malformed Receipt event")
	}

	// Pledge and tip both land in the treasury; the transfer view carries
	// the combined incoming amount.
	total := new(big.Int).Add(pledgeAmount, tip)
	backer := common.HexToAddress(entry.Topics[1].Hex())

	return models.TokenTransfer{
		Hash:        entry.TxHash.Hex(),
		From:        backer.Hex(),
		To:          treasuryAddress,
		TokenSymbol: s.stableSymbol,
		Amount:      total.String(),
		Decimals:    s.stableDecimals,
		Status:      models.TransferStatusSuccess,
	}, nil
}

func (s *transferService) decodeWithdrawal(entry types.Log, treasuryAddress string) (models.TokenTransfer, error) {
	values, err := s.treasuryABI.Events["WithdrawalWithFeeSuccessful"].Inputs.NonIndexed().Unpack(entry.Data)
	if err != nil || len(values) < 2 {
		return models.TokenTransfer{}, fmt.Errorf("failed to unpack withdrawal event: %w", err)
	}
	amount, ok1 := values[0].(*big.Int)
	fee, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 || len(entry.Topics) < 2 {
		return models.TokenTransfer{}, fmt.Errorf("malformed withdrawal event")
	}

	total := new(big.Int).Add(amount, fee)
	recipient := common.HexToAddress(entry.Topics[1].Hex())

	return models.TokenTransfer{
		Hash:        entry.TxHash.Hex(),
		From:        treasuryAddress,
		To:          recipient.Hex(),
		TokenSymbol: s.stableSymbol,
		Amount:      total.String(),
		Decimals:    s.stableDecimals,
		Status:      models.TransferStatusSuccess,
	}, nil
}

func (s *transferService) GetRawTransfers(ctx context.Context, treasuryAddress string) ([]models.TokenTransfer, error) {
	if s.explorer == nil {
		return nil, apperrors.NewUpstream(nil, "no block explorer configured")
	}
	transfers, err := s.explorer.GetAddressTokenTransfers(treasuryAddress)
	if err != nil {
		return nil, apperrors.NewUpstream(err, "failed to scan transfers for %s", treasuryAddress)
	}
	return transfers, nil
}

func (s *transferService) FetchTransfers(ctx context.Context, treasuryAddress string) ([]models.TokenTransfer, error) {
	events, eventsErr := s.GetTreasuryEvents(ctx, treasuryAddress)
	if eventsErr == nil && len(events) > 0 {
		return events, nil
	}

	raw, rawErr := s.GetRawTransfers(ctx, treasuryAddress)
	if rawErr == nil {
		return raw, nil
	}

	if eventsErr == nil {
		// Events path worked and genuinely saw nothing.
		return events, nil
	}
	return nil, apperrors.NewUpstream(eventsErr, "all transfer sources failed for %s", treasuryAddress)
}
