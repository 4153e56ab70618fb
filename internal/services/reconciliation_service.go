package services

import (
	"context"
	"errors"
	"log"
	"math/big"
	"strings"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/constants"
	"github.com/fundmatch-labs/fundmatch/internal/models"
	"gorm.io/gorm"
)

// BalanceReader reads a treasury's on-chain balance. Optional: reconciliation
// reports omit the balance section when no reader is wired.
type BalanceReader interface {
	GetTreasuryBalance(ctx context.Context, treasuryAddress string) (*models.TreasuryBalance, error)
}

// ReconciliationService compares the payment ledger against classified chain
// transfers for a campaign treasury and reports the drift. It is strictly
// read-only and always returns the database side, even when every chain
// source is down.
type ReconciliationService interface {
	ReconcileCampaignTreasury(ctx context.Context, campaignID uint) (*models.ReconciliationReport, error)
}

type reconciliationService struct {
	db        *gorm.DB
	payments  PaymentService
	transfers TransferReader
	balances  BalanceReader
}

// NewReconciliationService creates a ReconciliationService. balances may be
// nil.
func NewReconciliationService(db *gorm.DB, payments PaymentService, transfers TransferReader, balances BalanceReader) ReconciliationService {
	return &reconciliationService{db: db, payments: payments, transfers: transfers, balances: balances}
}

func (s *reconciliationService) ReconcileCampaignTreasury(ctx context.Context, campaignID uint) (*models.ReconciliationReport, error) {
	var campaign models.Campaign
	err := s.db.First(&campaign, campaignID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("campaign with id %d does not exist", campaignID)
	}
	if err != nil {
		return nil, err
	}

	payments, err := s.payments.ListConfirmedPayments(campaignID)
	if err != nil {
		return nil, err
	}

	ledgerTotal := new(big.Rat)
	for _, p := range payments {
		ledgerTotal.Add(ledgerTotal, decimalOrZero(p.Amount))
		ledgerTotal.Add(ledgerTotal, decimalOrZero(p.TipAmount))
	}

	report := &models.ReconciliationReport{
		DatabasePayments: payments,
		OnChainTransfers: []models.ClassifiedTransfer{},
	}

	// A campaign without a deployed treasury has nothing to reconcile yet;
	// that is an empty report, not an error.
	if campaign.TreasuryAddress == "" {
		report.Comparison = compare(ledgerTotal, new(big.Rat))
		report.ChainDataComplete = true
		return report, nil
	}

	chainTotal := new(big.Rat)
	transfers, err := s.transfers.FetchTransfers(ctx, campaign.TreasuryAddress)
	if err != nil {
		// Chain unavailability degrades the report to its database side
		// rather than failing the whole request.
		log.Printf("reconciliation: chain read failed for campaign %d: %v", campaignID, err)
	} else {
		report.ChainDataComplete = true
		treasury := strings.ToLower(campaign.TreasuryAddress)
		for _, t := range transfers {
			if t.Status != models.TransferStatusSuccess || !constants.StableTokenSymbols[t.TokenSymbol] {
				continue
			}
			amount, ok := transferAmount(t)
			if !ok {
				continue
			}
			switch {
			case strings.ToLower(t.To) == treasury:
				report.OnChainTransfers = append(report.OnChainTransfers, models.ClassifiedTransfer{
					TokenTransfer: t,
					Direction:     models.TransferDirectionPledge,
				})
				chainTotal.Add(chainTotal, amount)
			case strings.ToLower(t.From) == treasury:
				report.OnChainTransfers = append(report.OnChainTransfers, models.ClassifiedTransfer{
					TokenTransfer: t,
					Direction:     models.TransferDirectionWithdrawal,
				})
			}
		}
	}

	if s.balances != nil {
		if balance, err := s.balances.GetTreasuryBalance(ctx, campaign.TreasuryAddress); err == nil {
			report.OnChainBalance = balance
		} else {
			log.Printf("reconciliation: balance read failed for campaign %d: %v", campaignID, err)
		}
	}

	report.Comparison = compare(ledgerTotal, chainTotal)
	return report, nil
}

// transferAmount converts a transfer's smallest-unit amount into token units
// using the transfer's own decimals.
func transferAmount(t models.TokenTransfer) (*big.Rat, bool) {
	raw, ok := new(big.Int).SetString(t.Amount, 10)
	if !ok {
		return nil, false
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil)
	return new(big.Rat).SetFrac(raw, divisor), true
}

// compare classifies ledger-vs-chain drift. A positive difference means the
// ledger claims more than the chain shows (under-funded on-chain); negative
// means the chain holds transfers the ledger never recorded.
func compare(ledgerTotal, chainTotal *big.Rat) models.ReconciliationComparison {
	difference := new(big.Rat).Sub(ledgerTotal, chainTotal)
	tolerance, _ := new(big.Rat).SetString(constants.ReconciliationTolerance)

	status := models.ReconciliationMatched
	switch {
	case difference.Cmp(tolerance) > 0:
		status = models.ReconciliationBlockchainShort
	case difference.Cmp(new(big.Rat).Neg(tolerance)) < 0:
		status = models.ReconciliationBlockchainSurplus
	}

	return models.ReconciliationComparison{
		TotalDatabaseAmount:   trimDecimal(ledgerTotal.FloatString(6)),
		TotalBlockchainAmount: trimDecimal(chainTotal.FloatString(6)),
		Difference:            difference.FloatString(6),
		Status:                status,
	}
}

func decimalOrZero(s string) *big.Rat {
	if s == "" {
		return new(big.Rat)
	}
	v, ok := new(big.Rat).SetString(s)
	if !ok {
		return new(big.Rat)
	}
	return v
}

func trimDecimal(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
