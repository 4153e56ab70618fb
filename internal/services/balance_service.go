package services

import (
	"context"
	"math/big"

	"gorm.io/gorm"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/models"
	"github.com/fundmatch-labs/fundmatch/internal/utils"
)

type treasuryBalanceService struct {
	db           *gorm.DB
	endpoints    []string
	tokenAddress string
}

// NewTreasuryBalanceService creates a BalanceReader that reads the stable
// token balance held by a treasury and pairs it with the ledger's confirmed
// pledge total.
func NewTreasuryBalanceService(db *gorm.DB, endpoints []string, tokenAddress string) BalanceReader {
	return &treasuryBalanceService{db: db, endpoints: endpoints, tokenAddress: tokenAddress}
}

func (s *treasuryBalanceService) GetTreasuryBalance(ctx context.Context, treasuryAddress string) (*models.TreasuryBalance, error) {
	if !utils.IsValidAddress(treasuryAddress) {
		return nil, apperrors.NewParameter("invalid treasury address %q", treasuryAddress)
	}
	if s.tokenAddress == "" || len(s.endpoints) == 0 {
		return nil, apperrors.NewUpstream(nil, "no token address or RPC endpoints configured")
	}

	var balance *utils.ERC20Balance
	var lastErr error
	for _, endpoint := range s.endpoints {
		b, err := utils.QueryERC20Balance(endpoint, s.tokenAddress, treasuryAddress)
		if err != nil {
			lastErr = err
			continue
		}
		balance = b
		break
	}
	if balance == nil {
		return nil, apperrors.NewUpstream(lastErr, "failed to read treasury balance for %s", treasuryAddress)
	}

	totalPledged, err := s.confirmedPledgeTotal(treasuryAddress)
	if err != nil {
		return nil, err
	}

	return &models.TreasuryBalance{
		Available:    balance.FormattedBalance,
		TotalPledged: totalPledged,
		Currency:     balance.TokenSymbol,
	}, nil
}

// confirmedPledgeTotal sums amount plus tip over the campaign's confirmed
// payments, in token units.
func (s *treasuryBalanceService) confirmedPledgeTotal(treasuryAddress string) (string, error) {
	var campaign models.Campaign
	err := s.db.Where("treasury_address = ?", treasuryAddress).First(&campaign).Error
	if err != nil {
		// The treasury may belong to a campaign this ledger never saw.
		return "0", nil
	}

	var payments []models.Payment
	err = s.db.
		Where("campaign_id = ? AND status = ?", campaign.ID, models.PaymentStatusConfirmed).
		Find(&payments).Error
	if err != nil {
		return "", err
	}

	total := new(big.Rat)
	for _, p := range payments {
		total.Add(total, decimalOrZero(p.Amount))
		total.Add(total, decimalOrZero(p.TipAmount))
	}
	return trimDecimal(total.FloatString(6)), nil
}
