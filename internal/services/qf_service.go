package services

import (
	"errors"
	"math/big"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/models"
	"github.com/fundmatch-labs/fundmatch/internal/utils"
	"gorm.io/gorm"
)

// QfService builds round snapshots and serves matching lookups. Results are
// never cached: every call recomputes against current ledger state, so the
// numbers move as contributions confirm.
type QfService interface {
	// GetRoundState assembles the validated snapshot consumed by the
	// distribution calculator: the round, its approved campaigns, and each
	// campaign's confirmed contributions.
	GetRoundState(roundID uint) (*models.QfRoundState, error)
	// GetDistribution computes the matching allocation for a round.
	GetDistribution(roundID uint) (*models.QfCalculationResult, error)
	// GetCampaignMatching returns a single campaign's allocation from the
	// round's computed distribution.
	GetCampaignMatching(roundID, campaignID uint) (*models.QfDistributionItem, error)
	// GetRoundResults pairs each campaign's raised total with its matching
	// allocation.
	GetRoundResults(roundID uint) (*models.RoundResults, error)
}

type qfService struct {
	db *gorm.DB
}

// NewQfService creates a QfService on the given database handle.
func NewQfService(db *gorm.DB) QfService {
	return &qfService{db: db}
}

func (s *qfService) GetRoundState(roundID uint) (*models.QfRoundState, error) {
	var round models.Round
	err := s.db.First(&round, roundID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("round with id %d does not exist", roundID)
	}
	if err != nil {
		return nil, err
	}

	var roundCampaigns []models.RoundCampaign
	err = s.db.
		Where("round_id = ? AND approved = ?", roundID, true).
		Preload("Campaign").
		Preload("Campaign.Payments", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", models.PaymentStatusConfirmed).Order("id asc")
		}).
		Preload("Campaign.Payments.User").
		Order("campaign_id asc").
		Find(&roundCampaigns).Error
	if err != nil {
		return nil, err
	}

	if len(roundCampaigns) == 0 {
		return nil, apperrors.NewParameter("round with id %d has no campaigns", roundID)
	}

	pool, err := utils.ParseTokenAmount(round.MatchingPool, round.TokenDecimals)
	if err != nil || pool.Sign() <= 0 {
		return nil, apperrors.NewParameter("round with id %d has no matching pool", roundID)
	}

	state := &models.QfRoundState{
		ID:            round.ID,
		Title:         round.Title,
		MatchingPool:  round.MatchingPool,
		Token:         round.Token,
		TokenDecimals: round.TokenDecimals,
		Campaigns:     make([]models.QfCampaignState, 0, len(roundCampaigns)),
	}

	for _, rc := range roundCampaigns {
		campaign := models.QfCampaignState{
			ID:    rc.Campaign.ID,
			Title: rc.Campaign.Title,
		}
		unique := make(map[uint]bool, len(rc.Campaign.Payments))
		for _, p := range rc.Campaign.Payments {
			campaign.Contributions = append(campaign.Contributions, models.QfContribution{
				Contributor: p.User.Address,
				Amount:      p.Amount,
			})
			unique[p.UserID] = true
		}
		campaign.NContributions = len(campaign.Contributions)
		campaign.NUniqueContributors = len(unique)
		state.Campaigns = append(state.Campaigns, campaign)
	}

	return state, nil
}

func (s *qfService) GetDistribution(roundID uint) (*models.QfCalculationResult, error) {
	state, err := s.GetRoundState(roundID)
	if err != nil {
		return nil, err
	}
	return utils.CalculateQfDistribution(state)
}

func (s *qfService) GetCampaignMatching(roundID, campaignID uint) (*models.QfDistributionItem, error) {
	result, err := s.GetDistribution(roundID)
	if err != nil {
		return nil, err
	}
	for i := range result.Distribution {
		if result.Distribution[i].ID == campaignID {
			return &result.Distribution[i], nil
		}
	}
	return nil, apperrors.NewNotFound("campaign with id %d is not part of round %d", campaignID, roundID)
}

func (s *qfService) GetRoundResults(roundID uint) (*models.RoundResults, error) {
	state, err := s.GetRoundState(roundID)
	if err != nil {
		return nil, err
	}
	result, err := utils.CalculateQfDistribution(state)
	if err != nil {
		return nil, err
	}

	matchingByID := make(map[uint]string, len(result.Distribution))
	for _, item := range result.Distribution {
		matchingByID[item.ID] = item.MatchingAmount
	}

	results := &models.RoundResults{
		RoundID:        state.ID,
		Title:          state.Title,
		MatchingPool:   state.MatchingPool,
		Token:          state.Token,
		TotalAllocated: result.TotalAllocated,
		Campaigns:      make([]models.RoundCampaignResult, 0, len(state.Campaigns)),
	}

	totalRaised := new(big.Int)
	for _, c := range state.Campaigns {
		raised := new(big.Int)
		for _, contribution := range c.Contributions {
			amount, err := utils.ParseTokenAmount(contribution.Amount, state.TokenDecimals)
			if err != nil {
				return nil, apperrors.NewParameter("invalid contribution amount %q: %v", contribution.Amount, err)
			}
			raised.Add(raised, amount)
		}
		totalRaised.Add(totalRaised, raised)

		results.Campaigns = append(results.Campaigns, models.RoundCampaignResult{
			ID:                  c.ID,
			Title:               c.Title,
			Raised:              utils.FormatTokenAmount(raised, state.TokenDecimals),
			MatchingAmount:      matchingByID[c.ID],
			NContributions:      c.NContributions,
			NUniqueContributors: c.NUniqueContributors,
		})
	}
	results.TotalRaised = utils.FormatTokenAmount(totalRaised, state.TokenDecimals)

	return results, nil
}
