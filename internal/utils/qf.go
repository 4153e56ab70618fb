package utils

import (
	"math/big"
	"sort"
	"strings"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/models"
)

// CalculateQfScore computes a campaign's quadratic-funding score from its
// per-contributor aggregated amounts (smallest token units):
//
//	score = (Σ over unique contributors of isqrt(amount))²
//
// The integer square root floors, so non-perfect squares round down before
// summing. Square-rooting per contributor before summing is what rewards
// breadth of support over single large donations.
func CalculateQfScore(amounts []*big.Int) *big.Int {
	sum := new(big.Int)
	for _, amount := range amounts {
		if amount == nil || amount.Sign() <= 0 {
			continue
		}
		sum.Add(sum, new(big.Int).Sqrt(amount))
	}
	return sum.Mul(sum, sum)
}

// aggregateByContributor sums a campaign's contributions per contributor
// address, case-insensitively. Duplicate contributions from the same address
// add up rather than overwrite.
func aggregateByContributor(contributions []models.QfContribution, decimals int) ([]*big.Int, error) {
	sums := make(map[string]*big.Int, len(contributions))
	order := make([]string, 0, len(contributions))

	for _, c := range contributions {
		amount, err := ParseTokenAmount(c.Amount, decimals)
		if err != nil {
			return nil, apperrors.NewParameter("invalid contribution amount %q: %v", c.Amount, err)
		}
		key := strings.ToLower(c.Contributor)
		if existing, ok := sums[key]; ok {
			existing.Add(existing, amount)
		} else {
			sums[key] = amount
			order = append(order, key)
		}
	}

	amounts := make([]*big.Int, 0, len(order))
	for _, key := range order {
		amounts = append(amounts, sums[key])
	}
	return amounts, nil
}

// CalculateQfDistribution maps a round snapshot to a per-campaign matching
// allocation. Pure and deterministic: no I/O, the input state is never
// mutated, and identical states produce identical output.
//
// Allocation is matchingPool × score / totalScore computed in big.Int at the
// smallest token unit. Floor allocations are topped up one unit at a time in
// order of largest division remainder, so the distributed total equals the
// pool exactly whenever the total score is positive. A round with no
// contributions anywhere allocates zero everywhere; that is a defined terminal
// case, not an error.
func CalculateQfDistribution(state *models.QfRoundState) (*models.QfCalculationResult, error) {
	pool, err := ParseTokenAmount(state.MatchingPool, state.TokenDecimals)
	if err != nil {
		return nil, apperrors.NewParameter("invalid matching pool %q: %v", state.MatchingPool, err)
	}

	campaigns := make([]models.QfCampaignState, len(state.Campaigns))
	copy(campaigns, state.Campaigns)
	sort.Slice(campaigns, func(i, j int) bool { return campaigns[i].ID < campaigns[j].ID })

	// Single-campaign rounds skip the proportional math: the whole pool goes
	// to the campaign if anyone contributed, nothing otherwise.
	if len(campaigns) == 1 {
		c := campaigns[0]
		item := models.QfDistributionItem{
			ID:                  c.ID,
			Title:               c.Title,
			MatchingAmount:      "0",
			NContributions:      c.NContributions,
			NUniqueContributors: c.NUniqueContributors,
		}
		total := "0"
		if c.NContributions > 0 {
			item.MatchingAmount = FormatTokenAmount(pool, state.TokenDecimals)
			total = item.MatchingAmount
		}
		return &models.QfCalculationResult{
			TotalAllocated: total,
			Distribution:   []models.QfDistributionItem{item},
		}, nil
	}

	type scored struct {
		campaign  models.QfCampaignState
		score     *big.Int
		allocated *big.Int
		remainder *big.Int
	}

	totalScore := new(big.Int)
	entries := make([]*scored, 0, len(campaigns))
	for _, c := range campaigns {
		amounts, err := aggregateByContributor(c.Contributions, state.TokenDecimals)
		if err != nil {
			return nil, err
		}
		score := CalculateQfScore(amounts)
		totalScore.Add(totalScore, score)
		entries = append(entries, &scored{campaign: c, score: score})
	}

	distribution := make([]models.QfDistributionItem, 0, len(entries))

	if totalScore.Sign() == 0 {
		for _, e := range entries {
			distribution = append(distribution, models.QfDistributionItem{
				ID:                  e.campaign.ID,
				Title:               e.campaign.Title,
				MatchingAmount:      "0",
				NContributions:      e.campaign.NContributions,
				NUniqueContributors: e.campaign.NUniqueContributors,
			})
		}
		return &models.QfCalculationResult{TotalAllocated: "0", Distribution: distribution}, nil
	}

	// Floor allocation per campaign, keeping the division remainder so the
	// leftover smallest units can be handed out largest-remainder first.
	allocated := new(big.Int)
	for _, e := range entries {
		product := new(big.Int).Mul(pool, e.score)
		e.allocated, e.remainder = new(big.Int).QuoRem(product, totalScore, new(big.Int))
		allocated.Add(allocated, e.allocated)
	}

	dust := new(big.Int).Sub(pool, allocated)
	if dust.Sign() > 0 {
		byRemainder := make([]*scored, len(entries))
		copy(byRemainder, entries)
		sort.SliceStable(byRemainder, func(i, j int) bool {
			return byRemainder[i].remainder.Cmp(byRemainder[j].remainder) > 0
		})
		one := big.NewInt(1)
		for i := 0; dust.Sign() > 0; i = (i + 1) % len(byRemainder) {
			byRemainder[i].allocated.Add(byRemainder[i].allocated, one)
			dust.Sub(dust, one)
		}
	}

	for _, e := range entries {
		distribution = append(distribution, models.QfDistributionItem{
			ID:                  e.campaign.ID,
			Title:               e.campaign.Title,
			MatchingAmount:      FormatTokenAmount(e.allocated, state.TokenDecimals),
			NContributions:      e.campaign.NContributions,
			NUniqueContributors: e.campaign.NUniqueContributors,
		})
	}

	return &models.QfCalculationResult{
		TotalAllocated: FormatTokenAmount(pool, state.TokenDecimals),
		Distribution:   distribution,
	}, nil
}
