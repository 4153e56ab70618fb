package models

// QfContribution is one confirmed contribution as seen by the matching
// calculator: who sent it and how much, in token units.
type QfContribution struct {
	Contributor string `json:"contributor"`
	Amount      string `json:"amount"`
}

// QfCampaignState is a campaign's contribution aggregate within a round.
// Derived per request from confirmed payments; never persisted.
type QfCampaignState struct {
	ID                  uint             `json:"id"`
	Title               string           `json:"title"`
	Contributions       []QfContribution `json:"contributions"`
	NContributions      int              `json:"n_contributions"`
	NUniqueContributors int              `json:"n_unique_contributors"`
}

// QfRoundState is the canonical snapshot consumed by the distribution
// calculator: matching pool, token and the approved campaigns with their
// confirmed contributions.
type QfRoundState struct {
	ID            uint              `json:"id"`
	Title         string            `json:"title"`
	MatchingPool  string            `json:"matching_pool"`
	Token         string            `json:"token"`
	TokenDecimals int               `json:"token_decimals"`
	Campaigns     []QfCampaignState `json:"campaigns"`
}

// QfDistributionItem is one campaign's computed matching allocation.
type QfDistributionItem struct {
	ID                  uint   `json:"id"`
	Title               string `json:"title"`
	MatchingAmount      string `json:"matching_amount"`
	NContributions      int    `json:"n_contributions"`
	NUniqueContributors int    `json:"n_unique_contributors"`
}

// QfCalculationResult is the full output of a distribution run.
type QfCalculationResult struct {
	TotalAllocated string               `json:"total_allocated"`
	Distribution   []QfDistributionItem `json:"distribution"`
}

// RoundCampaignResult pairs a campaign's raised total with its matching
// allocation.
type RoundCampaignResult struct {
	ID                  uint   `json:"id"`
	Title               string `json:"title"`
	Raised              string `json:"raised"`
	MatchingAmount      string `json:"matching_amount"`
	NContributions      int    `json:"n_contributions"`
	NUniqueContributors int    `json:"n_unique_contributors"`
}

// RoundResults is the per-round aggregate view: what each campaign raised and
// what the matching pool adds on top.
type RoundResults struct {
	RoundID        uint                  `json:"round_id"`
	Title          string                `json:"title"`
	MatchingPool   string                `json:"matching_pool"`
	Token          string                `json:"token"`
	TotalRaised    string                `json:"total_raised"`
	TotalAllocated string                `json:"total_allocated"`
	Campaigns      []RoundCampaignResult `json:"campaigns"`
}
