package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a platform account identified by a wallet address.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Address   string         `gorm:"uniqueIndex;not null" json:"address"`
	Username  *string        `json:"username,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Campaign represents a crowdfunding campaign with an optional on-chain treasury.
type Campaign struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"not null" json:"title"`
	Slug            string    `gorm:"uniqueIndex" json:"slug"`
	OwnerID         uint      `gorm:"index" json:"owner_id"`
	TreasuryAddress string    `gorm:"index" json:"treasury_address"` // empty until the treasury contract is deployed
	Status          string    `gorm:"default:draft" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Owner    User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Payments []Payment `gorm:"foreignKey:CampaignID" json:"payments,omitempty"`
}

// Round represents a funding round with an optional quadratic-funding matching pool.
type Round struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	MatchingPool  string    `gorm:"not null;default:0" json:"matching_pool"` // decimal string in token units
	Token         string    `gorm:"not null;default:USDC" json:"token"`
	TokenDecimals int       `gorm:"not null;default:6" json:"token_decimals"`
	Status        string    `gorm:"default:draft" json:"status"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	RoundCampaigns []RoundCampaign `gorm:"foreignKey:RoundID" json:"round_campaigns,omitempty"`
}

// RoundCampaign links a campaign into a round. Only approved campaigns take
// part in matching calculations.
type RoundCampaign struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RoundID    uint      `gorm:"index:idx_round_campaign,unique;not null" json:"round_id"`
	CampaignID uint      `gorm:"index:idx_round_campaign,unique;not null" json:"campaign_id"`
	Approved   bool      `gorm:"default:false" json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Round    Round    `gorm:"foreignKey:RoundID" json:"round,omitempty"`
	Campaign Campaign `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"`
}

// Payment is a ledger entry for a contribution (pledge plus optional tip).
// Rows are never deleted; webhooks and admins move them to a terminal status.
type Payment struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	ExternalID      string        `gorm:"uniqueIndex;not null" json:"external_id"` // provider-side id, used by webhooks
	UserID          uint          `gorm:"index;not null" json:"user_id"`
	CampaignID      uint          `gorm:"index;not null" json:"campaign_id"`
	RoundID         *uint         `gorm:"index" json:"round_id,omitempty"`
	Amount          string        `gorm:"not null" json:"amount"` // decimal string in token units
	TipAmount       string        `gorm:"not null;default:0" json:"tip_amount"`
	Token           string        `gorm:"not null;default:USDC" json:"token"`
	Provider        string        `json:"provider"`
	Status          PaymentStatus `gorm:"default:pending;index" json:"status"`
	TransactionHash string        `json:"transaction_hash"`
	OnChainPledgeID string        `json:"on_chain_pledge_id"` // set once the pledge is registered on-chain
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	User     User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Campaign Campaign `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"`
}

// WithdrawalRequest records a campaign owner's request to move funds out of
// the treasury. Execution is a privileged on-chain operation.
type WithdrawalRequest struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	CampaignID      uint             `gorm:"index;not null" json:"campaign_id"`
	Recipient       string           `gorm:"not null" json:"recipient"`
	Amount          string           `gorm:"not null" json:"amount"`
	Status          WithdrawalStatus `gorm:"default:pending;index" json:"status"`
	TransactionHash string           `json:"transaction_hash"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	Campaign Campaign `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"`
}

// ExecutionLock is the lock-table fallback used where the database has no
// advisory-lock primitive (sqlite). One row per held lock; rows are removed
// before the owning transaction ends.
type ExecutionLock struct {
	LockClass  int       `gorm:"primaryKey;autoIncrement:false" json:"lock_class"`
	SubjectID  int64     `gorm:"primaryKey;autoIncrement:false" json:"subject_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}
