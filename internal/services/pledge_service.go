package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/constants"
	"github.com/fundmatch-labs/fundmatch/internal/models"
	"github.com/fundmatch-labs/fundmatch/internal/utils"
)

// RegisterPledgeArgs are the validated inputs for on-chain pledge
// registration.
type RegisterPledgeArgs struct {
	PaymentID    uint   `validate:"required"`
	ActorAddress string `validate:"required"`
	// PledgeID is the 32-byte treasury pledge identifier, 0x-prefixed.
	PledgeID   string `validate:"required"`
	GatewayFee string `validate:"omitempty"`
}

// PledgeExecutionResult reports the outcome of a pledge registration. An
// unconfirmed result carries a transaction hash that may still be mined.
type PledgeExecutionResult struct {
	PaymentID       uint   `json:"paymentId"`
	PledgeID        string `json:"pledgeId"`
	TransactionHash string `json:"transactionHash"`
	Confirmed       bool   `json:"confirmed"`
	AlreadyExecuted bool   `json:"alreadyExecuted"`
}

// WithdrawalExecutionResult reports the outcome of a withdrawal execution.
type WithdrawalExecutionResult struct {
	WithdrawalID    uint   `json:"withdrawalId"`
	TransactionHash string `json:"transactionHash"`
	Confirmed       bool   `json:"confirmed"`
	AlreadyExecuted bool   `json:"alreadyExecuted"`
}

// PledgeService executes settlement transactions against campaign treasuries.
// Every execution runs under two guards: a per-actor soft lock that fast-fails
// a second submission from the same actor, and a transaction-scoped advisory
// lock on the subject row so concurrent sessions can never double-submit.
type PledgeService interface {
	RegisterPledge(ctx context.Context, args RegisterPledgeArgs) (*PledgeExecutionResult, error)
	ExecuteWithdrawal(ctx context.Context, withdrawalID uint) (*WithdrawalExecutionResult, error)
	// ListUnexecutedPledges returns confirmed payments that never received an
	// on-chain pledge id, newest first, for retry tooling.
	ListUnexecutedPledges(limit int) ([]models.Payment, error)
}

type pledgeService struct {
	db            *gorm.DB
	locks         ExecutionLockService
	actorLocks    RegistrationLockService
	signer        TreasurySigner
	validator     *validator.Validate
	confirmationT time.Duration
}

// NewPledgeService creates a PledgeService. signer may be nil when no platform
// key is configured; executions then fail with an upstream error instead of
// reaching the chain.
func NewPledgeService(db *gorm.DB, locks ExecutionLockService, actorLocks RegistrationLockService, signer TreasurySigner) PledgeService {
	return &pledgeService{
		db:            db,
		locks:         locks,
		actorLocks:    actorLocks,
		signer:        signer,
		validator:     validator.New(),
		confirmationT: constants.ConfirmationTimeout,
	}
}

func (s *pledgeService) RegisterPledge(ctx context.Context, args RegisterPledgeArgs) (*PledgeExecutionResult, error) {
	if s.signer == nil {
		return nil, apperrors.NewUpstream(nil, "no transaction signer configured")
	}
	if err := s.validator.Struct(args); err != nil {
		return nil, apperrors.NewParameter("invalid pledge registration: %v", err)
	}
	if !isPledgeID(args.PledgeID) {
		return nil, apperrors.NewParameter("pledge id %q is not a 32-byte hex value", args.PledgeID)
	}

	fee := big.NewInt(0)
	if args.GatewayFee != "" {
		parsed, ok := new(big.Int).SetString(args.GatewayFee, 10)
		if !ok || parsed.Sign() < 0 {
			return nil, apperrors.NewParameter("gateway fee %q is not a valid amount", args.GatewayFee)
		}
		fee = parsed
	}

	// The soft lock rejects a second in-flight registration from the same
	// actor before any database or chain work happens.
	if !s.actorLocks.TryAcquire(args.ActorAddress, args.PledgeID) {
		return nil, apperrors.NewConflict("address %s already has a registration in progress", args.ActorAddress)
	}
	defer s.actorLocks.Release(args.ActorAddress)

	result := &PledgeExecutionResult{PaymentID: args.PaymentID, PledgeID: args.PledgeID}
	err := s.locks.WithLock(ctx, int64(args.PaymentID), func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Preload("Campaign").First(&payment, args.PaymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("payment with id %d does not exist", args.PaymentID)
		}
		if err != nil {
			return err
		}

		if payment.Status != models.PaymentStatusConfirmed {
			return apperrors.NewParameter("payment %d is %s, only confirmed payments can be registered", payment.ID, payment.Status)
		}
		// Re-check under the lock: a racing session may have finished while
		// this one waited for the payment row.
		if payment.OnChainPledgeID != "" {
			result.PledgeID = payment.OnChainPledgeID
			result.TransactionHash = payment.TransactionHash
			result.Confirmed = true
			result.AlreadyExecuted = true
			return nil
		}
		if payment.Campaign.TreasuryAddress == "" {
			return apperrors.NewParameter("campaign %d has no treasury deployed", payment.CampaignID)
		}

		txHash, err := s.signer.RegisterPledge(ctx, payment.Campaign.TreasuryAddress, args.PledgeID, fee)
		if err != nil {
			if apperrors.IsParameter(err) || apperrors.IsUpstream(err) {
				return err
			}
			return apperrors.NewUpstream(err, "failed to submit pledge registration for payment %d", args.PaymentID)
		}
		result.TransactionHash = txHash

		waitCtx, cancel := context.WithTimeout(ctx, s.confirmationT)
		defer cancel()
		if err := s.signer.WaitForConfirmation(waitCtx, txHash); err != nil {
			if apperrors.IsTimeout(err) {
				// The transaction may still land. Record the hash and commit
				// an unconfirmed outcome instead of rolling back and losing
				// track of the submission.
				result.Confirmed = false
				return tx.Model(&payment).Update("transaction_hash", txHash).Error
			}
			return fmt.Errorf("pledge registration for payment %d failed: %w", args.PaymentID, err)
		}

		result.Confirmed = true
		return tx.Model(&payment).Updates(map[string]any{
			"transaction_hash":   txHash,
			"on_chain_pledge_id": args.PledgeID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *pledgeService) ExecuteWithdrawal(ctx context.Context, withdrawalID uint) (*WithdrawalExecutionResult, error) {
	if s.signer == nil {
		return nil, apperrors.NewUpstream(nil, "no transaction signer configured")
	}
	result := &WithdrawalExecutionResult{WithdrawalID: withdrawalID}
	err := s.locks.WithLock(ctx, int64(withdrawalID), func(tx *gorm.DB) error {
		var withdrawal models.WithdrawalRequest
		err := tx.Preload("Campaign").First(&withdrawal, withdrawalID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("withdrawal request with id %d does not exist", withdrawalID)
		}
		if err != nil {
			return err
		}

		if withdrawal.Status == models.WithdrawalStatusExecuted {
			result.TransactionHash = withdrawal.TransactionHash
			result.Confirmed = true
			result.AlreadyExecuted = true
			return nil
		}
		if withdrawal.Status != models.WithdrawalStatusPending {
			return apperrors.NewParameter("withdrawal %d is %s, only pending withdrawals can be executed", withdrawal.ID, withdrawal.Status)
		}
		if withdrawal.Campaign.TreasuryAddress == "" {
			return apperrors.NewParameter("campaign %d has no treasury deployed", withdrawal.CampaignID)
		}
		if !utils.IsValidAddress(withdrawal.Recipient) {
			return apperrors.NewParameter("withdrawal %d has invalid recipient %q", withdrawal.ID, withdrawal.Recipient)
		}

		amount, err := utils.ParseTokenAmount(withdrawal.Amount, constants.DefaultTokenDecimals)
		if err != nil {
			return apperrors.NewParameter("withdrawal %d has invalid amount %q: %v", withdrawal.ID, withdrawal.Amount, err)
		}

		txHash, err := s.signer.ExecuteWithdrawal(ctx, withdrawal.Campaign.TreasuryAddress, withdrawal.Recipient, amount)
		if err != nil {
			if apperrors.IsParameter(err) || apperrors.IsUpstream(err) {
				return err
			}
			return apperrors.NewUpstream(err, "failed to submit withdrawal %d", withdrawalID)
		}
		result.TransactionHash = txHash

		waitCtx, cancel := context.WithTimeout(ctx, s.confirmationT)
		defer cancel()
		if err := s.signer.WaitForConfirmation(waitCtx, txHash); err != nil {
			if apperrors.IsTimeout(err) {
				result.Confirmed = false
				return tx.Model(&withdrawal).Update("transaction_hash", txHash).Error
			}
			return fmt.Errorf("withdrawal %d failed: %w", withdrawalID, err)
		}

		result.Confirmed = true
		return tx.Model(&withdrawal).Updates(map[string]any{
			"transaction_hash": txHash,
			"status":           models.WithdrawalStatusExecuted,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *pledgeService) ListUnexecutedPledges(limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	var payments []models.Payment
	err := s.db.
		Preload("User").
		Preload("Campaign").
		Where("status = ? AND (on_chain_pledge_id = ? OR on_chain_pledge_id IS NULL)", models.PaymentStatusConfirmed, "").
		Order("created_at desc").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

func isPledgeID(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
