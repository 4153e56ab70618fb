package services

import (
	"errors"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentService owns the payment ledger: intake, confirmed reads for
// settlement, and the webhook-driven status transitions.
type PaymentService interface {
	CreatePayment(args CreatePaymentArgs) (*models.Payment, error)
	GetPayment(id uint) (*models.Payment, error)
	// ListConfirmedPayments returns the confirmed ledger rows for a campaign,
	// with contributor users preloaded, ordered by id.
	ListConfirmedPayments(campaignID uint) ([]models.Payment, error)
	// UpdateStatusFromWebhook applies a provider status update keyed by
	// external id. Out-of-order and terminal-flipping updates are rejected
	// without modifying the row; the returned bool reports whether the row
	// changed.
	UpdateStatusFromWebhook(externalID string, status models.PaymentStatus) (*models.Payment, bool, error)
}

// CreatePaymentArgs are the validated inputs for payment intake.
type CreatePaymentArgs struct {
	UserID     uint   `validate:"required"`
	CampaignID uint   `validate:"required"`
	RoundID    *uint  `validate:"omitempty"`
	Amount     string `validate:"required"`
	TipAmount  string `validate:"omitempty"`
	Token      string `validate:"required"`
	Provider   string `validate:"required"`
	ExternalID string `validate:"omitempty"`
}

type paymentService struct {
	db        *gorm.DB
	validator *validator.Validate
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(db *gorm.DB) PaymentService {
	return &paymentService{db: db, validator: validator.New()}
}

func (s *paymentService) CreatePayment(args CreatePaymentArgs) (*models.Payment, error) {
	if err := s.validator.Struct(args); err != nil {
		return nil, apperrors.NewParameter("invalid payment: %v", err)
	}

	externalID := args.ExternalID
	if externalID == "" {
		externalID = uuid.New().String()
	}
	tip := args.TipAmount
	if tip == "" {
		tip = "0"
	}

	payment := &models.Payment{
		ExternalID: externalID,
		UserID:     args.UserID,
		CampaignID: args.CampaignID,
		RoundID:    args.RoundID,
		Amount:     args.Amount,
		TipAmount:  tip,
		Token:      args.Token,
		Provider:   args.Provider,
		Status:     models.PaymentStatusPending,
	}
	if err := s.db.Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) GetPayment(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Preload("User").Preload("Campaign").First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("payment with id %d does not exist", id)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *paymentService) ListConfirmedPayments(campaignID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.
		Preload("User").
		Where("campaign_id = ? AND status = ?", campaignID, models.PaymentStatusConfirmed).
		Order("id asc").
		Find(&payments).Error
	return payments, err
}

func (s *paymentService) UpdateStatusFromWebhook(externalID string, status models.PaymentStatus) (*models.Payment, bool, error) {
	var payment models.Payment
	err := s.db.Where("external_id = ?", externalID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperrors.NewNotFound("payment with external id %s does not exist", externalID)
	}
	if err != nil {
		return nil, false, err
	}

	if !isValidTransition(payment.Status, status) {
		// Out-of-order or duplicate webhook; acknowledge without changing
		// the ledger so providers stop retrying.
		return &payment, false, nil
	}

	if err := s.db.Model(&payment).Update("status", status).Error; err != nil {
		return nil, false, err
	}
	payment.Status = status
	return &payment, true, nil
}

// isValidTransition enforces the payment state machine: terminal statuses
// never flip, and a status never regresses to pending.
func isValidTransition(current, next models.PaymentStatus) bool {
	if current == next {
		return false
	}
	if current.IsTerminal() {
		return false
	}
	if next == models.PaymentStatusPending {
		return false
	}
	return true
}
