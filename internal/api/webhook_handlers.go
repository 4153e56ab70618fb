package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/models"
)

type paymentWebhookRequest struct {
	ExternalID string `json:"externalId"`
	Status     string `json:"status"`
}

// handlePaymentWebhook applies a provider status update. Out-of-order and
// duplicate deliveries are acknowledged with updated=false so providers stop
// retrying.
func (s *APIServer) handlePaymentWebhook(c *fiber.Ctx) error {
	var req paymentWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.ExternalID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "externalId is required"})
	}

	status := models.PaymentStatus(req.Status)
	switch status {
	case models.PaymentStatusPending, models.PaymentStatusConfirmed,
		models.PaymentStatusFailed, models.PaymentStatusCanceled:
	default:
		return errorResponse(c, apperrors.NewParameter("unknown payment status %q", req.Status))
	}

	payment, updated, err := s.payments.UpdateStatusFromWebhook(req.ExternalID, status)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"externalId": payment.ExternalID,
		"status":     payment.Status,
		"updated":    updated,
	})
}
