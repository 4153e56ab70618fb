package api

import (
	"github.com/gofiber/fiber/v2"
)

// handleReconciliation builds the ledger-vs-chain drift report for a campaign
// treasury. Chain outages degrade the report rather than failing it, so this
// endpoint only errors on bad input or database trouble.
func (s *APIServer) handleReconciliation(c *fiber.Ctx) error {
	campaignID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid campaign id"})
	}

	report, err := s.reconciliation.ReconcileCampaignTreasury(c.Context(), campaignID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(report)
}
