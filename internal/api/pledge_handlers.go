package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fundmatch-labs/fundmatch/internal/api/middleware"
	"github.com/fundmatch-labs/fundmatch/internal/services"
)

type registerPledgeRequest struct {
	PaymentID  uint   `json:"paymentId"`
	PledgeID   string `json:"pledgeId"`
	GatewayFee string `json:"gatewayFee"`
}

// handleRegisterPledge submits a pledge registration for the authenticated
// actor. The actor address comes from the token, never the request body, so a
// caller cannot sidestep the per-actor lock by claiming another address.
func (s *APIServer) handleRegisterPledge(c *fiber.Ctx) error {
	user := middleware.GetAuthenticatedUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	var req registerPledgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := s.pledges.RegisterPledge(c.Context(), services.RegisterPledgeArgs{
		PaymentID:    req.PaymentID,
		ActorAddress: user.Address,
		PledgeID:     req.PledgeID,
		GatewayFee:   req.GatewayFee,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(result)
}

// handleExecuteWithdrawal executes a pending withdrawal request.
func (s *APIServer) handleExecuteWithdrawal(c *fiber.Ctx) error {
	withdrawalID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid withdrawal id"})
	}

	result, err := s.pledges.ExecuteWithdrawal(c.Context(), withdrawalID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(result)
}

// handleUnexecutedPledges lists confirmed payments still missing an on-chain
// pledge id, for the retry tooling.
func (s *APIServer) handleUnexecutedPledges(c *fiber.Ctx) error {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid limit"})
		}
		limit = parsed
	}

	payments, err := s.pledges.ListUnexecutedPledges(limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"payments": payments, "count": len(payments)})
}
