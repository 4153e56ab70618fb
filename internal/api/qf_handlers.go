package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// handleQfDistribution computes the full matching distribution for a round.
func (s *APIServer) handleQfDistribution(c *fiber.Ctx) error {
	roundID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid round id"})
	}

	result, err := s.qf.GetDistribution(roundID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(result)
}

// handleQfMatching returns a single campaign's slice of the round distribution.
func (s *APIServer) handleQfMatching(c *fiber.Ctx) error {
	roundID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid round id"})
	}
	campaignID, err := parseUintParam(c, "campaignId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid campaign id"})
	}

	item, err := s.qf.GetCampaignMatching(roundID, campaignID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(item)
}

// handleRoundResults serves the per-round aggregate view: raised totals next
// to matching allocations.
func (s *APIServer) handleRoundResults(c *fiber.Ctx) error {
	roundID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid round id"})
	}

	results, err := s.qf.GetRoundResults(roundID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(results)
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
