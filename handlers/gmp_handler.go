package handlers

import (
	"github.com/fenilmodi00/ipo-gmp-tracker/services"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type GMPHandler struct {
	Registry   services.IPORegistry
	Store      services.GMPSampleStore
	Aggregator *services.AggregationEngine
}

func NewGMPHandler(registry services.IPORegistry, store services.GMPSampleStore, aggregator *services.AggregationEngine) *GMPHandler {
	return &GMPHandler{Registry: registry, Store: store, Aggregator: aggregator}
}

// GetGMPByIPO returns the IPO with its full GMP history
func (h *GMPHandler) GetGMPByIPO(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid IPO ID format",
		})
	}

	ipo, err := services.LoadIPOWithHistory(c.Context(), h.Registry, h.Store, id)
	if services.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "IPO not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    ipo,
	})
}

// GetGMPWindow shows the samples and average the alert engine would use for this IPO
func (h *GMPHandler) GetGMPWindow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid IPO ID format",
		})
	}

	ipo, err := h.Registry.GetByID(c.Context(), id)
	if services.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "IPO not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	result, err := h.Aggregator.Aggregate(c.Context(), *ipo)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	days := make([]string, len(result.Days))
	for i, d := range result.Days {
		days[i] = shared.FormatDate(d)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"ipo":         ipo,
			"policy":      h.Aggregator.Policy.WindowPolicy,
			"window_days": days,
			"outcome":     result.Outcome,
			"samples":     result.Samples,
			"average_gmp": services.RoundGMP(result.Average),
			"threshold":   h.Aggregator.Policy.GMPThresholdPercent,
			"qualifies":   result.HasAverage() && result.Average >= h.Aggregator.Policy.GMPThresholdPercent,
		},
	})
}
