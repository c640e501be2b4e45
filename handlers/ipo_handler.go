package handlers

import (
	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPOHandler struct {
	Registry services.IPORegistry
	Store    services.GMPSampleStore
}

func NewIPOHandler(registry services.IPORegistry, store services.GMPSampleStore) *IPOHandler {
	return &IPOHandler{Registry: registry, Store: store}
}

// GetIPOs lists tracked IPOs, optionally filtered by ?status=. With ?gmp_range=low|high|all
// each IPO carries its latest GMP, the list keeps only that bucket and is capped at ten.
func (h *IPOHandler) GetIPOs(c *fiber.Ctx) error {
	status := c.Query("status", "all")

	rawRange := c.Query("gmp_range")
	gmpRange, err := services.ParseGMPRange(rawRange)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Unknown gmp_range filter, expected low, high or all",
		})
	}

	var ipos []models.IPO
	if status == "all" {
		ipos, err = h.Registry.List(c.Context())
	} else {
		if !models.IPOStatus(status).IsValid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Unknown status filter",
			})
		}
		ipos, err = h.Registry.FindByStatus(c.Context(), models.IPOStatus(status))
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	if rawRange != "" {
		matched, total, err := services.FilterByLatestGMP(c.Context(), h.Store, ipos, gmpRange, services.DefaultGMPRangeLimit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"success":   true,
			"data":      matched,
			"count":     len(matched),
			"total":     total,
			"gmp_range": gmpRange,
		})
	}

	if ipos == nil {
		ipos = []models.IPO{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    ipos,
		"count":   len(ipos),
	})
}

func (h *IPOHandler) GetIPOByID(c *fiber.Ctx) error {
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
	return c.JSON(fiber.Map{
		"success": true,
		"data":    ipo,
	})
}
