package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/jobs"
	"github.com/fenilmodi00/ipo-gmp-tracker/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AlertRunner runs one alert pass and reports its counters
type AlertRunner interface {
	RunWithSummary(ctx context.Context) (services.RunSummary, error)
}

type AdminHandler struct {
	AlertJob   AlertRunner
	CollectJob jobs.Job
}

func NewAdminHandler(alertJob AlertRunner, collectJob jobs.Job) *AdminHandler {
	return &AdminHandler{
		AlertJob:   alertJob,
		CollectJob: collectJob,
	}
}

// TriggerAlertRun manually runs the alert decision pass for today
func (h *AdminHandler) TriggerAlertRun(c *fiber.Ctx) error {
	logrus.Info("Manual alert run triggered via admin endpoint")
	startTime := time.Now()

	summary, err := h.AlertJob.RunWithSummary(c.Context())
	if errors.Is(err, jobs.ErrAlertRunInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Alert run completed",
		"data":      summary,
		"duration":  time.Since(startTime).String(),
		"timestamp": time.Now(),
	})
}

// TriggerGMPCollect manually runs the GMP collection job
func (h *AdminHandler) TriggerGMPCollect(c *fiber.Ctx) error {
	logrus.Info("Manual GMP collection triggered via admin endpoint")
	startTime := time.Now()

	if err := h.CollectJob.Run(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "GMP collection completed",
		"duration":  time.Since(startTime).String(),
		"timestamp": time.Now(),
	})
}
