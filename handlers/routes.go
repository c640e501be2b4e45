package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck pings a dependency; nil means healthy
type HealthCheck func() error

// RegisterRoutes mounts the inspection API and admin triggers on app
func RegisterRoutes(app *fiber.App, ipoHandler *IPOHandler, gmpHandler *GMPHandler, adminHandler *AdminHandler, health HealthCheck) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if health != nil {
			if err := health(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":    "unavailable",
					"error":     err.Error(),
					"timestamp": time.Now().Unix(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := app.Group("/api/v1")

	api.Get("/ipos", ipoHandler.GetIPOs)
	api.Get("/ipos/:id/gmp/window", gmpHandler.GetGMPWindow)
	api.Get("/ipos/:id/gmp", gmpHandler.GetGMPByIPO)
	api.Get("/ipos/:id", ipoHandler.GetIPOByID)

	admin := api.Group("/admin")
	admin.Post("/alerts/run", adminHandler.TriggerAlertRun)
	admin.Post("/gmp/collect", adminHandler.TriggerGMPCollect)
}
