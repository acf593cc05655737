// Package kpi implements the REST API handlers for KPI history.
package kpi

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/internal/runner"
	"github.com/vulnwatch/vintel-backend/internal/services"
)

// GetHistory handles GET requests for the in-memory KPI history of this
// process: the bounded window the runner folds each run into, plus the
// tendency of the last two snapshots.
func GetHistory(r *runner.Runner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		history := r.HistoryView()
		return c.JSON(fiber.Map{
			"success":  true,
			"name":     history.Name,
			"history":  history.Snapshots,
			"tendency": r.HistoryTendency(),
		})
	}
}

// GetStoredHistory handles GET requests for the persisted KPI snapshots
func GetStoredHistory(db database.DBConnection) fiber.Handler {
	service := &services.RunService{DB: db}

	return func(c *fiber.Ctx) error {
		depth := c.QueryInt("depth", 30)
		history, err := service.LoadHistory(context.Background(), depth)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Query failed: " + err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"name":    history.Name,
			"history": history.Snapshots,
		})
	}
}
