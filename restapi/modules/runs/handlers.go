// Package runs implements the REST API handlers for collection runs.
package runs

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/internal/filter"
	"github.com/vulnwatch/vintel-backend/internal/runner"
	"github.com/vulnwatch/vintel-backend/internal/services"
	"github.com/vulnwatch/vintel-backend/internal/severity"
	"github.com/vulnwatch/vintel-backend/model"
)

// PostRun handles POST requests that execute a collection run. Configuration
// problems return 400 before any fetch happens; per-target fetch failures
// are reported in the response body alongside the successful results.
func PostRun(db database.DBConnection, r *runner.Runner) fiber.Handler {
	service := &services.RunService{DB: db}

	return func(c *fiber.Ctx) error {
		var req model.RunRequest

		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request body: " + err.Error(),
			})
		}

		if len(req.Targets) == 0 && req.Feed == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "At least one target or a feed is required",
			})
		}

		result, err := r.Run(c.Context(), req)
		if err != nil {
			var cfgErr *filter.ConfigError
			if errors.As(err, &cfgErr) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"message": cfgErr.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Run failed: " + err.Error(),
			})
		}

		// Persistence failure does not invalidate the computed results, so
		// the response still carries them.
		if err := service.PersistRun(context.Background(), result); err != nil {
			log.Printf("WARNING: Failed to persist run %s: %v", result.RunID, err)
		}

		return c.JSON(buildResponse(result))
	}
}

// buildResponse assembles the output tuples for a completed run
func buildResponse(result *runner.Result) model.RunResponse {
	resp := model.RunResponse{
		Success:  true,
		Message:  "Run complete",
		RunID:    result.RunID,
		Errors:   result.Errors,
		Snapshot: result.Snapshot,
	}

	for _, adv := range result.Advisories {
		item := model.AdvisoryResult{
			AdvisoryID:      adv.ID,
			Title:           adv.Title,
			PublishedAt:     adv.PublishedAt,
			References:      adv.References,
			MatchedKeywords: adv.MatchKeywords(result.Config.Keywords),
			MaxSeverityBand: severity.Band(adv, result.Set),
		}
		if max := severity.MaxSeverity(adv, result.Set); max != nil {
			item.MaxSeverityID = max.VulnerabilityID
			score := max.Score
			item.MaxSeverityScore = &score
		}
		resp.Advisories = append(resp.Advisories, item)
	}

	for _, vuln := range result.Set.Vulnerabilities() {
		item := model.CVEResult{
			VulnerabilityID: vuln.ID,
			SeverityScore:   vuln.Score,
			SeverityBand:    vuln.Rating,
		}
		resp.CVEs = append(resp.CVEs, item)
	}
	return resp
}
