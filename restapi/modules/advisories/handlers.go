// Package advisories implements the REST API handlers for stored advisories.
package advisories

import (
	"context"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/gofiber/fiber/v2"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/internal/filter"
	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

// ListAdvisories handles GET requests for stored advisories. Supports the
// same keyword and date window filters as a run, applied server-side in AQL.
func ListAdvisories(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var keywords []string
		if raw := c.Query("keywords"); raw != "" {
			keywords = util.NormalizeKeywords(strings.Split(raw, ","))
		}

		cfg, err := filter.ParseConfig(keywords, c.Query("date_from"), c.Query("date_to"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		}

		query := `
			FOR a IN advisory
				FILTER LENGTH(@keywords) == 0 OR LENGTH(INTERSECTION(a.keywords, @keywords)) > 0
				FILTER @dateFrom == null OR a.published_at >= @dateFrom
				FILTER @dateTo == null OR a.published_at <= @dateTo
				SORT a.published_at DESC
				LIMIT @limit
				RETURN a
		`
		bindVars := map[string]interface{}{
			"keywords": cfg.Keywords,
			"dateFrom": nil,
			"dateTo":   nil,
			"limit":    c.QueryInt("limit", 100),
		}
		if cfg.Keywords == nil {
			bindVars["keywords"] = []string{}
		}
		if !cfg.DateFrom.IsZero() {
			bindVars["dateFrom"] = cfg.DateFrom
		}
		if !cfg.DateTo.IsZero() {
			bindVars["dateTo"] = cfg.DateTo
		}

		ctx := context.Background()
		cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: bindVars,
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Query failed: " + err.Error(),
			})
		}
		defer cursor.Close()

		advisories := []model.AdvisoryRecord{}
		for cursor.HasMore() {
			var adv model.AdvisoryRecord
			if _, err := cursor.ReadDocument(ctx, &adv); err != nil {
				continue
			}
			advisories = append(advisories, adv)
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"advisories": advisories,
		})
	}
}

// GetAdvisory handles GET requests for a single advisory by reference
func GetAdvisory(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.ToUpper(c.Params("id"))

		query := `
			FOR a IN advisory
				FILTER a.id == @id
				LIMIT 1
				RETURN a
		`
		ctx := context.Background()
		cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]interface{}{"id": id},
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Query failed: " + err.Error(),
			})
		}
		defer cursor.Close()

		if cursor.HasMore() {
			var adv model.AdvisoryRecord
			if _, err := cursor.ReadDocument(ctx, &adv); err == nil {
				return c.JSON(fiber.Map{"success": true, "advisory": adv})
			}
		}

		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Advisory not found: " + id,
		})
	}
}
