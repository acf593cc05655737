// Package vulnerabilities implements the REST API handlers for stored CVE records.
package vulnerabilities

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/gofiber/fiber/v2"
	"github.com/google/osv-scanner/pkg/models"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

// ListVulnerabilities handles GET requests for stored CVE records, optionally
// filtered by severity rating.
func ListVulnerabilities(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rating := strings.ToUpper(c.Query("rating"))
		if rating != "" && !util.Contains(util.SeverityBands, rating) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Unknown severity rating: " + rating,
			})
		}

		query := `
			FOR v IN cve
				FILTER @rating == null OR v.severity_rating == @rating
				SORT v.severity_score DESC
				LIMIT @limit
				RETURN v
		`
		bindVars := map[string]interface{}{
			"rating": nil,
			"limit":  c.QueryInt("limit", 100),
		}
		if rating != "" {
			bindVars["rating"] = rating
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

		vulns := []model.VulnerabilityRecord{}
		for cursor.HasMore() {
			var vuln model.VulnerabilityRecord
			if _, err := cursor.ReadDocument(ctx, &vuln); err != nil {
				continue
			}
			vulns = append(vulns, vuln)
		}

		return c.JSON(fiber.Map{
			"success":         true,
			"vulnerabilities": vulns,
		})
	}
}

// CheckAffected handles GET requests asking whether a package version falls
// inside the affected ranges of a stored record. The ranges come from the
// raw OSV payload retained on the record; records fetched from other sources
// carry no ranges and always answer not affected.
func CheckAffected(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := util.NormalizeCVEID(c.Params("id"))
		version := c.Query("version")
		if version == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Query parameter 'version' is required",
			})
		}
		if util.ParseSemanticVersion(version).Major == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Unparseable version: " + version,
			})
		}

		query := `
			FOR v IN cve
				FILTER v.id == @id
				LIMIT 1
				RETURN v
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

		if !cursor.HasMore() {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Vulnerability not found: " + id,
			})
		}

		var record model.VulnerabilityRecord
		if _, err := cursor.ReadDocument(ctx, &record); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Read failed: " + err.Error(),
			})
		}

		var osv models.Vulnerability
		if len(record.Raw) > 0 {
			// Best effort: non-OSV payloads simply leave the range list empty.
			_ = json.Unmarshal(record.Raw, &osv)
		}

		affected := util.IsVersionAffectedAny(version, osv.Affected)
		response := fiber.Map{
			"success":  true,
			"id":       id,
			"version":  version,
			"affected": affected,
		}
		if affected {
			response["fixed_versions"] = util.ExtractApplicableFixedVersion(version, osv.Affected)
		}
		return c.JSON(response)
	}
}

// GetVulnerability handles GET requests for a single CVE record by id
func GetVulnerability(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := util.NormalizeCVEID(c.Params("id"))
		if !util.IsValidCVEID(id) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Not a CVE id: " + c.Params("id"),
			})
		}

		query := `
			FOR v IN cve
				FILTER v.id == @id
				LIMIT 1
				RETURN v
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
			var vuln model.VulnerabilityRecord
			if _, err := cursor.ReadDocument(ctx, &vuln); err == nil {
				return c.JSON(fiber.Map{"success": true, "vulnerability": vuln})
			}
		}

		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Vulnerability not found: " + id,
		})
	}
}
