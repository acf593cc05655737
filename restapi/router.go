// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/internal/runner"
	"github.com/vulnwatch/vintel-backend/restapi/modules/advisories"
	"github.com/vulnwatch/vintel-backend/restapi/modules/kpi"
	"github.com/vulnwatch/vintel-backend/restapi/modules/runs"
	"github.com/vulnwatch/vintel-backend/restapi/modules/vulnerabilities"
)

// SetupRoutes configures all REST API routes and the GraphQL endpoint
func SetupRoutes(app *fiber.App, db database.DBConnection, r *runner.Runner, schema graphql.Schema) {
	// API Group /api/v1
	api := app.Group("/api/v1")

	// GraphQL Route - Mounted within the api group to inherit path prefixes
	api.Post("/graphql", GraphQLHandler(schema))

	// Collection runs
	api.Post("/runs", runs.PostRun(db, r))

	// Stored advisories
	api.Get("/advisories", advisories.ListAdvisories(db))
	api.Get("/advisories/:id", advisories.GetAdvisory(db))

	// Stored CVE records
	api.Get("/vulnerabilities", vulnerabilities.ListVulnerabilities(db))
	api.Get("/vulnerabilities/:id", vulnerabilities.GetVulnerability(db))
	api.Get("/vulnerabilities/:id/affected", vulnerabilities.CheckAffected(db))

	// KPI history
	api.Get("/kpi/history", kpi.GetHistory(r))
	api.Get("/kpi/stored", kpi.GetStoredHistory(db))

	log.Println("API routes initialized successfully")
}
