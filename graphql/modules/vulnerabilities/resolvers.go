// Package vulnerabilities implements the resolvers for stored CVE records.
package vulnerabilities

import (
	"context"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

// ResolveVulnerabilities lists stored CVE records sorted by score, optionally
// restricted to one severity rating.
func ResolveVulnerabilities(db database.DBConnection, rating string, limit int) (interface{}, error) {
	ctx := context.Background()

	query := `
		FOR v IN cve
			FILTER @rating == "" OR v.severity_rating == @rating
			SORT v.severity_score DESC
			LIMIT @limit
			RETURN v
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"rating": strings.ToUpper(strings.TrimSpace(rating)),
			"limit":  limit,
		},
	})
	if err != nil {
		return nil, err
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
	return vulns, nil
}

// ResolveVulnerability fetches one stored CVE record by id
func ResolveVulnerability(db database.DBConnection, id string) (interface{}, error) {
	ctx := context.Background()

	query := `
		FOR v IN cve
			FILTER v.id == @id
			LIMIT 1
			RETURN v
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"id": util.NormalizeCVEID(id)},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var vuln model.VulnerabilityRecord
		if _, err := cursor.ReadDocument(ctx, &vuln); err == nil {
			return vuln, nil
		}
	}
	return nil, nil
}
