// Package dashboard implements the resolvers for dashboard metrics.
package dashboard

import (
	"context"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/model"
)

// ResolveSeverityDistribution counts stored CVE records per severity band
func ResolveSeverityDistribution(db database.DBConnection) (interface{}, error) {
	ctx := context.Background()

	query := `
		FOR v IN cve
			COLLECT rating = v.severity_rating WITH COUNT INTO count
			RETURN { rating: rating, count: count }
	`
	cursor, err := db.Database.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	distribution := map[string]interface{}{
		"critical": 0,
		"high":     0,
		"medium":   0,
		"low":      0,
		"none":     0,
	}

	for cursor.HasMore() {
		var row struct {
			Rating string `json:"rating"`
			Count  int    `json:"count"`
		}
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			continue
		}
		key := strings.ToLower(row.Rating)
		if _, ok := distribution[key]; ok {
			distribution[key] = row.Count
		}
	}
	return distribution, nil
}

// ResolveKpiTrend returns the persisted KPI snapshots oldest first
func ResolveKpiTrend(db database.DBConnection, depth int) ([]map[string]interface{}, error) {
	ctx := context.Background()

	query := `
		FOR k IN kpi
			SORT k.timestamp DESC
			LIMIT @depth
			SORT k.timestamp ASC
			RETURN k
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"depth": depth},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	points := []map[string]interface{}{}
	for cursor.HasMore() {
		var snap model.KpiSnapshot
		if _, err := cursor.ReadDocument(ctx, &snap); err != nil {
			continue
		}
		points = append(points, map[string]interface{}{
			"timestamp": snap.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			"critical":  snap.Counts["CRITICAL"],
			"high":      snap.Counts["HIGH"],
			"medium":    snap.Counts["MEDIUM"],
			"low":       snap.Counts["LOW"],
			"none":      snap.Counts["NONE"],
			"total":     snap.Total,
		})
	}
	return points, nil
}

// ResolveTopAdvisories ranks stored advisories by the highest severity score
// among their linked CVE records, traversing the advisory2cve edges.
func ResolveTopAdvisories(db database.DBConnection, limit int) ([]map[string]interface{}, error) {
	ctx := context.Background()

	query := `
		FOR a IN advisory
			LET linked = (
				FOR v IN OUTBOUND a._id advisory2cve
					FILTER v.severity_score != null
					SORT v.severity_score DESC, v.published_at DESC, v.id DESC
					LIMIT 1
					RETURN v
			)
			FILTER LENGTH(linked) > 0
			LET worst = linked[0]
			SORT worst.severity_score DESC
			LIMIT @limit
			RETURN {
				advisory_id: a.id,
				title: a.title,
				published_at: a.published_at,
				max_severity_id: worst.id,
				max_severity_score: worst.severity_score,
				max_severity_band: worst.severity_rating,
				reference_count: LENGTH(a.references)
			}
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"limit": limit},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	rows := []map[string]interface{}{}
	for cursor.HasMore() {
		var row map[string]interface{}
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
