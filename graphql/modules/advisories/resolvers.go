// Package advisories implements the resolvers for stored advisories.
package advisories

import (
	"context"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/model"
)

// ResolveAdvisories lists stored advisories, newest first, optionally
// restricted to those carrying the given keyword.
func ResolveAdvisories(db database.DBConnection, keyword string, limit int) (interface{}, error) {
	ctx := context.Background()

	query := `
		FOR a IN advisory
			FILTER @keyword == "" OR @keyword IN a.keywords
			SORT a.published_at DESC
			LIMIT @limit
			RETURN a
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"keyword": strings.ToLower(strings.TrimSpace(keyword)),
			"limit":   limit,
		},
	})
	if err != nil {
		return nil, err
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
	return advisories, nil
}

// ResolveAdvisory fetches one stored advisory by reference
func ResolveAdvisory(db database.DBConnection, id string) (interface{}, error) {
	ctx := context.Background()

	query := `
		FOR a IN advisory
			FILTER a.id == @id
			LIMIT 1
			RETURN a
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"id": strings.ToUpper(id)},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var adv model.AdvisoryRecord
		if _, err := cursor.ReadDocument(ctx, &adv); err == nil {
			return adv, nil
		}
	}
	return nil, nil
}
