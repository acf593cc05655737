// Package advisories defines the GraphQL queries for stored advisories.
package advisories

import (
	"github.com/graphql-go/graphql"

	"github.com/vulnwatch/vintel-backend/database"
)

// GetQueryFields returns the advisory queries to be mounted in the root schema
func GetQueryFields(db database.DBConnection) graphql.Fields {
	return graphql.Fields{
		"advisories": &graphql.Field{
			Type: graphql.NewList(AdvisoryType),
			Args: graphql.FieldConfigArgument{
				"keyword": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				keyword := p.Args["keyword"].(string)
				limit := p.Args["limit"].(int)
				return ResolveAdvisories(db, keyword, limit)
			},
		},
		"advisory": &graphql.Field{
			Type: AdvisoryType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id := p.Args["id"].(string)
				return ResolveAdvisory(db, id)
			},
		},
	}
}
