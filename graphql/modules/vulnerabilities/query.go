// Package vulnerabilities defines the GraphQL queries for stored CVE records.
package vulnerabilities

import (
	"github.com/graphql-go/graphql"

	"github.com/vulnwatch/vintel-backend/database"
)

// GetQueryFields returns the vulnerability queries to be mounted in the root schema
func GetQueryFields(db database.DBConnection) graphql.Fields {
	return graphql.Fields{
		"vulnerabilities": &graphql.Field{
			Type: graphql.NewList(VulnerabilityType),
			Args: graphql.FieldConfigArgument{
				"rating": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				rating := p.Args["rating"].(string)
				limit := p.Args["limit"].(int)
				return ResolveVulnerabilities(db, rating, limit)
			},
		},
		"vulnerability": &graphql.Field{
			Type: VulnerabilityType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id := p.Args["id"].(string)
				return ResolveVulnerability(db, id)
			},
		},
	}
}
