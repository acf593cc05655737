// Package vulnerabilities defines the GraphQL types for stored CVE records.
package vulnerabilities

import (
	"github.com/graphql-go/graphql"
)

// VulnerabilityType represents one stored CVE record
var VulnerabilityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Vulnerability",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.String},
		"summary":         &graphql.Field{Type: graphql.String},
		"severity_score":  &graphql.Field{Type: graphql.Float},
		"severity_vector": &graphql.Field{Type: graphql.String},
		"severity_rating": &graphql.Field{Type: graphql.String},
		"source":          &graphql.Field{Type: graphql.Int},
		"published_at":    &graphql.Field{Type: graphql.String},
		"packages":        &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})
