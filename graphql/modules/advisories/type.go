// Package advisories defines the GraphQL types for stored advisories.
package advisories

import (
	"github.com/graphql-go/graphql"
)

// AdvisoryType represents one stored advisory
var AdvisoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Advisory",
	Fields: graphql.Fields{
		"id":           &graphql.Field{Type: graphql.String},
		"title":        &graphql.Field{Type: graphql.String},
		"link":         &graphql.Field{Type: graphql.String},
		"published_at": &graphql.Field{Type: graphql.String},
		"keywords":     &graphql.Field{Type: graphql.NewList(graphql.String)},
		"references":   &graphql.Field{Type: graphql.NewList(graphql.String)},
		"risks":        &graphql.Field{Type: graphql.NewList(graphql.String)},
		"products":     &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})
