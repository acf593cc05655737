// Package graphql assembles the root GraphQL schema from the module query fields.
package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/graphql/modules/advisories"
	"github.com/vulnwatch/vintel-backend/graphql/modules/dashboard"
	"github.com/vulnwatch/vintel-backend/graphql/modules/vulnerabilities"
)

var db database.DBConnection

// InitDB stores the database connection for the resolvers
func InitDB(conn database.DBConnection) {
	db = conn
}

// CreateSchema builds the root schema by mounting each module's query fields
func CreateSchema() (graphql.Schema, error) {
	fields := graphql.Fields{}

	for name, field := range dashboard.GetQueryFields(db) {
		fields[name] = field
	}
	for name, field := range advisories.GetQueryFields(db) {
		fields[name] = field
	}
	for name, field := range vulnerabilities.GetQueryFields(db) {
		fields[name] = field
	}

	rootQuery := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: fields,
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: rootQuery,
	})
}
