// Package dashboard defines the GraphQL queries for the dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"

	"github.com/vulnwatch/vintel-backend/database"
)

// GetQueryFields returns the dashboard queries to be mounted in the root schema
func GetQueryFields(db database.DBConnection) graphql.Fields {
	return graphql.Fields{
		// Section 1: Charts (Severity)
		"severityDistribution": &graphql.Field{
			Type: SeverityDistributionType,
			Resolve: func(_ graphql.ResolveParams) (interface{}, error) {
				return ResolveSeverityDistribution(db)
			},
		},
		// Section 2: Trend Line (KPI history)
		"kpiTrend": &graphql.Field{
			Type: graphql.NewList(KpiPointType),
			Args: graphql.FieldConfigArgument{
				"depth": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 30},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				depth := p.Args["depth"].(int)
				return ResolveKpiTrend(db, depth)
			},
		},
		// Section 3: Tables (Most Severe Advisories)
		"topAdvisories": &graphql.Field{
			Type: graphql.NewList(TopAdvisoryType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 5},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				limit := p.Args["limit"].(int)
				return ResolveTopAdvisories(db, limit)
			},
		},
	}
}
