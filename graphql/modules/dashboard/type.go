// Package dashboard defines the GraphQL types for the intelligence dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"
)

// SeverityDistributionType represents the data for the pie/bar charts
var SeverityDistributionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SeverityDistribution",
	Fields: graphql.Fields{
		"critical": &graphql.Field{Type: graphql.Int},
		"high":     &graphql.Field{Type: graphql.Int},
		"medium":   &graphql.Field{Type: graphql.Int},
		"low":      &graphql.Field{Type: graphql.Int},
		"none":     &graphql.Field{Type: graphql.Int},
	},
})

// KpiPointType represents one snapshot of the KPI trend line
var KpiPointType = graphql.NewObject(graphql.ObjectConfig{
	Name: "KpiPoint",
	Fields: graphql.Fields{
		"timestamp": &graphql.Field{Type: graphql.String},
		"critical":  &graphql.Field{Type: graphql.Int},
		"high":      &graphql.Field{Type: graphql.Int},
		"medium":    &graphql.Field{Type: graphql.Int},
		"low":       &graphql.Field{Type: graphql.Int},
		"none":      &graphql.Field{Type: graphql.Int},
		"total":     &graphql.Field{Type: graphql.Int},
	},
})

// TopAdvisoryType represents rows for the "Most Severe Advisories" table
var TopAdvisoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TopAdvisory",
	Fields: graphql.Fields{
		"advisory_id":        &graphql.Field{Type: graphql.String},
		"title":              &graphql.Field{Type: graphql.String},
		"published_at":       &graphql.Field{Type: graphql.String},
		"max_severity_id":    &graphql.Field{Type: graphql.String},
		"max_severity_score": &graphql.Field{Type: graphql.Float},
		"max_severity_band":  &graphql.Field{Type: graphql.String},
		"reference_count":    &graphql.Field{Type: graphql.Int},
	},
})
