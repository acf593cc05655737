// Package util provides utility functions for the backend.
package util

import (
	"fmt"
	"strings"

	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

// Severity rating bands following the CVSS v3 qualitative scale.
const (
	SeverityNone     = "NONE"
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// SeverityBands lists the band labels from least to most severe.
var SeverityBands = []string{SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ParseCVSSVector parses a vector string and returns its base score. Parse
// failure is reported as an error so a genuine 0.0 score stays
// distinguishable from an unparseable vector.
func ParseCVSSVector(vectorStr string) (float64, error) {
	switch {
	case strings.HasPrefix(vectorStr, "CVSS:3.1"), strings.HasPrefix(vectorStr, "CVSS:3.0"):
		cvss31, err := gocvss31.ParseVector(vectorStr)
		if err != nil {
			return 0, err
		}
		return cvss31.BaseScore(), nil
	case strings.HasPrefix(vectorStr, "CVSS:4.0"):
		cvss40, err := gocvss40.ParseVector(vectorStr)
		if err != nil {
			return 0, err
		}
		return cvss40.Score(), nil
	default:
		return 0, fmt.Errorf("unsupported CVSS vector %q", vectorStr)
	}
}

// GetSeverityRating returns the severity rating band for a given CVSS score
func GetSeverityRating(score float64) string {
	switch {
	case score == 0:
		return SeverityNone
	case score < 4.0:
		return SeverityLow
	case score < 7.0:
		return SeverityMedium
	case score < 9.0:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// IsValidCVSSScore checks that a score falls inside the CVSS base score range
func IsValidCVSSScore(score float64) bool {
	return score >= 0 && score <= 10
}
