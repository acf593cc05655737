// Package util provides utility functions for the backend.
package util

import (
	"regexp"
	"strings"
)

// cveIDPattern matches the CVE identifier grammar: the literal CVE prefix,
// a four digit year segment and a 4-7 digit sequence segment.
// Matching is case-insensitive; the canonical form is uppercase.
var cveIDPattern = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,7}`)

// IsValidCVEID checks whether the given string is a well-formed CVE identifier
func IsValidCVEID(id string) bool {
	m := cveIDPattern.FindString(id)
	return m != "" && len(m) == len(id)
}

// NormalizeCVEID returns the canonical uppercase form of a CVE identifier
func NormalizeCVEID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ExtractCVEIDs extracts all CVE identifiers mentioned in a block of text.
// Duplicates are removed while preserving first-seen order, so the result is
// stable for display and usable as a reference sequence.
func ExtractCVEIDs(text string) []string {
	matches := cveIDPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var ids []string
	for _, m := range matches {
		id := NormalizeCVEID(m)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
