// Package util provides utility functions for the backend.
//
//revive:disable-next-line:var-naming
package util

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	npm "github.com/aquasecurity/go-npm-version/pkg"
	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/google/osv-scanner/pkg/models"
)

// ParsedVersion holds parsed semantic version components
type ParsedVersion struct {
	Major *int
	Minor *int
	Patch *int
}

// ParseSemanticVersion parses a version string into numeric components
// Returns nil values for components that cannot be parsed
func ParseSemanticVersion(version string) *ParsedVersion {
	if version == "" {
		return &ParsedVersion{}
	}

	// "0" is used by OSV for "from the beginning"
	if version == "0" {
		zero := 0
		return &ParsedVersion{Major: &zero, Minor: &zero, Patch: &zero}
	}

	// Strip "go" prefix for Go stdlib versions (e.g. "go1.22.2") since
	// Masterminds/semver does not handle it
	cleanVersion := strings.TrimPrefix(version, "go")

	v, err := semver.NewVersion(cleanVersion)
	if err == nil {
		major := int(v.Major())
		minor := int(v.Minor())
		patch := int(v.Patch())

		return &ParsedVersion{
			Major: &major,
			Minor: &minor,
			Patch: &patch,
		}
	}

	// Fallback for partial versions like "1.2" or "2"
	parts := strings.Split(cleanVersion, ".")
	result := &ParsedVersion{}

	if len(parts) >= 1 {
		if major, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			result.Major = &major
		}
	}
	if len(parts) >= 2 {
		if minor, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			result.Minor = &minor
		}
	}
	if len(parts) >= 3 {
		patchStr := strings.FieldsFunc(parts[2], func(r rune) bool {
			return r == '-' || r == '+'
		})[0]
		if patch, err := strconv.Atoi(strings.TrimSpace(patchStr)); err == nil {
			result.Patch = &patch
		}
	}

	return result
}

// IsVersionAffectedAny checks if a version is affected by any of the provided affected ranges
// This is a convenience wrapper around IsVersionAffected for multiple affected entries
func IsVersionAffectedAny(version string, allAffected []models.Affected) bool {
	for _, affected := range allAffected {
		if IsVersionAffected(version, affected) {
			return true
		}
	}
	return false
}

// IsVersionAffected checks if a version is affected by OSV ranges
// Uses ecosystem-specific version parsers for accurate comparison
func IsVersionAffected(version string, affected models.Affected) bool {
	// Check specific versions list
	for _, v := range affected.Versions {
		if version == v {
			return true
		}
	}

	// Check version ranges
	for _, vrange := range affected.Ranges {
		// Only handle SEMVER and ECOSYSTEM types
		if vrange.Type != models.RangeEcosystem && vrange.Type != models.RangeSemVer {
			continue
		}

		ecosystem := ""
		if affected.Package.Ecosystem != "" {
			ecosystem = string(affected.Package.Ecosystem)
		}

		if isVersionInRange(version, vrange, ecosystem) {
			return true
		}
	}

	return false
}

// isVersionInRange checks if a version falls within an OSV range.
// Requires a lower boundary to avoid false positives; "0" means
// "from the beginning" per the OSV spec.
func isVersionInRange(version string, vrange models.Range, ecosystem string) bool {
	switch strings.ToLower(ecosystem) {
	case "npm":
		return isVersionInRangeNPM(version, vrange)
	case "pypi":
		return isVersionInRangePython(version, vrange)
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}

	var introduced, fixed, lastAffected *semver.Version

	for _, event := range vrange.Events {
		if event.Introduced != "" {
			if event.Introduced == "0" {
				introduced = semver.MustParse("0.0.0")
			} else if parsed, err := semver.NewVersion(event.Introduced); err == nil {
				introduced = parsed
			}
		}
		if event.Fixed != "" {
			if parsed, err := semver.NewVersion(event.Fixed); err == nil {
				fixed = parsed
			}
		}
		if event.LastAffected != "" {
			if parsed, err := semver.NewVersion(event.LastAffected); err == nil {
				lastAffected = parsed
			}
		}
	}

	if introduced == nil || v.LessThan(introduced) {
		return false
	}
	if fixed != nil {
		return v.LessThan(fixed)
	}
	if lastAffected != nil {
		return !v.GreaterThan(lastAffected)
	}

	// Open-ended range with a lower boundary only
	return true
}

func isVersionInRangeNPM(version string, vrange models.Range) bool {
	v, err := npm.NewVersion(version)
	if err != nil {
		return false
	}

	var introduced, fixed, lastAffected *npm.Version

	for _, event := range vrange.Events {
		if event.Introduced != "" {
			raw := event.Introduced
			if raw == "0" {
				raw = "0.0.0"
			}
			if parsed, err := npm.NewVersion(raw); err == nil {
				introduced = &parsed
			}
		}
		if event.Fixed != "" {
			if parsed, err := npm.NewVersion(event.Fixed); err == nil {
				fixed = &parsed
			}
		}
		if event.LastAffected != "" {
			if parsed, err := npm.NewVersion(event.LastAffected); err == nil {
				lastAffected = &parsed
			}
		}
	}

	if introduced == nil || v.LessThan(*introduced) {
		return false
	}
	if fixed != nil {
		return v.LessThan(*fixed)
	}
	if lastAffected != nil {
		return !v.GreaterThan(*lastAffected)
	}

	return true
}

func isVersionInRangePython(version string, vrange models.Range) bool {
	v, err := pep440.Parse(version)
	if err != nil {
		return false
	}

	var introduced, fixed, lastAffected *pep440.Version

	for _, event := range vrange.Events {
		if event.Introduced != "" {
			raw := event.Introduced
			if raw == "0" {
				raw = "0.0.0"
			}
			if parsed, err := pep440.Parse(raw); err == nil {
				introduced = &parsed
			}
		}
		if event.Fixed != "" {
			if parsed, err := pep440.Parse(event.Fixed); err == nil {
				fixed = &parsed
			}
		}
		if event.LastAffected != "" {
			if parsed, err := pep440.Parse(event.LastAffected); err == nil {
				lastAffected = &parsed
			}
		}
	}

	if introduced == nil || v.LessThan(*introduced) {
		return false
	}
	if fixed != nil {
		return v.LessThan(*fixed)
	}
	if lastAffected != nil {
		return !v.GreaterThan(*lastAffected)
	}

	return true
}

// ExtractApplicableFixedVersion checks all affected entries and returns the
// fix versions for the ranges that match the current version
func ExtractApplicableFixedVersion(currentVersion string, allAffected []models.Affected) []string {
	var fixes []string

	for _, affected := range allAffected {
		if !IsVersionAffected(currentVersion, affected) {
			continue
		}
		for _, vrange := range affected.Ranges {
			for _, event := range vrange.Events {
				if event.Fixed != "" && !Contains(fixes, event.Fixed) {
					fixes = append(fixes, event.Fixed)
				}
			}
		}
	}

	return fixes
}
