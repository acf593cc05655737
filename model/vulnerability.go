// Package model defines the data structures used by the vintel-backend,
// including advisories, vulnerability records, and KPI snapshots.
package model

import (
	"encoding/json"
	"time"
)

// RecordSource identifies where a vulnerability record came from. Higher
// values are more authoritative when records are merged by identifier.
type RecordSource int

const (
	// SourceUnknown is the zero value for records with no declared origin.
	SourceUnknown RecordSource = iota
	// SourceLive marks records fetched from a live feed (NVD, OSV).
	SourceLive
	// SourceOffline marks records loaded from the offline reference list.
	// Offline records win merges so repeated runs avoid redundant requests.
	SourceOffline
)

// String returns the human-readable name of the record source
func (s RecordSource) String() string {
	switch s {
	case SourceLive:
		return "live"
	case SourceOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// VulnerabilityRecord represents a scored vulnerability entry (a CVE).
// Identity is by ID alone: two records with the same ID are the same logical
// entity and are merged on upsert.
type VulnerabilityRecord struct {
	Key         string          `json:"_key,omitempty"`
	ID          string          `json:"id"`                    // e.g. "CVE-2024-1234"
	Score       *float64        `json:"severity_score"`        // nil when unscored; 0 is a valid score
	Rating      string          `json:"severity_rating"`       // NONE/LOW/MEDIUM/HIGH/CRITICAL
	Vector      string          `json:"severity_vector,omitempty"`
	Summary     string          `json:"summary,omitempty"`     // short description
	PublishedAt time.Time       `json:"published_at"`          // vendor publication timestamp
	Source      RecordSource    `json:"source"`                // merge authority
	Packages    []string        `json:"packages,omitempty"`    // normalized base purls, when known
	Raw         json.RawMessage `json:"raw,omitempty"`         // opaque payload retained for output formatting
	ObjType     string          `json:"objtype,omitempty"`     // "VulnerabilityRecord"
	FetchedAt   time.Time       `json:"fetched_at,omitempty"`  // when this record entered the set
}

// NewVulnerabilityRecord creates a vulnerability record with default values
func NewVulnerabilityRecord(id string) *VulnerabilityRecord {
	return &VulnerabilityRecord{
		ID:        id,
		Rating:    "NONE",
		Source:    SourceUnknown,
		ObjType:   "VulnerabilityRecord",
		FetchedAt: time.Now(),
	}
}

// HasScore reports whether the record carries a severity score.
// Absence and zero must stay distinguishable, hence the pointer.
func (v *VulnerabilityRecord) HasScore() bool {
	return v != nil && v.Score != nil
}

// ScoreValue returns the severity score, or 0 when unscored
func (v *VulnerabilityRecord) ScoreValue() float64 {
	if !v.HasScore() {
		return 0
	}
	return *v.Score
}
