// Package model - request and response shapes for the REST API.
package model

import "time"

// RunRequest is the body for POST /api/v1/runs
type RunRequest struct {
	Targets     []string `json:"targets"`                // advisory refs/links or CVE ids
	Mode        string   `json:"mode,omitempty"`         // "advisory" (default) or "cve"
	Feed        string   `json:"feed,omitempty"`         // RSS feed URL to expand into targets; any non-URL value uses the source's standard feed
	Keywords    []string `json:"keywords,omitempty"`
	DateFrom    string   `json:"date_from,omitempty"`    // YYYY-MM-DD, inclusive
	DateTo      string   `json:"date_to,omitempty"`      // YYYY-MM-DD, inclusive
	OfflineList string   `json:"offline_list,omitempty"` // path to an offline reference list
}

// RunResponse returns the result of POST /api/v1/runs
type RunResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	RunID      string            `json:"run_id,omitempty"`
	Advisories []AdvisoryResult  `json:"advisories,omitempty"`
	CVEs       []CVEResult       `json:"cves,omitempty"`
	Errors     []TargetError     `json:"errors,omitempty"`
	Snapshot   *KpiSnapshot      `json:"snapshot,omitempty"`
}

// AdvisoryResult is one output tuple of an advisory run
type AdvisoryResult struct {
	AdvisoryID       string    `json:"advisory_id"`
	Title            string    `json:"title,omitempty"`
	PublishedAt      time.Time `json:"published_at"`
	References       []string  `json:"references,omitempty"`
	MaxSeverityID    string    `json:"max_severity_id,omitempty"`
	MaxSeverityScore *float64  `json:"max_severity_score,omitempty"`
	MaxSeverityBand  string    `json:"max_severity_band,omitempty"`
	MatchedKeywords  []string  `json:"matched_keywords,omitempty"`
}

// CVEResult is one output tuple of a direct vulnerability run
type CVEResult struct {
	VulnerabilityID string   `json:"vulnerability_id"`
	SeverityScore   *float64 `json:"severity_score,omitempty"`
	SeverityBand    string   `json:"severity_band,omitempty"`
}

// TargetError reports a per-target fetch failure that did not abort the run
type TargetError struct {
	Target string `json:"target"`
	Kind   string `json:"kind"` // timeout / not_found / rate_limited / parse
	Error  string `json:"error"`
}
