// Package model defines the data structures used by the vintel-backend.
package model

import (
	"encoding/json"
	"time"
)

// Risk codes assigned by the CERT authority to an advisory.
const (
	RiskPrivilegeEscalation = "EOP" // élévation de privilèges
	RiskRemoteCodeExecution = "RCE" // exécution de code
	RiskDenialOfService     = "DOS" // déni de service
	RiskSecurityBypass      = "SFB" // contournement
	RiskSpoofing            = "IDT" // usurpation
	RiskDataDisclosure      = "ID"  // atteinte à la confidentialité
	RiskDataTampering       = "TMP" // atteinte à l'intégrité
	RiskCodeInjection       = "XSS" // injection de code
)

// MaxSeverityResult holds the resolved worst-case vulnerability for an
// advisory. A nil result means no referenced vulnerability carries a score.
type MaxSeverityResult struct {
	VulnerabilityID string    `json:"vulnerability_id"`
	Score           float64   `json:"score"`
	Rating          string    `json:"rating"`
	PublishedAt     time.Time `json:"published_at"`
}

// AdvisoryRecord represents a published security advisory referencing one or
// more vulnerabilities. Identity is by ID alone.
type AdvisoryRecord struct {
	Key         string          `json:"_key,omitempty"`
	ID          string          `json:"id"`                     // e.g. "CERTFR-2024-AVI-0001"
	Title       string          `json:"title"`
	Link        string          `json:"link,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
	Keywords    []string        `json:"keywords,omitempty"`     // normalized tokens from title/body
	References  []string        `json:"references,omitempty"`   // CVE ids, first-seen order, deduplicated
	Risks       []string        `json:"risks,omitempty"`        // risk codes, see constants above
	Products    []string        `json:"products,omitempty"`     // affected products as listed by the source
	DocLinks    []string        `json:"doc_links,omitempty"`    // related documentation links
	Sources     []string        `json:"sources,omitempty"`      // vendor bulletins the advisory cites
	Raw         json.RawMessage `json:"raw,omitempty"`          // opaque payload retained for output formatting
	ObjType     string          `json:"objtype,omitempty"`      // "AdvisoryRecord"

	// maxSeverity caches the resolved worst-case vulnerability. It is
	// invalidated whenever References changes or a referenced record is
	// replaced in the owning record set.
	maxSeverity      *MaxSeverityResult
	maxSeverityValid bool
}

// NewAdvisoryRecord creates an advisory record with default values
func NewAdvisoryRecord(id string) *AdvisoryRecord {
	return &AdvisoryRecord{
		ID:      id,
		ObjType: "AdvisoryRecord",
	}
}

// SetReferences replaces the reference sequence and drops the cached
// max-severity result
func (a *AdvisoryRecord) SetReferences(refs []string) {
	a.References = refs
	a.InvalidateMaxSeverity()
}

// CachedMaxSeverity returns the cached max-severity result and whether the
// cache is valid. A valid cache may still hold nil (no scored reference).
func (a *AdvisoryRecord) CachedMaxSeverity() (*MaxSeverityResult, bool) {
	return a.maxSeverity, a.maxSeverityValid
}

// CacheMaxSeverity stores a resolved max-severity result on the advisory
func (a *AdvisoryRecord) CacheMaxSeverity(res *MaxSeverityResult) {
	a.maxSeverity = res
	a.maxSeverityValid = true
}

// InvalidateMaxSeverity drops the cached max-severity result
func (a *AdvisoryRecord) InvalidateMaxSeverity() {
	a.maxSeverity = nil
	a.maxSeverityValid = false
}

// MatchKeywords returns the subset of the given keywords present in the
// advisory's keyword set
func (a *AdvisoryRecord) MatchKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	set := make(map[string]bool, len(a.Keywords))
	for _, k := range a.Keywords {
		set[k] = true
	}
	var matched []string
	for _, k := range keywords {
		if set[k] {
			matched = append(matched, k)
		}
	}
	return matched
}
