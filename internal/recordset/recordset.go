// Package recordset owns the per-run collection of advisory and
// vulnerability records. It merges records by identifier and maintains the
// advisory -> vulnerability reference index.
package recordset

import (
	"sync"

	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

// RecordSet is the arena for one run. All records are owned here and looked
// up by identifier; nothing holds cross-record pointers, so any record can be
// replaced and the reference index rebuilt cheaply.
//
// A RecordSet is created empty at run start and discarded at run end.
// Concurrent fetches may call Upsert* from multiple goroutines; writes are
// serialized internally.
type RecordSet struct {
	mu sync.RWMutex

	advisories      map[string]*model.AdvisoryRecord
	vulnerabilities map[string]*model.VulnerabilityRecord

	// referencedBy maps a CVE id to the advisory ids that mention it, so a
	// vulnerability upsert can invalidate exactly the affected caches.
	referencedBy map[string][]string

	// advisoryOrder and vulnOrder preserve arrival order for output.
	advisoryOrder []string
	vulnOrder     []string
}

// New creates an empty record set
func New() *RecordSet {
	return &RecordSet{
		advisories:      make(map[string]*model.AdvisoryRecord),
		vulnerabilities: make(map[string]*model.VulnerabilityRecord),
		referencedBy:    make(map[string][]string),
	}
}

// UpsertAdvisory merges or inserts an advisory by identifier and returns
// whether the id was new. On merge the incoming record replaces the stored
// one; the cached max severity of the stored record is dropped either way.
func (rs *RecordSet) UpsertAdvisory(adv *model.AdvisoryRecord) bool {
	if adv == nil || adv.ID == "" {
		return false
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	prev, exists := rs.advisories[adv.ID]
	if exists {
		rs.dropReferences(prev)
	} else {
		rs.advisoryOrder = append(rs.advisoryOrder, adv.ID)
	}

	adv.InvalidateMaxSeverity()
	rs.advisories[adv.ID] = adv
	rs.addReferences(adv)

	return !exists
}

// UpsertVulnerability merges or inserts a vulnerability by identifier and
// returns whether the id was new. Offline-sourced records are authoritative:
// a live record never overwrites an offline one, which keeps re-fetches
// idempotent and avoids redundant requests.
func (rs *RecordSet) UpsertVulnerability(vuln *model.VulnerabilityRecord) bool {
	if vuln == nil || vuln.ID == "" {
		return false
	}
	vuln.ID = util.NormalizeCVEID(vuln.ID)

	rs.mu.Lock()
	defer rs.mu.Unlock()

	prev, exists := rs.vulnerabilities[vuln.ID]
	if exists {
		if prev.Source > vuln.Source {
			// Stored record is more authoritative; keep it.
			return false
		}
	} else {
		rs.vulnOrder = append(rs.vulnOrder, vuln.ID)
	}

	rs.vulnerabilities[vuln.ID] = vuln
	rs.invalidateReferrers(vuln.ID)

	return !exists
}

// GetAdvisory returns the advisory for the given id, if present
func (rs *RecordSet) GetAdvisory(id string) (*model.AdvisoryRecord, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	adv, ok := rs.advisories[id]
	return adv, ok
}

// GetVulnerability returns the vulnerability for the given id, if present.
// Lookup is by canonical id form; a missing id is not an error.
func (rs *RecordSet) GetVulnerability(id string) (*model.VulnerabilityRecord, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	vuln, ok := rs.vulnerabilities[util.NormalizeCVEID(id)]
	return vuln, ok
}

// HasVulnerability reports whether the id resolves in the current set
func (rs *RecordSet) HasVulnerability(id string) bool {
	_, ok := rs.GetVulnerability(id)
	return ok
}

// Advisories returns the advisories in arrival order
func (rs *RecordSet) Advisories() []*model.AdvisoryRecord {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]*model.AdvisoryRecord, 0, len(rs.advisoryOrder))
	for _, id := range rs.advisoryOrder {
		out = append(out, rs.advisories[id])
	}
	return out
}

// Vulnerabilities returns the vulnerability records in arrival order
func (rs *RecordSet) Vulnerabilities() []*model.VulnerabilityRecord {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]*model.VulnerabilityRecord, 0, len(rs.vulnOrder))
	for _, id := range rs.vulnOrder {
		out = append(out, rs.vulnerabilities[id])
	}
	return out
}

// References returns the ordered CVE ids referenced by the given advisory.
// The graph is bipartite: advisories reference vulnerabilities, never each
// other, so no cycle handling is needed.
func (rs *RecordSet) References(advisoryID string) []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	adv, ok := rs.advisories[advisoryID]
	if !ok {
		return nil
	}
	refs := make([]string, len(adv.References))
	copy(refs, adv.References)
	return refs
}

// UnresolvedReferences returns the referenced ids that do not resolve to a
// known vulnerability record. Unresolved references are expected, not errors.
func (rs *RecordSet) UnresolvedReferences(advisoryID string) []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	adv, ok := rs.advisories[advisoryID]
	if !ok {
		return nil
	}
	var missing []string
	for _, ref := range adv.References {
		if _, ok := rs.vulnerabilities[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	return missing
}

// AdvisoryCount returns the number of advisories in the set
func (rs *RecordSet) AdvisoryCount() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.advisories)
}

// VulnerabilityCount returns the number of vulnerability records in the set
func (rs *RecordSet) VulnerabilityCount() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.vulnerabilities)
}

// MissingIDs returns the ids from the given list that are not yet present in
// the set. The runner uses this to fetch only what the offline reference
// list did not already supply.
func (rs *RecordSet) MissingIDs(ids []string) []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var missing []string
	for _, id := range ids {
		if _, ok := rs.vulnerabilities[util.NormalizeCVEID(id)]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// addReferences indexes the advisory's reference list. Caller holds the lock.
func (rs *RecordSet) addReferences(adv *model.AdvisoryRecord) {
	for _, ref := range adv.References {
		rs.referencedBy[ref] = append(rs.referencedBy[ref], adv.ID)
	}
}

// dropReferences removes the advisory from the reference index. Caller holds
// the lock.
func (rs *RecordSet) dropReferences(adv *model.AdvisoryRecord) {
	for _, ref := range adv.References {
		ids := rs.referencedBy[ref]
		for i, id := range ids {
			if id == adv.ID {
				rs.referencedBy[ref] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(rs.referencedBy[ref]) == 0 {
			delete(rs.referencedBy, ref)
		}
	}
}

// invalidateReferrers drops cached max-severity results on every advisory
// that references the given id. Caller holds the lock.
func (rs *RecordSet) invalidateReferrers(vulnID string) {
	for _, advID := range rs.referencedBy[vulnID] {
		if adv, ok := rs.advisories[advID]; ok {
			adv.InvalidateMaxSeverity()
		}
	}
}
