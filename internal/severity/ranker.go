// Package severity resolves the worst-case vulnerability for an advisory.
package severity

import (
	"github.com/vulnwatch/vintel-backend/internal/recordset"
	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

// MaxSeverity returns the highest-severity vulnerability resolvable from the
// advisory's references, or nil when none of them carries a score.
//
// Ties on score are broken by the more recent publication date, then by the
// lexicographically last identifier, giving a deterministic total order.
// Unscored vulnerabilities are excluded from the comparison; unresolved
// references are skipped silently. The result is cached on the advisory and
// stays valid until the record set invalidates it.
func MaxSeverity(adv *model.AdvisoryRecord, rs *recordset.RecordSet) *model.MaxSeverityResult {
	if adv == nil {
		return nil
	}
	if cached, ok := adv.CachedMaxSeverity(); ok {
		return cached
	}

	var best *model.VulnerabilityRecord
	for _, ref := range adv.References {
		vuln, ok := rs.GetVulnerability(ref)
		if !ok || !vuln.HasScore() {
			continue
		}
		if best == nil || beats(vuln, best) {
			best = vuln
		}
	}

	var res *model.MaxSeverityResult
	if best != nil {
		res = &model.MaxSeverityResult{
			VulnerabilityID: best.ID,
			Score:           best.ScoreValue(),
			Rating:          util.GetSeverityRating(best.ScoreValue()),
			PublishedAt:     best.PublishedAt,
		}
	}

	adv.CacheMaxSeverity(res)
	return res
}

// Band returns the severity band for an advisory: the band of its resolved
// max severity, or NONE when no referenced vulnerability is scored
func Band(adv *model.AdvisoryRecord, rs *recordset.RecordSet) string {
	res := MaxSeverity(adv, rs)
	if res == nil {
		return util.SeverityNone
	}
	return res.Rating
}

// beats reports whether candidate ranks above current under the
// score, recency, identifier tie-break order
func beats(candidate, current *model.VulnerabilityRecord) bool {
	cs, ps := candidate.ScoreValue(), current.ScoreValue()
	if cs != ps {
		return cs > ps
	}
	if !candidate.PublishedAt.Equal(current.PublishedAt) {
		return candidate.PublishedAt.After(current.PublishedAt)
	}
	return candidate.ID > current.ID
}
