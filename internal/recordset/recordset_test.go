package recordset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/vintel-backend/model"
)

func newScoredVuln(id string, score float64, source model.RecordSource) *model.VulnerabilityRecord {
	v := model.NewVulnerabilityRecord(id)
	v.Score = &score
	v.Source = source
	return v
}

func TestUpsertAdvisory(t *testing.T) {
	t.Run("same id is one logical entity", func(t *testing.T) {
		rs := New()

		first := model.NewAdvisoryRecord("CERTFR-2024-AVI-0001")
		first.Title = "first title"
		assert.True(t, rs.UpsertAdvisory(first))

		second := model.NewAdvisoryRecord("CERTFR-2024-AVI-0001")
		second.Title = "updated title"
		assert.False(t, rs.UpsertAdvisory(second))

		assert.Equal(t, 1, rs.AdvisoryCount())
		got, ok := rs.GetAdvisory("CERTFR-2024-AVI-0001")
		require.True(t, ok)
		assert.Equal(t, "updated title", got.Title)
	})

	t.Run("arrival order is preserved across updates", func(t *testing.T) {
		rs := New()
		rs.UpsertAdvisory(model.NewAdvisoryRecord("A1"))
		rs.UpsertAdvisory(model.NewAdvisoryRecord("A2"))
		rs.UpsertAdvisory(model.NewAdvisoryRecord("A1"))

		advisories := rs.Advisories()
		require.Len(t, advisories, 2)
		assert.Equal(t, "A1", advisories[0].ID)
		assert.Equal(t, "A2", advisories[1].ID)
	})
}

func TestUpsertVulnerability(t *testing.T) {
	t.Run("offline wins over live", func(t *testing.T) {
		rs := New()

		offline := newScoredVuln("CVE-2024-0001", 9.1, model.SourceOffline)
		assert.True(t, rs.UpsertVulnerability(offline))

		live := newScoredVuln("CVE-2024-0001", 5.0, model.SourceLive)
		assert.False(t, rs.UpsertVulnerability(live))

		got, ok := rs.GetVulnerability("CVE-2024-0001")
		require.True(t, ok)
		assert.Equal(t, model.SourceOffline, got.Source)
		assert.Equal(t, 9.1, got.ScoreValue())
	})

	t.Run("live replaces live", func(t *testing.T) {
		rs := New()
		rs.UpsertVulnerability(newScoredVuln("CVE-2024-0001", 5.0, model.SourceLive))
		rs.UpsertVulnerability(newScoredVuln("CVE-2024-0001", 7.5, model.SourceLive))

		got, ok := rs.GetVulnerability("CVE-2024-0001")
		require.True(t, ok)
		assert.Equal(t, 7.5, got.ScoreValue())
		assert.Equal(t, 1, rs.VulnerabilityCount())
	})

	t.Run("lookup is case-insensitive on id", func(t *testing.T) {
		rs := New()
		rs.UpsertVulnerability(newScoredVuln("CVE-2024-0001", 5.0, model.SourceLive))

		_, ok := rs.GetVulnerability("cve-2024-0001")
		assert.True(t, ok)
		assert.True(t, rs.HasVulnerability("cve-2024-0001"))
	})
}

func TestReferences(t *testing.T) {
	rs := New()

	adv := model.NewAdvisoryRecord("A1")
	adv.SetReferences([]string{"CVE-2024-0001", "CVE-2024-0002"})
	rs.UpsertAdvisory(adv)

	rs.UpsertVulnerability(newScoredVuln("CVE-2024-0001", 5.0, model.SourceLive))

	assert.Equal(t, []string{"CVE-2024-0001", "CVE-2024-0002"}, rs.References("A1"))
	assert.Equal(t, []string{"CVE-2024-0002"}, rs.UnresolvedReferences("A1"))
	assert.Equal(t, []string{"CVE-2024-0002"}, rs.MissingIDs([]string{"CVE-2024-0001", "CVE-2024-0002"}))
}

func TestCacheInvalidation(t *testing.T) {
	t.Run("replacing a referenced record drops the referrer cache", func(t *testing.T) {
		rs := New()

		adv := model.NewAdvisoryRecord("A1")
		adv.SetReferences([]string{"CVE-2024-0001"})
		rs.UpsertAdvisory(adv)
		rs.UpsertVulnerability(newScoredVuln("CVE-2024-0001", 5.0, model.SourceLive))

		adv.CacheMaxSeverity(&model.MaxSeverityResult{VulnerabilityID: "CVE-2024-0001", Score: 5.0})
		_, valid := adv.CachedMaxSeverity()
		require.True(t, valid)

		rs.UpsertVulnerability(newScoredVuln("CVE-2024-0001", 9.8, model.SourceLive))
		_, valid = adv.CachedMaxSeverity()
		assert.False(t, valid, "cache must be dropped when a referenced record changes")
	})

	t.Run("losing merge leaves caches intact", func(t *testing.T) {
		rs := New()

		adv := model.NewAdvisoryRecord("A1")
		adv.SetReferences([]string{"CVE-2024-0001"})
		rs.UpsertAdvisory(adv)
		rs.UpsertVulnerability(newScoredVuln("CVE-2024-0001", 9.1, model.SourceOffline))

		adv.CacheMaxSeverity(&model.MaxSeverityResult{VulnerabilityID: "CVE-2024-0001", Score: 9.1})

		rs.UpsertVulnerability(newScoredVuln("CVE-2024-0001", 5.0, model.SourceLive))
		_, valid := adv.CachedMaxSeverity()
		assert.True(t, valid, "a rejected merge must not invalidate")
	})

	t.Run("reference change through upsert drops the cache", func(t *testing.T) {
		rs := New()

		adv := model.NewAdvisoryRecord("A1")
		adv.SetReferences([]string{"CVE-2024-0001"})
		rs.UpsertAdvisory(adv)

		adv.CacheMaxSeverity(nil)

		update := model.NewAdvisoryRecord("A1")
		update.SetReferences([]string{"CVE-2024-0002"})
		rs.UpsertAdvisory(update)

		got, _ := rs.GetAdvisory("A1")
		_, valid := got.CachedMaxSeverity()
		assert.False(t, valid)
	})
}
