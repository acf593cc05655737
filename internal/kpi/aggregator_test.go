package kpi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/vintel-backend/internal/recordset"
	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

func scoredAdvisory(rs *recordset.RecordSet, advID, cveID string, score float64) *model.AdvisoryRecord {
	v := model.NewVulnerabilityRecord(cveID)
	v.Score = &score
	v.Source = model.SourceLive
	rs.UpsertVulnerability(v)

	adv := model.NewAdvisoryRecord(advID)
	adv.SetReferences([]string{cveID})
	rs.UpsertAdvisory(adv)
	return adv
}

func snapAt(ts time.Time, total int) *model.KpiSnapshot {
	s := model.NewKpiSnapshot(ts)
	s.Total = total
	return s
}

func TestCollector(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("buckets advisories by band", func(t *testing.T) {
		rs := recordset.New()
		critical := scoredAdvisory(rs, "A1", "CVE-2024-0001", 9.8)
		medium := scoredAdvisory(rs, "A2", "CVE-2024-0002", 5.0)
		unscored := model.NewAdvisoryRecord("A3")
		rs.UpsertAdvisory(unscored)

		c := NewCollector(base)
		require.NoError(t, c.AddAll([]*model.AdvisoryRecord{critical, medium, unscored}, rs))

		snap := c.Close()
		assert.Equal(t, 1, snap.Counts[util.SeverityCritical])
		assert.Equal(t, 1, snap.Counts[util.SeverityMedium])
		assert.Equal(t, 1, snap.Counts[util.SeverityNone])
		assert.Equal(t, 3, snap.Total)
		assert.Equal(t, base, snap.Timestamp)
	})

	t.Run("every band key is present even when zero", func(t *testing.T) {
		snap := NewCollector(base).Close()
		for _, band := range util.SeverityBands {
			_, ok := snap.Counts[band]
			assert.True(t, ok, "band %s missing", band)
		}
		assert.Equal(t, 0, snap.Total)
	})

	t.Run("add after close fails", func(t *testing.T) {
		rs := recordset.New()
		adv := scoredAdvisory(rs, "A1", "CVE-2024-0001", 5.0)

		c := NewCollector(base)
		c.Close()
		assert.ErrorIs(t, c.Add(adv, rs), ErrClosed)
	})
}

func TestHistoryAppend(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	gap := time.Hour

	t.Run("new run inside the gap replaces the last entry", func(t *testing.T) {
		h := NewHistory("severity", 10)
		h.Append(snapAt(base, 5), gap)
		h.Append(snapAt(base.Add(10*time.Minute), 8), gap)

		assert.Equal(t, 1, h.Len())
		assert.Equal(t, 8, h.Latest().Total)
	})

	t.Run("new run beyond the gap extends the sequence", func(t *testing.T) {
		h := NewHistory("severity", 10)
		h.Append(snapAt(base, 5), gap)
		h.Append(snapAt(base.Add(2*time.Hour), 8), gap)

		assert.Equal(t, 2, h.Len())
	})

	t.Run("zero gap always extends", func(t *testing.T) {
		h := NewHistory("severity", 10)
		h.Append(snapAt(base, 5), 0)
		h.Append(snapAt(base.Add(time.Second), 8), 0)

		assert.Equal(t, 2, h.Len())
	})

	t.Run("depth eviction is strict FIFO", func(t *testing.T) {
		h := NewHistory("severity", 3)
		for i := 0; i < 5; i++ {
			h.Append(snapAt(base.Add(time.Duration(i)*2*time.Hour), i), gap)
		}

		require.Equal(t, 3, h.Len())
		snaps := h.Snapshots()
		assert.Equal(t, 2, snaps[0].Total, "oldest entries must be evicted first")
		assert.Equal(t, 4, snaps[2].Total)
	})

	t.Run("nil snapshot is ignored", func(t *testing.T) {
		h := NewHistory("severity", 3)
		h.Append(nil, gap)
		assert.Equal(t, 0, h.Len())
		assert.Nil(t, h.Latest())
	})
}

func TestHistoryTendency(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	h := NewHistory("severity", 10)
	assert.Equal(t, "EQ", h.Tendency())

	h.Append(snapAt(base, 5), 0)
	assert.Equal(t, "EQ", h.Tendency())

	h.Append(snapAt(base.Add(2*time.Hour), 9), 0)
	assert.Equal(t, "INC", h.Tendency())

	h.Append(snapAt(base.Add(4*time.Hour), 3), 0)
	assert.Equal(t, "DEC", h.Tendency())
}

func TestHistoryRoundTrip(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	h := NewHistory("severity", 5)
	h.Append(snapAt(base, 1), 0)
	h.Append(snapAt(base.Add(2*time.Hour), 2), 0)

	persisted := h.ToModel()
	require.Equal(t, "severity", persisted.Name)
	require.Len(t, persisted.Snapshots, 2)

	rebuilt := FromModel(persisted, 5)
	assert.Equal(t, 2, rebuilt.Len())
	assert.Equal(t, 2, rebuilt.Latest().Total)
}
