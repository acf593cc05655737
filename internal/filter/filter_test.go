package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/vintel-backend/internal/recordset"
	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

func addAdvisory(rs *recordset.RecordSet, id, title string, published time.Time) *model.AdvisoryRecord {
	adv := model.NewAdvisoryRecord(id)
	adv.Title = title
	adv.Keywords = util.Tokenize(title)
	adv.PublishedAt = published
	rs.UpsertAdvisory(adv)
	return adv
}

func TestParseConfig(t *testing.T) {
	t.Run("inverted window is a config error", func(t *testing.T) {
		_, err := ParseConfig(nil, "2024-03-10", "2024-03-01")
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("malformed date is a config error", func(t *testing.T) {
		_, err := ParseConfig(nil, "10/03/2024", "")
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("keywords are normalized", func(t *testing.T) {
		cfg, err := ParseConfig([]string{" OpenSSL ", "openssl", "Kernel"}, "", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"openssl", "kernel"}, cfg.Keywords)
	})

	t.Run("date_to is inclusive", func(t *testing.T) {
		cfg, err := ParseConfig(nil, "", "2024-03-01")
		require.NoError(t, err)
		inside := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
		assert.False(t, cfg.DateTo.Before(inside))
	})
}

func TestApply(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)
	}

	build := func() (*recordset.RecordSet, []*model.AdvisoryRecord) {
		rs := recordset.New()
		a1 := addAdvisory(rs, "A1", "OpenSSL buffer overflow", day(1))
		a2 := addAdvisory(rs, "A2", "Kernel privilege escalation", day(5))
		a3 := addAdvisory(rs, "A3", "OpenSSL denial of service", day(10))
		return rs, []*model.AdvisoryRecord{a1, a2, a3}
	}

	t.Run("empty config passes everything through", func(t *testing.T) {
		rs, _ := build()
		out := Apply(rs, Config{})
		assert.Len(t, out, 3)
	})

	t.Run("keyword filter", func(t *testing.T) {
		rs, _ := build()
		cfg, err := ParseConfig([]string{"openssl"}, "", "")
		require.NoError(t, err)

		out := Apply(rs, cfg)
		require.Len(t, out, 2)
		assert.Equal(t, "A1", out[0].ID)
		assert.Equal(t, "A3", out[1].ID)
	})

	t.Run("keyword and date combine as AND", func(t *testing.T) {
		rs, _ := build()
		cfg, err := ParseConfig([]string{"openssl"}, "2024-03-05", "")
		require.NoError(t, err)

		out := Apply(rs, cfg)
		require.Len(t, out, 1)
		assert.Equal(t, "A3", out[0].ID)
	})

	t.Run("date window is inclusive on both ends", func(t *testing.T) {
		rs, _ := build()
		cfg, err := ParseConfig(nil, "2024-03-01", "2024-03-05")
		require.NoError(t, err)

		out := Apply(rs, cfg)
		require.Len(t, out, 2)
		assert.Equal(t, "A1", out[0].ID)
		assert.Equal(t, "A2", out[1].ID)
	})

	t.Run("applying a filter never mutates the set", func(t *testing.T) {
		rs, all := build()
		cfg, err := ParseConfig([]string{"kernel"}, "", "")
		require.NoError(t, err)

		Apply(rs, cfg)

		assert.Equal(t, 3, rs.AdvisoryCount())
		advisories := rs.Advisories()
		for i, adv := range advisories {
			assert.Same(t, all[i], adv, "filtering must return views, not copies")
		}
	})
}
