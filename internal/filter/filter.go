// Package filter narrows a record set to matching advisories without
// mutating it.
package filter

import (
	"fmt"
	"time"

	"github.com/vulnwatch/vintel-backend/internal/recordset"
	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

// DateLayout is the accepted format for date bounds
const DateLayout = "2006-01-02"

// ConfigError reports an invalid filter configuration. It is fatal and must
// surface before any fetch begins.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid filter configuration: " + e.Reason
}

// Config holds the recognized filter options. The zero value passes every
// advisory through.
type Config struct {
	Keywords []string  // normalized tokens; empty means no keyword filtering
	DateFrom time.Time // inclusive lower bound on published_at; zero means unbounded
	DateTo   time.Time // inclusive upper bound on published_at; zero means unbounded
}

// ParseConfig builds a Config from raw option values as delivered by the API
// layer. Keywords are normalized; dates use DateLayout.
func ParseConfig(keywords []string, dateFrom, dateTo string) (Config, error) {
	cfg := Config{Keywords: util.NormalizeKeywords(keywords)}

	if dateFrom != "" {
		t, err := time.Parse(DateLayout, dateFrom)
		if err != nil {
			return cfg, &ConfigError{Reason: fmt.Sprintf("date_from %q is not %s", dateFrom, DateLayout)}
		}
		cfg.DateFrom = t
	}
	if dateTo != "" {
		t, err := time.Parse(DateLayout, dateTo)
		if err != nil {
			return cfg, &ConfigError{Reason: fmt.Sprintf("date_to %q is not %s", dateTo, DateLayout)}
		}
		// Inclusive upper bound: extend to end of day.
		cfg.DateTo = t.Add(24*time.Hour - time.Nanosecond)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the bounds ordering. Runs fail fast on configuration
// errors, never mid-run.
func (c Config) Validate() error {
	if !c.DateFrom.IsZero() && !c.DateTo.IsZero() && c.DateFrom.After(c.DateTo) {
		return &ConfigError{Reason: "date_from is after date_to"}
	}
	return nil
}

// IsZero reports whether the config filters nothing
func (c Config) IsZero() bool {
	return len(c.Keywords) == 0 && c.DateFrom.IsZero() && c.DateTo.IsZero()
}

// Apply returns a view of the advisories matching the config, in arrival
// order. The result holds references into the record set, not copies, and
// applying a filter never mutates the set or any severity cache.
func Apply(rs *recordset.RecordSet, cfg Config) []*model.AdvisoryRecord {
	advisories := rs.Advisories()
	if cfg.IsZero() {
		return advisories
	}

	var out []*model.AdvisoryRecord
	for _, adv := range advisories {
		if !matches(adv, cfg) {
			continue
		}
		out = append(out, adv)
	}
	return out
}

// matches applies the keyword and date checks as a logical AND
func matches(adv *model.AdvisoryRecord, cfg Config) bool {
	if len(cfg.Keywords) > 0 && len(adv.MatchKeywords(cfg.Keywords)) == 0 {
		return false
	}
	if !cfg.DateFrom.IsZero() && adv.PublishedAt.Before(cfg.DateFrom) {
		return false
	}
	if !cfg.DateTo.IsZero() && adv.PublishedAt.After(cfg.DateTo) {
		return false
	}
	return true
}
