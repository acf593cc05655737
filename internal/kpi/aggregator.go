// Package kpi folds run results into severity-band counts and maintains a
// bounded snapshot history.
package kpi

import (
	"errors"
	"time"

	"github.com/vulnwatch/vintel-backend/internal/recordset"
	"github.com/vulnwatch/vintel-backend/internal/severity"
	"github.com/vulnwatch/vintel-backend/model"
)

// ErrClosed is returned when a collector is used after Close
var ErrClosed = errors.New("kpi: collector already closed")

// collectorState tracks the two collector phases
type collectorState int

const (
	stateCollecting collectorState = iota
	stateClosed
)

// Collector accumulates severity-band counts for one in-progress snapshot.
// It transitions Collecting -> Closed exactly once, when the run's record
// processing completes.
type Collector struct {
	state    collectorState
	snapshot *model.KpiSnapshot
}

// NewCollector starts a collector for a snapshot at the given time
func NewCollector(ts time.Time) *Collector {
	return &Collector{
		state:    stateCollecting,
		snapshot: model.NewKpiSnapshot(ts),
	}
}

// Add buckets one advisory by its resolved max severity. Advisories with no
// scored reference count toward the NONE band; absence is an expected state,
// never an error.
func (c *Collector) Add(adv *model.AdvisoryRecord, rs *recordset.RecordSet) error {
	if c.state == stateClosed {
		return ErrClosed
	}
	band := severity.Band(adv, rs)
	c.snapshot.Counts[band]++
	c.snapshot.Total++
	return nil
}

// AddAll buckets every advisory in the slice
func (c *Collector) AddAll(advisories []*model.AdvisoryRecord, rs *recordset.RecordSet) error {
	for _, adv := range advisories {
		if err := c.Add(adv, rs); err != nil {
			return err
		}
	}
	return nil
}

// Close finalizes the snapshot and returns it. Further Add calls fail with
// ErrClosed; Close is idempotent on the returned snapshot.
func (c *Collector) Close() *model.KpiSnapshot {
	c.state = stateClosed
	return c.snapshot
}

// History is a bounded, append-only snapshot sequence, oldest first
type History struct {
	name     string
	maxDepth int
	entries  []*model.KpiSnapshot
}

// NewHistory creates a history bounded to maxDepth entries. A depth of zero
// or less means unbounded.
func NewHistory(name string, maxDepth int) *History {
	return &History{name: name, maxDepth: maxDepth}
}

// FromModel rebuilds an in-memory history from its persisted shape
func FromModel(h *model.KpiHistory, maxDepth int) *History {
	hist := NewHistory(h.Name, maxDepth)
	for _, snap := range h.Snapshots {
		hist.entries = append(hist.entries, snap)
	}
	hist.truncate()
	return hist
}

// Append adds a snapshot to the history. When gap is positive and the most
// recent entry is closer than gap to the new snapshot, the new snapshot
// replaces that entry instead of extending the sequence, so closely spaced
// runs do not bloat the history. Eviction beyond maxDepth is strict FIFO:
// the chronologically oldest entry goes first.
func (h *History) Append(snap *model.KpiSnapshot, gap time.Duration) {
	if snap == nil {
		return
	}

	if gap > 0 && len(h.entries) > 0 {
		last := h.entries[len(h.entries)-1]
		if snap.Timestamp.Sub(last.Timestamp) < gap {
			h.entries[len(h.entries)-1] = snap
			return
		}
	}

	h.entries = append(h.entries, snap)
	h.truncate()
}

// truncate evicts the oldest entries beyond the configured depth
func (h *History) truncate() {
	if h.maxDepth > 0 && len(h.entries) > h.maxDepth {
		h.entries = h.entries[len(h.entries)-h.maxDepth:]
	}
}

// Len returns the number of retained snapshots
func (h *History) Len() int {
	return len(h.entries)
}

// Snapshots returns the retained snapshots, oldest first
func (h *History) Snapshots() []*model.KpiSnapshot {
	out := make([]*model.KpiSnapshot, len(h.entries))
	copy(out, h.entries)
	return out
}

// Latest returns the most recent snapshot, or nil when empty
func (h *History) Latest() *model.KpiSnapshot {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[len(h.entries)-1]
}

// ToModel converts the history into its persisted shape
func (h *History) ToModel() *model.KpiHistory {
	return &model.KpiHistory{
		Name:      h.name,
		Snapshots: h.Snapshots(),
		ObjType:   "KpiHistory",
	}
}

// Tendency compares the two most recent snapshots and reports whether the
// total advisory exposure increased, decreased or stayed level
func (h *History) Tendency() string {
	if len(h.entries) < 2 {
		return "EQ"
	}
	prev, last := h.entries[len(h.entries)-2], h.entries[len(h.entries)-1]
	switch {
	case last.Total > prev.Total:
		return "INC"
	case last.Total < prev.Total:
		return "DEC"
	default:
		return "EQ"
	}
}
